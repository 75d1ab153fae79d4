package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ghostscan/pkg/domain"

	"github.com/google/uuid"
)

type PgScan struct {
	ID uuid.UUID `db:"id" goqu:"skipinsert"`

	IdentityToken string          `db:"identity_token"`
	Status        string          `db:"status"`
	Progress      int             `db:"progress"`
	Report        json.RawMessage `db:"report"     goqu:"skipinsert"`
	LastError     sql.NullString  `db:"last_error" goqu:"skipinsert"`

	CreatedAt   time.Time    `db:"created_at"   goqu:"skipinsert"`
	UpdatedAt   sql.NullTime `db:"updated_at"   goqu:"skipinsert"`
	CompletedAt sql.NullTime `db:"completed_at" goqu:"skipinsert"`
	DeletedAt   sql.NullTime `db:"deleted_at"   goqu:"skipinsert"`
}

func (p *PgScan) ToDomain() (*domain.Scan, error) {
	var report domain.ScanReport
	if len(p.Report) > 0 {
		if err := json.Unmarshal(p.Report, &report); err != nil {
			return nil, fmt.Errorf("could not unmarshal scan report: %w", err)
		}
	}

	return &domain.Scan{
		ID:            domain.ScanID(p.ID),
		IdentityToken: domain.IdentityToken(p.IdentityToken),
		Status:        domain.ScanStatus(p.Status),
		Progress:      p.Progress,
		Report:        report,
		LastError:     p.LastError.String,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt.Time,
		CompletedAt:   p.CompletedAt.Time,
		DeletedAt:     p.DeletedAt.Time,
	}, nil
}

func (p *PgScan) FromDomain(scan domain.Scan) error {
	report, err := json.Marshal(scan.Report)
	if err != nil {
		return fmt.Errorf("could not marshal scan report: %w", err)
	}

	*p = PgScan{
		ID:            uuid.UUID(scan.ID),
		IdentityToken: string(scan.IdentityToken),
		Status:        string(scan.Status),
		Progress:      scan.Progress,
		Report:        report,
		LastError: sql.NullString{
			String: scan.LastError,
			Valid:  scan.LastError != "",
		},
		CreatedAt: scan.CreatedAt,
		UpdatedAt: sql.NullTime{
			Time:  scan.UpdatedAt,
			Valid: !scan.UpdatedAt.IsZero(),
		},
		CompletedAt: sql.NullTime{
			Time:  scan.CompletedAt,
			Valid: !scan.CompletedAt.IsZero(),
		},
		DeletedAt: sql.NullTime{
			Time:  scan.DeletedAt,
			Valid: !scan.DeletedAt.IsZero(),
		},
	}

	return nil
}

type PgNotice struct {
	ID     uuid.UUID `db:"id" goqu:"skipinsert"`
	ScanID uuid.UUID `db:"scan_id"`

	ClusterID    string `db:"cluster_id"`
	Source       string `db:"source"`
	Recipient    string `db:"recipient"`
	Jurisdiction string `db:"jurisdiction"`
	LegalBasis   string `db:"legal_basis"`
	Subject      string `db:"subject"`
	Body         string `db:"body"`

	Status        string         `db:"status"`
	RetryCount    uint           `db:"retry_count"    goqu:"skipinsert"`
	FailureReason sql.NullString `db:"failure_reason" goqu:"skipinsert"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
}

func (p *PgNotice) ToDomain() *domain.TakedownNotice {
	return &domain.TakedownNotice{
		ID:            domain.NoticeID(p.ID),
		ScanID:        domain.ScanID(p.ScanID),
		ClusterID:     p.ClusterID,
		Source:        p.Source,
		Recipient:     p.Recipient,
		Jurisdiction:  domain.Jurisdiction(p.Jurisdiction),
		LegalBasis:    domain.LegalBasis(p.LegalBasis),
		Subject:       p.Subject,
		Body:          p.Body,
		Status:        domain.NoticeStatus(p.Status),
		RetryCount:    p.RetryCount,
		FailureReason: p.FailureReason.String,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt.Time,
	}
}

func (p *PgNotice) FromDomain(notice domain.TakedownNotice) {
	*p = PgNotice{
		ID:           uuid.UUID(notice.ID),
		ScanID:       uuid.UUID(notice.ScanID),
		ClusterID:    notice.ClusterID,
		Source:       notice.Source,
		Recipient:    notice.Recipient,
		Jurisdiction: string(notice.Jurisdiction),
		LegalBasis:   string(notice.LegalBasis),
		Subject:      notice.Subject,
		Body:         notice.Body,
		Status:       string(notice.Status),
		RetryCount:   notice.RetryCount,
		FailureReason: sql.NullString{
			String: notice.FailureReason,
			Valid:  notice.FailureReason != "",
		},
		CreatedAt: notice.CreatedAt,
		UpdatedAt: sql.NullTime{
			Time:  notice.UpdatedAt,
			Valid: !notice.UpdatedAt.IsZero(),
		},
	}
}

func domainNoticesToPg(notices []domain.TakedownNotice) []PgNotice {
	out := make([]PgNotice, len(notices))
	for i := range out {
		out[i].FromDomain(notices[i])
	}

	return out
}

func pgNoticesToDomain(notices []PgNotice) []domain.TakedownNotice {
	out := make([]domain.TakedownNotice, 0, len(notices))
	for _, notice := range notices {
		out = append(out, *notice.ToDomain())
	}

	return out
}
