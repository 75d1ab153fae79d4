package postgres

import (
	"context"
	"fmt"

	"ghostscan/pkg/domain"
	"ghostscan/pkg/serrors"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const (
	noticesTable = "notices"
)

// StoreNotices inserts notices, skipping rows whose (scan_id, cluster_id,
// recipient) triple already exists. Only the actually inserted rows are
// returned, so a full re-run against an already persisted scan yields an
// empty slice.
func (p *PgSQL) StoreNotices(ctx context.Context,
	notices ...domain.TakedownNotice) ([]domain.TakedownNotice, error) {
	if len(notices) == 0 {
		return nil, nil
	}

	var rows []PgNotice
	if err := p.Builder.Insert(noticesTable).
		Rows(domainNoticesToPg(notices)).
		OnConflict(goqu.DoNothing()).
		Returning(&PgNotice{}).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not store notices into pg: %w", err)
	}

	return pgNoticesToDomain(rows), nil
}

// NoticeByID fetches a notice by its ID. Returns nil when not found.
func (p *PgSQL) NoticeByID(ctx context.Context, id domain.NoticeID) (*domain.TakedownNotice, error) {
	var row PgNotice
	found, err := p.Builder.From(noticesTable).
		Where(goqu.I("id").Eq(uuid.UUID(id))).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch notice by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}

// NoticesByScanID returns all notices of one scan in stable order.
func (p *PgSQL) NoticesByScanID(ctx context.Context,
	scanID domain.ScanID) ([]domain.TakedownNotice, error) {
	var rows []PgNotice
	if err := p.Builder.From(noticesTable).
		Where(goqu.I("scan_id").Eq(uuid.UUID(scanID))).
		Order(goqu.I("created_at").Asc(), goqu.I("id").Asc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch notices by scan id: %w", err)
	}

	return pgNoticesToDomain(rows), nil
}

// UpdateNoticeStatus moves a notice one step through its delivery lifecycle.
// The update is guarded by the current status column, so a racing writer
// cannot push the notice through an illegal transition.
func (p *PgSQL) UpdateNoticeStatus(ctx context.Context,
	id domain.NoticeID,
	next domain.NoticeStatus,
	failureReason string) (*domain.TakedownNotice, error) {
	current, err := p.NoticeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, serrors.With(serrors.ErrNotFound, "notice not found")
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, serrors.With(serrors.ErrConflict,
			"notice cannot move from %s to %s", current.Status, next)
	}

	rec := goqu.Record{
		"status":     string(next),
		"updated_at": goqu.L("CURRENT_TIMESTAMP"),
	}
	switch next {
	case domain.NoticeStatusFailed:
		rec["failure_reason"] = failureReason
	case domain.NoticeStatusQueued:
		if current.Status == domain.NoticeStatusFailed {
			rec["retry_count"] = goqu.L("retry_count + 1")
			rec["failure_reason"] = goqu.L("NULL")
		}
	case domain.NoticeStatusDrafted, domain.NoticeStatusSent:
	}

	var row PgNotice
	found, err := p.Builder.Update(noticesTable).
		Set(rec).
		Where(
			goqu.I("id").Eq(uuid.UUID(id)),
			goqu.I("status").Eq(string(current.Status)),
		).
		Returning(&PgNotice{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not update notice status in pg: %w", err)
	}
	if !found {
		return nil, serrors.With(serrors.ErrConflict,
			"notice status changed concurrently")
	}

	return row.ToDomain(), nil
}
