package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ghostscan/pkg/domain"
	"ghostscan/pkg/storage"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const (
	scansTable = "scans"
)

func (p *PgSQL) StoreScan(ctx context.Context, scan domain.Scan) (*domain.Scan, error) {
	var pgScan PgScan
	if err := pgScan.FromDomain(scan); err != nil {
		return nil, err
	}

	var row PgScan
	found, err := p.Builder.Insert(scansTable).
		Rows(pgScan).
		Returning(&PgScan{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not store scan into pg: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("insert of scan returned no row")
	}

	return row.ToDomain()
}

// ScanByID returns a scan by its ID, excluding soft-deleted rows.
func (p *PgSQL) ScanByID(ctx context.Context, id domain.ScanID) (*domain.Scan, error) {
	var row PgScan
	found, err := p.Builder.From(scansTable).
		Where(
			goqu.I("id").Eq(uuid.UUID(id)),
			goqu.I("deleted_at").IsNull(),
		).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch scan by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// UpdateScanByID updates a single scan identified by its ID and returns the
// updated row, or nil when no row matched. Only provided fields are changed;
// updated_at is set automatically. When ExpectStatus is set the update turns
// into a compare-and-swap on the status column.
func (p *PgSQL) UpdateScanByID(ctx context.Context,
	id domain.ScanID,
	updates storage.ScanUpdates) (*domain.Scan, error) {
	rec := goqu.Record{
		"updated_at": goqu.L("CURRENT_TIMESTAMP"),
	}
	if updates.Status != "" {
		rec["status"] = string(updates.Status)
	}
	if updates.Progress != nil {
		rec["progress"] = *updates.Progress
	}
	if updates.Report != nil {
		b, err := json.Marshal(updates.Report)
		if err != nil {
			return nil, fmt.Errorf("could not marshal report: %w", err)
		}

		rec["report"] = b
	}
	if updates.LastError != nil {
		if *updates.LastError == "" {
			// set to NULL when empty string provided
			rec["last_error"] = goqu.L("NULL")
		} else {
			rec["last_error"] = *updates.LastError
		}
	}
	if updates.MarkCompleted {
		rec["completed_at"] = goqu.L("CURRENT_TIMESTAMP")
	}

	w := []goqu.Expression{
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("deleted_at").IsNull(),
	}
	if updates.ExpectStatus != "" {
		w = append(w, goqu.I("status").Eq(string(updates.ExpectStatus)))
	}

	var row PgScan
	found, err := p.Builder.Update(scansTable).
		Set(rec).
		Where(w...).
		Returning(&PgScan{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not update scan in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// DeleteScan performs a soft delete by setting deleted_at timestamp
// for a given scan id, returning the deleted record.
func (p *PgSQL) DeleteScan(ctx context.Context, id domain.ScanID) (*domain.Scan, error) {
	var row PgScan
	found, err := p.Builder.Update(scansTable).
		Set(goqu.Record{
			"deleted_at": goqu.L("CURRENT_TIMESTAMP"),
		}).Where(
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("deleted_at").IsNull(),
	).Returning(&PgScan{}).Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not delete scan in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// PurgeScansBefore hard-deletes terminal scans last touched before the
// cutoff, plus any soft-deleted scan regardless of age. Notices go with
// their scan through the FK cascade.
func (p *PgSQL) PurgeScansBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM scans
WHERE deleted_at IS NOT NULL
   OR (status IN ($1, $2, $3)
       AND COALESCE(completed_at, updated_at, created_at) < $4)`
	res, err := p.DB.ExecContext(ctx, query,
		string(domain.ScanStatusCompleted),
		string(domain.ScanStatusFailed),
		string(domain.ScanStatusCancelled),
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("could not purge scans in pg: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("could not count purged scans: %w", err)
	}

	return affected, nil
}
