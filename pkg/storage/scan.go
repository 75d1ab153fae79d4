package storage

import (
	"context"
	"time"

	"ghostscan/pkg/domain"
)

// ScanUpdates describes a set of optional fields that can be applied to an
// existing scan during an update. Only provided fields will be updated.
type ScanUpdates struct {
	// Status is the new status to set for the scan. Empty means unchanged.
	Status domain.ScanStatus
	// ExpectStatus, when non-empty, guards the update: rows are only touched
	// while their current status equals it, so concurrent writers cannot
	// produce an illegal transition.
	ExpectStatus domain.ScanStatus
	// Progress, when provided, replaces the stored discovery progress.
	Progress *int
	// Report, when provided, replaces the stored report payload.
	Report *domain.ScanReport
	// LastError, when provided, sets the last error text. An empty string value
	// indicates the error should be cleared (set to NULL).
	LastError *string
	// MarkCompleted sets completed_at to the current time.
	MarkCompleted bool
}

// ScanStorage defines CRUD and query operations related to scans. Implementations
// should ensure idempotency and proper handling of soft-deletes where applicable.
type ScanStorage interface {
	// StoreScan inserts a scan and returns the stored row as it exists in the
	// database (including generated fields).
	StoreScan(ctx context.Context, scan domain.Scan) (*domain.Scan, error)
	// ScanByID fetches a scan by its ID, excluding soft-deleted records.
	// Returns nil when not found.
	ScanByID(ctx context.Context, id domain.ScanID) (*domain.Scan, error)
	// UpdateScanByID updates a single scan identified by its ID and returns the
	// updated row, or nil when no row matched (not found, soft-deleted, or the
	// ExpectStatus guard did not hold). updated_at is set automatically.
	UpdateScanByID(ctx context.Context, id domain.ScanID, updates ScanUpdates) (*domain.Scan, error)
	// DeleteScan performs a soft delete for the given scan ID and returns the
	// deleted scan, or nil if it was not found.
	DeleteScan(ctx context.Context, id domain.ScanID) (*domain.Scan, error)
	// PurgeScansBefore hard-deletes terminal scans whose last update is older
	// than the cutoff, together with their notices, and returns how many scans
	// were removed. Soft-deleted scans are purged regardless of status.
	PurgeScansBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
