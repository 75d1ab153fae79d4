package scans

import (
	"context"
	"fmt"
	"time"

	"ghostscan/internal/config"
	"ghostscan/pkg/domain"
	"ghostscan/pkg/serrors"
	"ghostscan/pkg/source"
	"ghostscan/pkg/storage"

	"github.com/google/uuid"
)

// Options configure how scan jobs are enqueued and how long finished scans
// are retained.
type Options struct {
	// MaxAttempts is the maximum number of attempts the background worker
	// should make when processing a scan job before giving up.
	MaxAttempts int
	// DataTTL is how long terminal scans are kept before PurgeExpired
	// removes them.
	DataTTL time.Duration
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MaxAttempts: 3,
		DataTTL:     cfg.DataTTL,
	}
}

// service is the concrete implementation of the Scans interface. It
// coordinates persistence with the storage layer and job enqueueing.
type service struct {
	options  Options
	storage  storage.Storage
	registry *source.Registry
	now      func() time.Time
}

// New creates a new Scans service backed by the provided storage and source
// registry.
func New(st storage.Storage, registry *source.Registry, options Options) Scans {
	return &service{
		options:  options,
		storage:  st,
		registry: registry,
		now:      time.Now,
	}
}

// Enqueue stores a new pending scan for the given identity token and
// schedules its background job in the same transaction, so a stored scan
// can never miss its job.
func (s *service) Enqueue(ctx context.Context, req EnqueueRequest) (*domain.Scan, error) {
	token, err := domain.NewIdentityToken(req.IdentityToken)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrBadRequest, err, "invalid identity token")
	}
	// resolve up front so an unknown source name fails the request, not the job
	if _, err := s.registry.Resolve(req.Sources); err != nil {
		return nil, err
	}
	if req.ConcurrencyLimit < 0 {
		return nil, serrors.With(serrors.ErrBadRequest, "concurrency limit cannot be negative")
	}
	if req.SeverityThreshold != nil && *req.SeverityThreshold < 0 {
		return nil, serrors.With(serrors.ErrBadRequest, "severity threshold cannot be negative")
	}

	var scan *domain.Scan
	if err := s.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		stored, err := tx.StoreScan(ctx, domain.Scan{
			IdentityToken: token,
			Status:        domain.ScanStatusPending,
		})
		if err != nil {
			return fmt.Errorf("could not store scan: %w", err)
		}
		scan = stored

		if _, err := tx.AddJob(ctx, JobArgs{
			ScanID:            uuid.UUID(scan.ID),
			Sources:           req.Sources,
			ConcurrencyLimit:  req.ConcurrencyLimit,
			SeverityThreshold: req.SeverityThreshold,
			maxAttempts:       s.options.MaxAttempts,
		}, nil); err != nil {
			return fmt.Errorf("could not add job: %w", err)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("could not enqueue scan: %w", err)
	}

	return scan, nil
}

// Get fetches a single scan by ID. It returns a not-found error when no
// matching scan exists.
func (s *service) Get(ctx context.Context, scanID domain.ScanID) (*domain.Scan, error) {
	scan, err := s.storage.ScanByID(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("could not get scan: %w", err)
	}
	if scan == nil {
		return nil, serrors.With(serrors.ErrNotFound, "scan not found")
	}

	return scan, nil
}

// Report returns the report of a completed scan.
func (s *service) Report(ctx context.Context, scanID domain.ScanID) (*domain.ScanReport, error) {
	scan, err := s.Get(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if scan.Status != domain.ScanStatusCompleted {
		return nil, serrors.With(serrors.ErrNotFound,
			"scan is %s, no report exists until it completes", scan.Status)
	}

	return &scan.Report, nil
}

// Notices returns the takedown notices of a scan. The scan must exist, but
// may be in any state; a running scan simply has no notices yet.
func (s *service) Notices(ctx context.Context, scanID domain.ScanID) ([]domain.TakedownNotice, error) {
	if _, err := s.Get(ctx, scanID); err != nil {
		return nil, err
	}

	notices, err := s.storage.NoticesByScanID(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("could not get notices: %w", err)
	}

	return notices, nil
}

// Cancel marks a non-terminal scan cancelled. The background job is not
// interrupted mid-stage; it observes the cancelled status at its next stage
// boundary and stops without persisting partial results.
func (s *service) Cancel(ctx context.Context, scanID domain.ScanID) (*domain.Scan, error) {
	scan, err := s.Get(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if scan.Status.Terminal() {
		return nil, serrors.With(serrors.ErrConflict,
			"scan is already %s", scan.Status)
	}

	updated, err := s.storage.UpdateScanByID(ctx, scanID, storage.ScanUpdates{
		Status:       domain.ScanStatusCancelled,
		ExpectStatus: scan.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("could not cancel scan: %w", err)
	}
	if updated == nil {
		// the status moved between our read and the guarded update
		return nil, serrors.With(serrors.ErrConflict, "scan status changed concurrently")
	}

	return updated, nil
}

// Delete soft-deletes a scan. The stored report and notices disappear from
// the API immediately and are hard-deleted by the next purge run.
func (s *service) Delete(ctx context.Context, scanID domain.ScanID) error {
	scan, err := s.storage.DeleteScan(ctx, scanID)
	if err != nil {
		return fmt.Errorf("could not delete scan: %w", err)
	}
	if scan == nil {
		return serrors.With(serrors.ErrNotFound, "scan not found")
	}

	return nil
}

// UpdateNoticeStatus applies a delivery status transition reported by the
// external delivery collaborator. Transition legality is enforced by the
// storage layer.
func (s *service) UpdateNoticeStatus(ctx context.Context,
	noticeID domain.NoticeID,
	next domain.NoticeStatus,
	failureReason string) (*domain.TakedownNotice, error) {
	switch next {
	case domain.NoticeStatusQueued, domain.NoticeStatusSent, domain.NoticeStatusFailed:
	case domain.NoticeStatusDrafted:
		return nil, serrors.With(serrors.ErrBadRequest, "notices cannot be moved back to drafted")
	default:
		return nil, serrors.With(serrors.ErrBadRequest, "unknown notice status %q", next)
	}

	notice, err := s.storage.UpdateNoticeStatus(ctx, noticeID, next, failureReason)
	if err != nil {
		return nil, fmt.Errorf("could not update notice status: %w", err)
	}

	return notice, nil
}

// PurgeExpired hard-deletes terminal scans older than the retention TTL.
func (s *service) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.options.DataTTL)
	purged, err := s.storage.PurgeScansBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("could not purge expired scans: %w", err)
	}

	return purged, nil
}
