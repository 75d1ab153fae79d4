// Package scans is the service layer between the HTTP API and the scan
// pipeline. It owns request validation, scan lifecycle bookkeeping and job
// enqueueing; the heavy lifting happens in the background worker.
package scans

import (
	"context"

	"ghostscan/pkg/domain"
)

// EnqueueRequest carries the parameters of a new scan.
type EnqueueRequest struct {
	// IdentityToken is the raw, not yet validated identity token.
	IdentityToken string
	// Sources optionally restricts the scan to a subset of the registered
	// sources.
	Sources []string
	// ConcurrencyLimit optionally overrides the discovery concurrency cap.
	ConcurrencyLimit int
	// SeverityThreshold optionally overrides the notice severity threshold.
	SeverityThreshold *float64
}

type Scans interface {
	// Enqueue validates the identity token and source selection, stores a
	// pending scan and schedules its background job.
	Enqueue(ctx context.Context, req EnqueueRequest) (*domain.Scan, error)
	// Get returns a scan with its current status and progress.
	Get(ctx context.Context, scanID domain.ScanID) (*domain.Scan, error)
	// Report returns the report of a completed scan. Scans in any other
	// state yield a not-found error, a report only exists once complete.
	Report(ctx context.Context, scanID domain.ScanID) (*domain.ScanReport, error)
	// Notices returns the takedown notices drafted for a scan.
	Notices(ctx context.Context, scanID domain.ScanID) ([]domain.TakedownNotice, error)
	// Cancel moves a non-terminal scan to cancelled. The background job
	// observes the new status and stops at its next stage boundary.
	Cancel(ctx context.Context, scanID domain.ScanID) (*domain.Scan, error)
	// Delete soft-deletes a scan; the purge loop removes it for good later.
	Delete(ctx context.Context, scanID domain.ScanID) error
	// UpdateNoticeStatus applies a delivery status reported by the external
	// delivery collaborator.
	UpdateNoticeStatus(ctx context.Context,
		noticeID domain.NoticeID,
		next domain.NoticeStatus,
		failureReason string) (*domain.TakedownNotice, error)
	// PurgeExpired hard-deletes terminal scans older than the retention TTL
	// and returns how many were removed.
	PurgeExpired(ctx context.Context) (int64, error)
}
