package storage

import (
	"context"

	"ghostscan/pkg/domain"
)

// NoticeStorage defines persistence operations for takedown notices.
type NoticeStorage interface {
	// StoreNotices inserts notices and returns the stored rows. A notice whose
	// (scan_id, cluster_id, recipient) triple already exists is silently
	// skipped, which makes re-running notice generation idempotent.
	StoreNotices(ctx context.Context, notices ...domain.TakedownNotice) ([]domain.TakedownNotice, error)
	// NoticeByID fetches a notice by its ID. Returns nil when not found.
	NoticeByID(ctx context.Context, id domain.NoticeID) (*domain.TakedownNotice, error)
	// NoticesByScanID returns all notices of one scan, ordered by creation
	// time then id for stable presentation.
	NoticesByScanID(ctx context.Context, scanID domain.ScanID) ([]domain.TakedownNotice, error)
	// UpdateNoticeStatus moves a notice to the next delivery status and
	// returns the updated row. Illegal transitions fail with a CONFLICT
	// error. A transition from failed back to queued
	// increments retry_count; failureReason is stored when next is failed.
	UpdateNoticeStatus(ctx context.Context,
		id domain.NoticeID,
		next domain.NoticeStatus,
		failureReason string) (*domain.TakedownNotice, error)
}
