package worker

import (
	"context"
	"errors"
	"fmt"

	"ghostscan/internal/pipeline"
	"ghostscan/internal/scans"
	"ghostscan/pkg/domain"
	"ghostscan/pkg/logger"
	"ghostscan/pkg/serrors"
	"ghostscan/pkg/storage"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

// ScanWorker is the River worker that runs one scan through the pipeline and
// persists the outcome.
//
// Cancellation is cooperative: the HTTP layer marks the scan cancelled in the
// database and the worker notices at the next stage boundary, because every
// status update is a compare-and-swap on the previous status. A scan that was
// cancelled externally completes the job without persisting partial results.
type ScanWorker struct {
	river.WorkerDefaults[scans.JobArgs]

	storage  storage.Storage
	pipeline *pipeline.Pipeline
}

// NewScanWorker constructs a ScanWorker running jobs against the given
// pipeline and persisting through the given storage.
func NewScanWorker(st storage.Storage, p *pipeline.Pipeline) *ScanWorker {
	return &ScanWorker{storage: st, pipeline: p}
}

// Work executes a single scan job end to end.
func (w *ScanWorker) Work(ctx context.Context, job *river.Job[scans.JobArgs]) error {
	scanID := domain.ScanID(job.Args.ScanID)
	ctx = logger.WithFields(ctx,
		zap.Int64("jobID", job.ID),
		zap.String("scanId", scanID.String()))

	scan, err := w.storage.ScanByID(ctx, scanID)
	if err != nil {
		return fmt.Errorf("could not load scan: %w", err)
	}
	if scan == nil {
		// deleted before the job ran, nothing left to do
		return river.JobCancel(serrors.With(serrors.ErrNotFound, "scan no longer exists")) //nolint: wrapcheck
	}
	if scan.Status.Terminal() {
		logger.Info(ctx, "scan already finished", zap.String("status", string(scan.Status)))

		return nil
	}

	// every status write swaps on the previously observed status, so an
	// external cancellation makes the next write miss and aborts the run
	prev := scan.Status
	onStatus := func(ctx context.Context, status domain.ScanStatus, progress int) error {
		updated, err := w.storage.UpdateScanByID(ctx, scanID, storage.ScanUpdates{
			Status:       status,
			ExpectStatus: prev,
			Progress:     &progress,
		})
		if err != nil {
			return fmt.Errorf("could not update scan status: %w", err)
		}
		if updated == nil {
			return serrors.With(serrors.ErrCancelled, "scan left the expected status")
		}
		prev = status

		return nil
	}

	result, err := w.pipeline.Run(ctx, scanID, scan.IdentityToken, pipeline.RunOptions{
		Sources:           job.Args.Sources,
		ConcurrencyLimit:  job.Args.ConcurrencyLimit,
		SeverityThreshold: job.Args.SeverityThreshold,
	}, onStatus)
	if err != nil {
		return w.handleFailure(ctx, job, scanID, err)
	}

	// persist the report and the drafted notices atomically before the final
	// status flip; a cancellation racing this transaction rolls everything back
	if err := w.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		progress := 100
		lastError := ""
		updated, err := tx.UpdateScanByID(ctx, scanID, storage.ScanUpdates{
			Status:        domain.ScanStatusCompleted,
			ExpectStatus:  prev,
			Progress:      &progress,
			Report:        &result.Report,
			LastError:     &lastError,
			MarkCompleted: true,
		})
		if err != nil {
			return fmt.Errorf("could not complete scan: %w", err)
		}
		if updated == nil {
			return serrors.With(serrors.ErrCancelled, "scan left the expected status")
		}

		if _, err := tx.StoreNotices(ctx, result.Notices...); err != nil {
			return fmt.Errorf("could not store notices: %w", err)
		}

		return nil
	}); err != nil {
		if errors.Is(err, serrors.ErrCancelled) {
			logger.Info(ctx, "scan cancelled before completion")

			return nil
		}

		return fmt.Errorf("could not persist scan outcome: %w", err)
	}

	logger.Info(ctx, "scan completed",
		zap.Int("clusters", len(result.Report.Clusters)),
		zap.Int("notices", len(result.Notices)),
		zap.Float64("score", result.Report.Score.Overall))

	return nil
}

// handleFailure maps a pipeline error to the right job outcome. Cancelled
// scans finish the job quietly, policy failures fail the scan without
// retrying, and other errors mark the scan failed once the job has
// exhausted its attempts.
func (w *ScanWorker) handleFailure(ctx context.Context,
	job *river.Job[scans.JobArgs],
	scanID domain.ScanID,
	runErr error) error {
	if errors.Is(runErr, serrors.ErrCancelled) {
		logger.Info(ctx, "scan cancelled", zap.Error(runErr))

		return nil
	}

	logger.Error(ctx, "scan failed", zap.Error(runErr))

	// retrying cannot fix a policy failure, fail the scan on first attempt
	if errors.Is(runErr, serrors.ErrRequiredCategoriesUnmet) {
		lastError := runErr.Error()
		if _, err := w.storage.UpdateScanByID(ctx, scanID, storage.ScanUpdates{
			Status:    domain.ScanStatusFailed,
			LastError: &lastError,
		}); err != nil {
			return fmt.Errorf("could not mark scan failed: %w", err)
		}

		return river.JobCancel(runErr) //nolint: wrapcheck
	}

	if job.Attempt >= job.MaxAttempts {
		lastError := runErr.Error()
		if _, err := w.storage.UpdateScanByID(ctx, scanID, storage.ScanUpdates{
			Status:    domain.ScanStatusFailed,
			LastError: &lastError,
		}); err != nil {
			return fmt.Errorf("could not mark scan failed: %w", err)
		}
	}

	return fmt.Errorf("could not run scan: %w", runErr)
}
