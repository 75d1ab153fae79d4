// Package pipeline drives one scan through its stages: discovery, audit and
// notice generation. The pipeline owns the stage progression and its
// invariants; persisting the outcome is left to the caller, which observes
// stage changes through a callback.
package pipeline

import (
	"context"
	"errors"
	"time"

	"ghostscan/internal/auditor"
	"ghostscan/internal/ghost"
	"ghostscan/internal/scout"
	"ghostscan/pkg/domain"
	"ghostscan/pkg/logger"
	"ghostscan/pkg/metrics"
	"ghostscan/pkg/serrors"
	"ghostscan/pkg/source"

	"go.uber.org/zap"
)

// StatusFunc is called on every stage change with the new status and the
// 0-100 progress. Returning an error aborts the scan, which is how callers
// veto progression, e.g. after an external cancellation request.
type StatusFunc func(ctx context.Context, status domain.ScanStatus, progress int) error

// Result is the outcome of a completed pipeline run.
type Result struct {
	Report  domain.ScanReport
	Notices []domain.TakedownNotice
}

// Pipeline wires the three stages together.
type Pipeline struct {
	registry *source.Registry
	scout    *scout.Scout
	auditor  *auditor.Auditor
	ghost    *ghost.Ghost
	metrics  *metrics.Pipeline
	now      func() time.Time
}

// New creates a Pipeline. metrics may be nil.
func New(registry *source.Registry,
	sc *scout.Scout,
	au *auditor.Auditor,
	gh *ghost.Ghost,
	m *metrics.Pipeline) *Pipeline {
	return &Pipeline{
		registry: registry,
		scout:    sc,
		auditor:  au,
		ghost:    gh,
		metrics:  m,
		now:      time.Now,
	}
}

// discovery covers the first part of the progress bar, audit and notice
// generation the small remainder.
const (
	progressDiscoveryDone = 80
	progressAuditDone     = 95
	progressAllDone       = 100
)

// RunOptions tune a single run. Zero values fall back to the configured
// defaults.
type RunOptions struct {
	// Sources selects a subset of the registered adapters; empty means all.
	Sources []string
	// ConcurrencyLimit overrides the configured discovery concurrency cap.
	ConcurrencyLimit int
	// SeverityThreshold overrides the configured notice severity threshold.
	SeverityThreshold *float64
}

// Run executes one scan. onStatus may be nil.
//
// The report is a pure function of the collected candidates, so a cancelled
// run returns no partial result.
func (p *Pipeline) Run(ctx context.Context,
	scanID domain.ScanID,
	token domain.IdentityToken,
	opts RunOptions,
	onStatus StatusFunc) (*Result, error) {
	startedAt := p.now().UTC()
	p.metrics.ScanStarted(ctx)

	result, err := p.run(ctx, scanID, token, opts, onStatus, startedAt)
	if err != nil {
		p.metrics.ScanFinished(ctx, outcome(err))

		return nil, err
	}
	p.metrics.ScanFinished(ctx, "completed")

	return result, nil
}

func (p *Pipeline) run(ctx context.Context,
	scanID domain.ScanID,
	token domain.IdentityToken,
	opts RunOptions,
	onStatus StatusFunc,
	startedAt time.Time) (*Result, error) {
	adapters, err := p.registry.Resolve(opts.Sources)
	if err != nil {
		return nil, err
	}

	if err := p.notify(ctx, onStatus, domain.ScanStatusDiscovering, 0); err != nil {
		return nil, err
	}

	stageStart := p.now()
	discovered, err := p.scout.WithLimit(opts.ConcurrencyLimit).Discover(ctx, token, adapters, func(done, total int) {
		// progress callbacks are advisory, a failed update never stops discovery
		_ = p.notify(ctx, onStatus, domain.ScanStatusDiscovering,
			done*progressDiscoveryDone/total)
	})
	p.metrics.StageDuration(ctx, "discovering", p.now().Sub(stageStart))
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "discovery finished",
		zap.Stringer("scanId", scanID),
		zap.Int("candidates", len(discovered.Candidates)),
		zap.Int("sourceFailures", len(discovered.Failures)))

	if err := p.notify(ctx, onStatus, domain.ScanStatusAuditing, progressDiscoveryDone); err != nil {
		return nil, err
	}

	stageStart = p.now()
	report, err := p.auditor.Audit(token, discovered.Candidates, discovered.Failures)
	if err != nil {
		return nil, err
	}
	report.StartedAt = startedAt
	report.FinishedAt = p.now().UTC()
	p.metrics.StageDuration(ctx, "auditing", p.now().Sub(stageStart))

	if err := p.notify(ctx, onStatus, domain.ScanStatusGeneratingNotices, progressAuditDone); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, serrors.Wrap(serrors.ErrCancelled, err, "scan cancelled")
	}

	gh := p.ghost
	if opts.SeverityThreshold != nil {
		gh = gh.WithThreshold(*opts.SeverityThreshold)
	}
	stageStart = p.now()
	notices := gh.Generate(ctx, scanID, &report)
	p.metrics.StageDuration(ctx, "generating_notices", p.now().Sub(stageStart))
	logger.Info(ctx, "notices drafted",
		zap.Stringer("scanId", scanID),
		zap.Int("notices", len(notices)))

	return &Result{Report: report, Notices: notices}, nil
}

func (p *Pipeline) notify(ctx context.Context,
	onStatus StatusFunc,
	status domain.ScanStatus,
	progress int) error {
	if onStatus == nil {
		return nil
	}

	return onStatus(ctx, status, progress)
}

func outcome(err error) string {
	if errors.Is(err, serrors.ErrCancelled) {
		return "cancelled"
	}

	return "failed"
}
