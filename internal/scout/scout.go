// Package scout implements the discovery stage: it fans an identity token
// out to all configured source adapters under a concurrency cap, collects
// raw candidates, normalizes them into the common schema and deduplicates
// same-source hits. Partial source failure is a first-class successful
// outcome, never an error.
package scout

import (
	"context"
	"errors"
	"sync"
	"time"

	"ghostscan/pkg/domain"
	"ghostscan/pkg/logger"
	"ghostscan/pkg/metrics"
	"ghostscan/pkg/serrors"
	"ghostscan/pkg/source"

	"go.uber.org/zap"
)

// Options configure discovery behavior.
type Options struct {
	// ConcurrencyLimit caps how many adapter probes run at once. Values
	// below 1 are treated as 1.
	ConcurrencyLimit int
	// PerSourceTimeout bounds each probe unless the source policy sets its
	// own timeout.
	PerSourceTimeout time.Duration
}

// Result is the outcome of one discovery run.
type Result struct {
	// Candidates are the normalized, same-source-deduplicated candidates.
	Candidates []domain.NormalizedCandidate
	// Failures lists sources that errored or timed out. The two slices
	// together cover every adapter probed.
	Failures []domain.SourceFailure
}

// ProgressFunc is invoked after each adapter resolves, with the number of
// resolved adapters and the total.
type ProgressFunc func(done, total int)

// Scout runs discovery against a source registry.
type Scout struct {
	registry *source.Registry
	options  Options
	metrics  *metrics.Pipeline
}

// New creates a Scout. metrics may be nil.
func New(registry *source.Registry, options Options, m *metrics.Pipeline) *Scout {
	if options.ConcurrencyLimit < 1 {
		options.ConcurrencyLimit = 1
	}
	if options.PerSourceTimeout <= 0 {
		options.PerSourceTimeout = 10 * time.Second
	}

	return &Scout{registry: registry, options: options, metrics: m}
}

// WithLimit returns a Scout sharing this one's registry and metrics but
// capped at the given concurrency. Non-positive limits return the receiver
// unchanged.
func (s *Scout) WithLimit(limit int) *Scout {
	if limit <= 0 {
		return s
	}
	options := s.options
	options.ConcurrencyLimit = limit

	return &Scout{registry: s.registry, options: options, metrics: s.metrics}
}

// probeOutcome carries one adapter's result back to the collector.
type probeOutcome struct {
	adapter source.Adapter
	raws    []domain.RawCandidate
	err     error
}

// Discover probes all given adapters concurrently and returns the
// normalized candidates plus per-source failures. It fails only when the
// adapter set is empty or the context is cancelled; individual source
// errors are recorded and the scan proceeds with partial data.
func (s *Scout) Discover(ctx context.Context,
	token domain.IdentityToken,
	adapters []source.Adapter,
	progress ProgressFunc) (Result, error) {
	if len(adapters) == 0 {
		return Result{}, serrors.KindOnly(serrors.ErrEmptyAdapterSet)
	}

	sem := make(chan struct{}, s.options.ConcurrencyLimit)
	outcomes := make(chan probeOutcome, len(adapters))

	var wg sync.WaitGroup
	for _, adapter := range adapters {
		wg.Add(1)
		go func(a source.Adapter) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				outcomes <- probeOutcome{adapter: a, err: ctx.Err()}

				return
			}

			timeout := s.options.PerSourceTimeout
			if policy := s.registry.Policy(a.Name()); policy.Timeout > 0 {
				timeout = policy.Timeout
			}
			probeCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			raws, err := a.Probe(probeCtx, token)
			if err != nil && errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
				err = serrors.Wrap(serrors.ErrSourceTimeout, err, "source %s timed out", a.Name())
			}
			outcomes <- probeOutcome{adapter: a, raws: raws, err: err}
		}(adapter)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	collected := make(map[string]probeOutcome, len(adapters))
	done := 0
	for outcome := range outcomes {
		collected[outcome.adapter.Name()] = outcome
		done++
		if progress != nil {
			progress(done, len(adapters))
		}
	}

	// a cancelled scan discards everything collected so far: the score must
	// stay a pure function of the full candidate set
	if err := ctx.Err(); err != nil {
		return Result{}, serrors.Wrap(serrors.ErrCancelled, err, "discovery cancelled")
	}

	return s.normalize(ctx, adapters, collected), nil
}

// normalize maps raw candidates through their adapter's normalization rule
// and merges same-source duplicates. Iteration follows the adapter slice
// order, so the result order is independent of probe completion order.
func (s *Scout) normalize(ctx context.Context,
	adapters []source.Adapter,
	collected map[string]probeOutcome) Result {
	var res Result
	seen := make(map[dedupKey]int)

	for _, adapter := range adapters {
		outcome := collected[adapter.Name()]
		if outcome.err != nil {
			logger.Warn(ctx, "source probe failed",
				zap.String("source", adapter.Name()),
				zap.Error(outcome.err))
			s.metrics.SourceFailure(ctx, adapter.Name())
			res.Failures = append(res.Failures, domain.SourceFailure{
				Source: adapter.Name(),
				Reason: failureReason(outcome.err),
			})

			continue
		}

		for _, raw := range outcome.raws {
			normalized, err := adapter.Normalize(raw)
			if err != nil {
				logger.Warn(ctx, "could not normalize candidate",
					zap.String("source", adapter.Name()),
					zap.Error(err))

				continue
			}

			key := dedupKey{source: normalized.Source, handle: normalized.Handle}
			if idx, ok := seen[key]; ok {
				// same source re-reported the same handle: keep one
				// candidate with the stronger confidence
				if normalized.Confidence > res.Candidates[idx].Confidence {
					res.Candidates[idx] = normalized
				}

				continue
			}
			seen[key] = len(res.Candidates)
			res.Candidates = append(res.Candidates, normalized)
		}
	}

	return res
}

// dedupKey identifies same-source duplicates. Cross-source duplicates are
// left alone here; linking those requires the auditor's semantic judgment.
type dedupKey struct {
	source string
	handle string
}

// failureReason maps a probe error to the stable reason string recorded in
// the report.
func failureReason(err error) string {
	switch {
	case errors.Is(err, serrors.ErrSourceRateLimited):
		return "rate limited"
	case errors.Is(err, serrors.ErrSourceTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, serrors.ErrSourceUnavailable):
		return "unavailable"
	}

	return err.Error()
}
