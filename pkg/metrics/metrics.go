// Package metrics exposes the OpenTelemetry instruments used by the
// scanning pipeline. The meter provider is backed by the Prometheus
// exporter wired up in the API server.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that
// can be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

// Pipeline bundles the instruments recorded by the scan pipeline.
type Pipeline struct {
	scansStarted   metric.Int64Counter
	scansFinished  metric.Int64Counter
	sourceFailures metric.Int64Counter
	stageSeconds   metric.Float64Histogram
}

// NewPipeline creates the pipeline instruments on the global meter provider.
func NewPipeline() (*Pipeline, error) {
	meter := otel.GetMeterProvider().Meter("ghostscan/pipeline")

	started, err := meter.Int64Counter("scans_started_total",
		metric.WithDescription("Number of scans started"))
	if err != nil {
		return nil, fmt.Errorf("could not create scans_started counter: %w", err)
	}
	finished, err := meter.Int64Counter("scans_finished_total",
		metric.WithDescription("Number of scans finished, by outcome"))
	if err != nil {
		return nil, fmt.Errorf("could not create scans_finished counter: %w", err)
	}
	failures, err := meter.Int64Counter("source_failures_total",
		metric.WithDescription("Number of source probe failures, by source"))
	if err != nil {
		return nil, fmt.Errorf("could not create source_failures counter: %w", err)
	}
	stage, err := meter.Float64Histogram("stage_duration_seconds",
		metric.WithDescription("Duration of one pipeline stage"),
		metric.WithExplicitBucketBoundaries(DefaultBuckets...))
	if err != nil {
		return nil, fmt.Errorf("could not create stage_duration histogram: %w", err)
	}

	return &Pipeline{
		scansStarted:   started,
		scansFinished:  finished,
		sourceFailures: failures,
		stageSeconds:   stage,
	}, nil
}

// ScanStarted records the start of a scan.
func (p *Pipeline) ScanStarted(ctx context.Context) {
	if p == nil {
		return
	}
	p.scansStarted.Add(ctx, 1)
}

// ScanFinished records a finished scan with its terminal outcome.
func (p *Pipeline) ScanFinished(ctx context.Context, outcome string) {
	if p == nil {
		return
	}
	p.scansFinished.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// SourceFailure records a failed source probe.
func (p *Pipeline) SourceFailure(ctx context.Context, source string) {
	if p == nil {
		return
	}
	p.sourceFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// StageDuration records the wall time of one pipeline stage.
func (p *Pipeline) StageDuration(ctx context.Context, stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageSeconds.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}
