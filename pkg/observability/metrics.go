package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricSolvesTotal   = "spanplan.solves.total"
	metricSolveDuration = "spanplan.solve.duration.seconds"
	metricChunksSwept   = "spanplan.chunks.swept"
	metricFrontierNodes = "spanplan.frontier.nodes"

	attrStore  = "store"
	attrStatus = "status"

	// StatusFeasible and StatusInfeasible label solve outcomes.
	StatusFeasible   = "feasible"
	StatusInfeasible = "infeasible"
)

// durationBucketBoundaries covers 100us to 60s: sweeps range from a handful
// of chunks to millions.
var durationBucketBoundaries = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60,
}

// SweepMetrics holds the OTel instruments for the planner sweep.
type SweepMetrics struct {
	solvesTotal   metric.Int64Counter
	solveDuration metric.Float64Histogram
	chunksSwept   metric.Int64Counter
	frontierNodes metric.Int64Histogram
}

// NewSweepMetrics creates the sweep instruments from the given meter.
func NewSweepMetrics(mt metric.Meter) (*SweepMetrics, error) {
	b := newMetricBuilder(mt)

	sm := &SweepMetrics{
		solvesTotal:   b.counter(metricSolvesTotal, "Total number of solve invocations", "{solve}"),
		solveDuration: b.histogram(metricSolveDuration, "Solve duration in seconds", "s", durationBucketBoundaries...),
		chunksSwept:   b.counter(metricChunksSwept, "Total number of chunks merged into the frontier", "{chunk}"),
		frontierNodes: b.int64Histogram(metricFrontierNodes, "Live frontier nodes after a solve", "{node}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return sm, nil
}

// RecordSolve records one completed solve with its store kind, outcome, and
// sweep statistics.
func (sm *SweepMetrics) RecordSolve(
	ctx context.Context, store, status string, duration time.Duration, chunks, frontier int,
) {
	attrs := metric.WithAttributes(
		attribute.String(attrStore, store),
		attribute.String(attrStatus, status),
	)

	sm.solvesTotal.Add(ctx, 1, attrs)
	sm.solveDuration.Record(ctx, duration.Seconds(), attrs)
	sm.chunksSwept.Add(ctx, int64(chunks), attrs)
	sm.frontierNodes.Record(ctx, int64(frontier), attrs)
}

// metricBuilder accumulates OTel instrument creation errors,
// enabling batch construction with a single error check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

// newMetricBuilder creates a builder for the given meter.
func newMetricBuilder(mt metric.Meter) *metricBuilder {
	return &metricBuilder{meter: mt, err: nil}
}

// counter creates an Int64Counter instrument.
func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

// histogram creates a Float64Histogram instrument with optional explicit bucket boundaries.
func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	}

	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}

	h, err := b.meter.Float64Histogram(name, opts...)
	b.setErr(name, err)

	return h
}

// int64Histogram creates an Int64Histogram instrument.
func (b *metricBuilder) int64Histogram(name, desc, unit string) metric.Int64Histogram {
	h, err := b.meter.Int64Histogram(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return h
}

// setErr records the first instrument creation error.
func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}
