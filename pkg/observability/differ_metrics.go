package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricDifferSubmitted  = "listkit.differ.submitted.total"
	metricDifferApplied    = "listkit.differ.applied.total"
	metricDifferSuperseded = "listkit.differ.superseded.total"
	metricDifferDuration   = "listkit.differ.diff.duration.seconds"
	metricDifferItems      = "listkit.differ.diff.items"

	attrPath = "path"

	// PathFull is a submission that ran a background diff.
	PathFull = "diff"
	// PathNoop is a submission of the list already held.
	PathNoop = "noop"
	// PathCleared is a submission of an absent list.
	PathCleared = "cleared"
	// PathFirst is the first list submitted after an absent one.
	PathFirst = "first"
)

// diffBucketBoundaries spans 50us to 5s.
var diffBucketBoundaries = []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// DifferMetrics instruments list submissions of an asynchronous differ.
type DifferMetrics struct {
	submitted  metric.Int64Counter
	applied    metric.Int64Counter
	superseded metric.Int64Counter
	duration   metric.Float64Histogram
	items      metric.Int64Counter
}

// NewDifferMetrics creates differ instruments on mt.
func NewDifferMetrics(mt metric.Meter) (*DifferMetrics, error) {
	b := newMetricBuilder(mt)

	dm := &DifferMetrics{
		submitted:  b.counter(metricDifferSubmitted, "Lists submitted, by path", "{list}"),
		applied:    b.counter(metricDifferApplied, "Diff results applied to the current list", "{list}"),
		superseded: b.counter(metricDifferSuperseded, "Diff results dropped because a newer list was submitted", "{list}"),
		duration:   b.histogram(metricDifferDuration, "Background diff duration in seconds", "s", diffBucketBoundaries...),
		items:      b.counter(metricDifferItems, "Items compared by background diffs", "{item}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return dm, nil
}

// Submitted counts one submission taking path. Safe on a nil receiver.
func (dm *DifferMetrics) Submitted(ctx context.Context, path string) {
	if dm == nil {
		return
	}

	dm.submitted.Add(ctx, 1, metric.WithAttributes(attribute.String(attrPath, path)))
}

// RecordDiff records one finished background diff over oldSize+newSize items.
func (dm *DifferMetrics) RecordDiff(ctx context.Context, duration time.Duration, oldSize, newSize int) {
	if dm == nil {
		return
	}

	dm.duration.Record(ctx, duration.Seconds())
	dm.items.Add(ctx, int64(oldSize+newSize))
}

// Applied counts a diff result that became the current list.
func (dm *DifferMetrics) Applied(ctx context.Context) {
	if dm == nil {
		return
	}

	dm.applied.Add(ctx, 1)
}

// Superseded counts a diff result discarded because a newer list won.
func (dm *DifferMetrics) Superseded(ctx context.Context) {
	if dm == nil {
		return
	}

	dm.superseded.Add(ctx, 1)
}
