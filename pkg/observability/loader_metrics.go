package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricMessagesSent      = "listkit.queue.messages.sent.total"
	metricMessagesDiscarded = "listkit.queue.messages.discarded.total"
	metricTilesLoaded       = "listkit.tiles.loaded.total"
	metricTilesRecycled     = "listkit.tiles.recycled.total"
	metricTilesCached       = "listkit.tiles.cached"

	attrQueue   = "queue"
	attrMessage = "message"
)

// LoaderMetrics instruments the windowed loader: messages crossing between the
// foreground and background queues, and the tiles they carry.
type LoaderMetrics struct {
	sent      metric.Int64Counter
	discarded metric.Int64Counter
	loaded    metric.Int64Counter
	recycled  metric.Int64Counter
	cached    metric.Int64UpDownCounter
}

// NewLoaderMetrics creates loader instruments on mt.
func NewLoaderMetrics(mt metric.Meter) (*LoaderMetrics, error) {
	b := newMetricBuilder(mt)

	lm := &LoaderMetrics{
		sent:      b.counter(metricMessagesSent, "Messages posted, by queue and message", "{message}"),
		discarded: b.counter(metricMessagesDiscarded, "Pending messages dropped by a newer request", "{message}"),
		loaded:    b.counter(metricTilesLoaded, "Tiles filled by the data source", "{tile}"),
		recycled:  b.counter(metricTilesRecycled, "Tiles handed back for reuse", "{tile}"),
		cached:    b.upDownCounter(metricTilesCached, "Tiles currently held by the foreground cache", "{tile}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return lm, nil
}

// MessageSent counts a message posted to queue. Safe on a nil receiver.
func (lm *LoaderMetrics) MessageSent(ctx context.Context, queue, message string) {
	if lm == nil {
		return
	}

	lm.sent.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrQueue, queue),
		attribute.String(attrMessage, message),
	))
}

// MessagesDiscarded counts n pending messages removed from queue.
func (lm *LoaderMetrics) MessagesDiscarded(ctx context.Context, queue string, n int) {
	if lm == nil || n == 0 {
		return
	}

	lm.discarded.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrQueue, queue)))
}

// TileLoaded counts a filled tile.
func (lm *LoaderMetrics) TileLoaded(ctx context.Context) {
	if lm == nil {
		return
	}

	lm.loaded.Add(ctx, 1)
}

// TileRecycled counts a tile handed back to the data source.
func (lm *LoaderMetrics) TileRecycled(ctx context.Context) {
	if lm == nil {
		return
	}

	lm.recycled.Add(ctx, 1)
}

// CachedTiles adjusts the foreground cache size by delta.
func (lm *LoaderMetrics) CachedTiles(ctx context.Context, delta int) {
	if lm == nil || delta == 0 {
		return
	}

	lm.cached.Add(ctx, int64(delta))
}
