// Package differ keeps a list consumer in sync with submitted list snapshots.
//
// AsyncListDiffer diffs each new snapshot against the held one on a background
// executor and applies the result on the main executor. A newer submission
// supersedes any diff still in flight: its result is computed to completion
// and then dropped, so only the latest list ever reaches the consumer.
package differ

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/listkit/pkg/diffutil"
	"github.com/Sumatoshi-tech/listkit/pkg/executor"
	"github.com/Sumatoshi-tech/listkit/pkg/listupdate"
	"github.com/Sumatoshi-tech/listkit/pkg/observability"
)

// ListListener observes list swaps. Listeners are compared with == for
// removal, so implementations must be comparable (pointers are).
type ListListener[T any] interface {
	OnCurrentListChanged(previous, current View[T])
}

// Option configures an AsyncListDiffer.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.DifferMetrics
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTracer sets the tracer for background diff spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithMetrics sets the differ instruments.
func WithMetrics(metrics *observability.DifferMetrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// AsyncListDiffer holds the current list of a consumer and turns submitted
// snapshots into structural notifications on updateCallback.
//
// SubmitList must be called from the main executor's goroutine: the fast
// paths dispatch synchronously. CurrentList and the listener methods are safe
// from any goroutine.
type AsyncListDiffer[T any] struct {
	updateCallback listupdate.Callback
	main           executor.Executor
	background     executor.Executor
	ownedPool      *executor.Pool
	items          diffutil.ItemCallback[T]
	detectMoves    bool

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.DifferMetrics

	mu   sync.Mutex
	list []T // nil when absent; never empty

	maxScheduledGeneration atomic.Int64

	listenersMu sync.RWMutex
	listeners   []ListListener[T]
}

// New returns a differ dispatching to updateCallback. Without a background
// executor in cfg it creates a pool of DefaultBackgroundThreads workers,
// released by Close.
func New[T any](updateCallback listupdate.Callback, cfg Config[T], opts ...Option) *AsyncListDiffer[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.tracer == nil {
		o.tracer = nooptrace.NewTracerProvider().Tracer(observability.InstrumentationName)
	}

	main := cfg.MainExecutor
	if main == nil {
		main = executor.Inline{}
	}

	// A Config not made by Build may lack a background executor.
	var owned *executor.Pool

	background := cfg.BackgroundExecutor
	if background == nil {
		owned = executor.NewDefaultBackground()
		background = owned
	}

	return &AsyncListDiffer[T]{
		updateCallback: updateCallback,
		main:           main,
		background:     background,
		ownedPool:      owned,
		items:          cfg.Items,
		detectMoves:    cfg.DetectMoves,
		logger:         observability.LoggerOrDefault(o.logger),
		tracer:         o.tracer,
		metrics:        o.metrics,
	}
}

// Close stops the background pool New created when the Config had no
// background executor. It is a no-op otherwise.
func (d *AsyncListDiffer[T]) Close() {
	if d.ownedPool != nil {
		d.ownedPool.Close()
	}
}

// CurrentList returns the list last applied. Before the first submission it
// is empty.
func (d *AsyncListDiffer[T]) CurrentList() View[T] {
	d.mu.Lock()
	defer d.mu.Unlock()

	return View[T]{items: d.list}
}

// SubmitList is SubmitListContext with a background context.
func (d *AsyncListDiffer[T]) SubmitList(newList []T, commit func()) {
	d.SubmitListContext(context.Background(), newList, commit)
}

// SubmitListContext submits newList as the new current list. An empty or nil
// newList clears the list. commit, if not nil, runs once newList is the
// current list, or immediately when newList is already current. It never runs
// if a later submission supersedes this one first.
//
// The differ keeps newList by reference; the caller must not mutate it
// afterwards. ctx only parents the background diff span.
func (d *AsyncListDiffer[T]) SubmitListContext(ctx context.Context, newList []T, commit func()) {
	generation := d.maxScheduledGeneration.Add(1)

	if len(newList) == 0 {
		newList = nil
	}

	d.mu.Lock()
	oldList := d.list

	if sameList(oldList, newList) {
		d.mu.Unlock()
		d.metrics.Submitted(ctx, observability.PathNoop)

		if commit != nil {
			commit()
		}

		return
	}

	if newList == nil || oldList == nil {
		d.list = newList
		d.mu.Unlock()

		if newList == nil {
			d.metrics.Submitted(ctx, observability.PathCleared)
			d.updateCallback.OnRemoved(0, len(oldList))
		} else {
			d.metrics.Submitted(ctx, observability.PathFirst)
			d.updateCallback.OnInserted(0, len(newList))
		}

		d.onCurrentListChanged(oldList, newList, commit)

		return
	}

	d.mu.Unlock()

	d.metrics.Submitted(ctx, observability.PathFull)
	d.background.Execute(func() {
		result := d.calculate(ctx, oldList, newList, generation)

		d.main.Execute(func() {
			if d.maxScheduledGeneration.Load() != generation {
				d.metrics.Superseded(ctx)
				d.logger.DebugContext(ctx, "diff superseded", "generation", generation)

				return
			}

			d.latchList(ctx, newList, result, commit)
		})
	})
}

func (d *AsyncListDiffer[T]) calculate(ctx context.Context, oldList, newList []T, generation int64) *diffutil.Result {
	ctx, span := d.tracer.Start(ctx, "differ.calculate", trace.WithAttributes(
		attribute.Int("list.old.size", len(oldList)),
		attribute.Int("list.new.size", len(newList)),
		attribute.Int64("differ.generation", generation),
		attribute.Bool("differ.detect_moves", d.detectMoves),
	))
	defer span.End()

	start := time.Now()
	result := diffutil.CalculateLists(oldList, newList, d.items, d.detectMoves)
	d.metrics.RecordDiff(ctx, time.Since(start), len(oldList), len(newList))

	return result
}

func (d *AsyncListDiffer[T]) latchList(ctx context.Context, newList []T, result *diffutil.Result, commit func()) {
	d.mu.Lock()
	previous := d.list
	d.list = newList
	d.mu.Unlock()

	result.DispatchUpdatesTo(d.updateCallback)
	d.metrics.Applied(ctx)
	d.onCurrentListChanged(previous, newList, commit)
}

func (d *AsyncListDiffer[T]) onCurrentListChanged(previous, current []T, commit func()) {
	d.listenersMu.RLock()
	listeners := d.listeners
	d.listenersMu.RUnlock()

	prevView, curView := View[T]{items: previous}, View[T]{items: current}
	for _, listener := range listeners {
		listener.OnCurrentListChanged(prevView, curView)
	}

	if commit != nil {
		commit()
	}
}

// AddListListener registers listener. It is notified after every list swap,
// on the goroutine that performed it.
func (d *AsyncListDiffer[T]) AddListListener(listener ListListener[T]) {
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()

	next := make([]ListListener[T], len(d.listeners), len(d.listeners)+1)
	copy(next, d.listeners)
	d.listeners = append(next, listener)
}

// RemoveListListener unregisters the first listener equal to listener.
func (d *AsyncListDiffer[T]) RemoveListListener(listener ListListener[T]) {
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()

	for idx, registered := range d.listeners {
		if registered != listener {
			continue
		}

		next := make([]ListListener[T], 0, len(d.listeners)-1)
		next = append(next, d.listeners[:idx]...)
		d.listeners = append(next, d.listeners[idx+1:]...)

		return
	}
}

// sameList reports whether a and b are the same list: both absent, or the
// same backing array with the same length.
func sameList[T any](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}

	return len(a) == 0 || &a[0] == &b[0]
}
