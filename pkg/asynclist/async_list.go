// Package asynclist loads a large list in tiles on a background executor and
// serves whatever is loaded to a view on the main executor.
//
// The main side keeps the loaded tiles and answers ItemAt without blocking.
// The background side decides which tiles the visible range needs, fills them
// through a DataCallback and evicts tiles far from the range once more than
// MaxCachedTiles are loaded. Both sides talk only through threadutil proxies;
// every message carries the refresh generation it belongs to and messages
// from an older generation are dropped.
package asynclist

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/Sumatoshi-tech/listkit/pkg/executor"
	"github.com/Sumatoshi-tech/listkit/pkg/observability"
	"github.com/Sumatoshi-tech/listkit/pkg/threadutil"
	"github.com/Sumatoshi-tech/listkit/pkg/tile"
)

// Option configures an AsyncListUtil.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *observability.LoaderMetrics
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the loader instruments.
func WithMetrics(metrics *observability.LoaderMetrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// AsyncListUtil is the main side of the loader. Its methods must be called
// from the main executor's goroutine.
type AsyncListUtil[T any] struct {
	tileSize int
	view     ViewCallback
	logger   *slog.Logger
	metrics  *observability.LoaderMetrics

	tiles      *tile.List[T]
	background threadutil.BackgroundCallback[T]

	prevRange        [2]int
	allowScrollHints bool
	scrollHint       ScrollHint

	itemCount           int
	displayedGeneration int
	requestedGeneration int

	missing map[int]struct{}
}

// New returns a loader of tileSize tiles and starts its first refresh.
func New[T any](
	tileSize int, data DataCallback[T], view ViewCallback,
	main, background executor.Executor, opts ...Option,
) *AsyncListUtil[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	logger := observability.LoggerOrDefault(o.logger)
	util := threadutil.New(main, background, threadutil.WithLogger(logger), threadutil.WithMetrics(o.metrics))

	u := &AsyncListUtil[T]{
		tileSize: tileSize,
		view:     view,
		logger:   logger,
		metrics:  o.metrics,
		tiles:    tile.NewList[T](tileSize),
		missing:  make(map[int]struct{}),
	}

	worker := &backgroundWorker[T]{
		tileSize: tileSize,
		data:     data,
		pool:     tile.NewPool[T](tileSize),
		metrics:  o.metrics,
	}

	mainProxy := threadutil.MainThreadProxy[T](util, (*mainSide[T])(u))
	u.background = threadutil.BackgroundProxy[T](util, worker)
	worker.main = mainProxy
	worker.self = u.background

	u.Refresh()

	return u
}

// ItemCount returns the size of the data set as of the last completed refresh.
func (u *AsyncListUtil[T]) ItemCount() int { return u.itemCount }

// ItemAt returns the item at pos if its tile is loaded. A position that is in
// range but not loaded yet is remembered, and ViewCallback.OnItemLoaded fires
// once it loads. Positions outside [0, ItemCount) are never loaded.
func (u *AsyncListUtil[T]) ItemAt(pos int) (T, bool) {
	if pos < 0 || pos >= u.itemCount {
		var zero T

		return zero, false
	}

	item, ok := u.tiles.ItemAt(pos)
	if !ok && !u.refreshPending() {
		u.missing[pos] = struct{}{}
	}

	return item, ok
}

// OnRangeChanged tells the loader the visible range moved.
func (u *AsyncListUtil[T]) OnRangeChanged() {
	if u.refreshPending() {
		return
	}

	u.updateRange()
	u.allowScrollHints = true
}

// Refresh reloads the data set. Tiles of the old generation stay visible
// until the new item count arrives.
func (u *AsyncListUtil[T]) Refresh() {
	clear(u.missing)
	u.requestedGeneration++
	u.background.Refresh(u.requestedGeneration)
}

func (u *AsyncListUtil[T]) refreshPending() bool {
	return u.requestedGeneration != u.displayedGeneration
}

func (u *AsyncListUtil[T]) updateRange() {
	first, last := u.view.ItemRange()
	if first > last || first < 0 {
		return
	}

	// The view may report a range of the previous generation right after a
	// refresh.
	if last >= u.itemCount {
		return
	}

	switch {
	case !u.allowScrollHints:
		u.scrollHint = ScrollNone
	case first > u.prevRange[1] || u.prevRange[0] > last:
		// Disjoint ranges are a jump, not a scroll.
		u.scrollHint = ScrollNone
	case first < u.prevRange[0]:
		u.scrollHint = ScrollDescending
	case first > u.prevRange[0]:
		u.scrollHint = ScrollAscending
	}

	u.prevRange = [2]int{first, last}

	extFirst, extLast := u.view.ExtendRange(first, last, u.scrollHint)
	extFirst = min(first, max(extFirst, 0))
	extLast = max(last, min(extLast, u.itemCount-1))

	u.background.UpdateRange(first, last, extFirst, extLast, int(u.scrollHint))
}

// mainSide receives background results on the main executor.
type mainSide[T any] AsyncListUtil[T]

func (m *mainSide[T]) util() *AsyncListUtil[T] { return (*AsyncListUtil[T])(m) }

func (m *mainSide[T]) UpdateItemCount(generation, itemCount int) {
	u := m.util()
	if generation != u.requestedGeneration {
		return
	}

	u.itemCount = itemCount
	u.view.OnDataRefresh()
	u.displayedGeneration = u.requestedGeneration
	m.recycleAllTiles()

	// Hints resume after the first real scroll; a size change alone may not
	// move the visible range, so request it now.
	u.allowScrollHints = false
	u.updateRange()
}

func (m *mainSide[T]) AddTile(generation int, t *tile.Tile[T]) {
	u := m.util()
	if generation != u.requestedGeneration {
		u.background.RecycleTile(t)

		return
	}

	duplicate := u.tiles.AddOrReplace(t)
	if duplicate != nil {
		u.logger.Error("duplicate tile", "start", duplicate.StartPosition, "generation", generation)
		u.background.RecycleTile(duplicate)
	} else {
		u.metrics.CachedTiles(context.Background(), 1)
	}

	end := t.StartPosition + t.ItemCount

	for _, pos := range slices.Sorted(maps.Keys(u.missing)) {
		if t.StartPosition <= pos && pos < end {
			delete(u.missing, pos)
			u.view.OnItemLoaded(pos)
		}
	}
}

func (m *mainSide[T]) RemoveTile(generation, position int) {
	u := m.util()
	if generation != u.requestedGeneration {
		return
	}

	removed := u.tiles.RemoveAtPos(position)
	if removed == nil {
		u.logger.Error("tile not found", "start", position, "generation", generation)

		return
	}

	u.metrics.CachedTiles(context.Background(), -1)
	u.background.RecycleTile(removed)
}

func (m *mainSide[T]) recycleAllTiles() {
	u := m.util()

	for idx := range u.tiles.Size() {
		u.background.RecycleTile(u.tiles.AtIndex(idx))
	}

	u.metrics.CachedTiles(context.Background(), -u.tiles.Size())
	u.tiles.Clear()
}
