package asynclist

import (
	"context"
	"slices"

	"github.com/Sumatoshi-tech/listkit/pkg/observability"
	"github.com/Sumatoshi-tech/listkit/pkg/threadutil"
	"github.com/Sumatoshi-tech/listkit/pkg/tile"
)

// backgroundWorker is the background side of the loader. The background proxy
// runs its methods one at a time.
type backgroundWorker[T any] struct {
	tileSize int
	data     DataCallback[T]
	pool     *tile.Pool[T]
	metrics  *observability.LoaderMetrics

	main threadutil.MainThreadCallback[T]
	self threadutil.BackgroundCallback[T]

	generation int
	itemCount  int
	loaded     []int // sorted starts of tiles sent to the main side

	firstRequiredTileStart int
	lastRequiredTileStart  int
}

func (w *backgroundWorker[T]) Refresh(generation int) {
	w.generation = generation
	w.loaded = w.loaded[:0]
	w.itemCount = w.data.RefreshData()
	w.main.UpdateItemCount(w.generation, w.itemCount)
}

func (w *backgroundWorker[T]) UpdateRange(rangeStart, rangeEnd, extRangeStart, extRangeEnd, scrollHint int) {
	// A range queued before a refresh may lie past the new end of the data.
	if rangeStart > rangeEnd || rangeStart >= w.itemCount {
		return
	}

	rangeEnd = min(rangeEnd, w.itemCount-1)
	extRangeStart = max(extRangeStart, 0)
	extRangeEnd = min(extRangeEnd, w.itemCount-1)

	firstVisibleTileStart := w.tileStart(rangeStart)
	lastVisibleTileStart := w.tileStart(rangeEnd)
	w.firstRequiredTileStart = w.tileStart(extRangeStart)
	w.lastRequiredTileStart = w.tileStart(extRangeEnd)

	// Pending loads were discarded with this message; request the required
	// tiles again, visible ones first and nearest first.
	if ScrollHint(scrollHint) == ScrollDescending {
		w.requestTiles(w.firstRequiredTileStart, lastVisibleTileStart, scrollHint, true)
		w.requestTiles(lastVisibleTileStart+w.tileSize, w.lastRequiredTileStart, scrollHint, false)
	} else {
		w.requestTiles(firstVisibleTileStart, w.lastRequiredTileStart, scrollHint, false)
		w.requestTiles(w.firstRequiredTileStart, firstVisibleTileStart-w.tileSize, scrollHint, true)
	}
}

func (w *backgroundWorker[T]) requestTiles(firstTileStart, lastTileStart, scrollHint int, backwards bool) {
	for start := firstTileStart; start <= lastTileStart; start += w.tileSize {
		tileStart := start
		if backwards {
			tileStart = lastTileStart + firstTileStart - start
		}

		w.self.LoadTile(tileStart, scrollHint)
	}
}

func (w *backgroundWorker[T]) LoadTile(position, scrollHint int) {
	if position < 0 || position >= w.itemCount {
		return
	}

	if _, found := slices.BinarySearch(w.loaded, position); found {
		return
	}

	t := w.pool.Get()
	t.StartPosition = position
	t.ItemCount = min(w.tileSize, w.itemCount-position)

	w.data.FillData(t.Items[:t.ItemCount], position)
	w.metrics.TileLoaded(context.Background())
	w.flushTileCache(ScrollHint(scrollHint))
	w.addTile(t)
}

func (w *backgroundWorker[T]) RecycleTile(t *tile.Tile[T]) {
	w.data.RecycleData(t.Loaded())
	w.metrics.TileRecycled(context.Background())
	w.pool.Put(t)
}

func (w *backgroundWorker[T]) addTile(t *tile.Tile[T]) {
	idx, _ := slices.BinarySearch(w.loaded, t.StartPosition)
	w.loaded = slices.Insert(w.loaded, idx, t.StartPosition)
	w.main.AddTile(w.generation, t)
}

func (w *backgroundWorker[T]) removeTile(position int) {
	idx, found := slices.BinarySearch(w.loaded, position)
	if found {
		w.loaded = slices.Delete(w.loaded, idx, idx+1)
	}

	w.main.RemoveTile(w.generation, position)
}

// flushTileCache evicts loaded tiles outside the required range, farthest
// side first, until there is room for one more tile.
func (w *backgroundWorker[T]) flushTileCache(hint ScrollHint) {
	limit := w.data.MaxCachedTiles()

	for len(w.loaded) >= limit && len(w.loaded) > 0 {
		firstLoaded := w.loaded[0]
		lastLoaded := w.loaded[len(w.loaded)-1]
		startMargin := w.firstRequiredTileStart - firstLoaded
		endMargin := lastLoaded - w.lastRequiredTileStart

		switch {
		case startMargin > 0 && (startMargin >= endMargin || hint == ScrollAscending):
			w.removeTile(firstLoaded)
		case endMargin > 0 && (startMargin < endMargin || hint == ScrollDescending):
			w.removeTile(lastLoaded)
		default:
			// Everything loaded is still required.
			return
		}
	}
}

func (w *backgroundWorker[T]) tileStart(position int) int {
	return position - position%w.tileSize
}
