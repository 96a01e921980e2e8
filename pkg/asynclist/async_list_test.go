package asynclist_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/listkit/pkg/asynclist"
	"github.com/Sumatoshi-tech/listkit/pkg/executor"
)

const (
	testTileSize  = 10
	testItemCount = 100

	waitTimeout = 2 * time.Second
	waitTick    = time.Millisecond
)

type source struct {
	mu        sync.Mutex
	prefix    string
	count     int
	maxTiles  int
	refreshes int
	recycled  []string
}

func (s *source) RefreshData() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshes++

	return s.count
}

func (s *source) FillData(out []string, startPosition int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx := range out {
		out[idx] = fmt.Sprintf("%sitem-%d", s.prefix, startPosition+idx)
	}
}

func (s *source) RecycleData(items []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(items) > 0 {
		s.recycled = append(s.recycled, items[0])
	}
}

func (s *source) MaxCachedTiles() int { return s.maxTiles }

func (s *source) setPrefix(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefix = prefix
}

func (s *source) recycledFirsts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.recycled...)
}

type view struct {
	first, last int
	refreshes   int
	loaded      []int
	hints       []asynclist.ScrollHint
}

func (v *view) ItemRange() (int, int) { return v.first, v.last }

func (v *view) ExtendRange(first, last int, hint asynclist.ScrollHint) (int, int) {
	v.hints = append(v.hints, hint)

	return asynclist.ExtendRange(first, last, hint)
}

func (v *view) OnDataRefresh() { v.refreshes++ }

func (v *view) OnItemLoaded(position int) { v.loaded = append(v.loaded, position) }

type harness struct {
	main       *executor.Loop
	background *executor.Loop
	data       *source
	view       *view
	list       *asynclist.AsyncListUtil[string]
}

func newHarness(maxTiles int) *harness {
	h := &harness{
		main:       executor.NewLoop(),
		background: executor.NewLoop(),
		data:       &source{count: testItemCount, maxTiles: maxTiles},
		view:       &view{first: 0, last: 9},
	}

	h.list = asynclist.New[string](testTileSize, h.data, h.view, h.main, h.background)

	return h
}

func (h *harness) settle() {
	for h.main.Pending()+h.background.Pending() > 0 {
		h.background.RunPending()
		h.main.RunPending()
	}
}

func (h *harness) scrollTo(first, last int) {
	h.view.first, h.view.last = first, last
	h.list.OnRangeChanged()
	h.settle()
}

func TestAsyncListUtil_LoadsVisibleRange(t *testing.T) {
	t.Parallel()

	h := newHarness(asynclist.DefaultMaxCachedTiles)
	assert.Zero(t, h.list.ItemCount(), "count arrives from the background")

	h.settle()

	require.Equal(t, testItemCount, h.list.ItemCount())
	assert.Equal(t, 1, h.view.refreshes)

	item, ok := h.list.ItemAt(5)
	require.True(t, ok)
	assert.Equal(t, "item-5", item)

	// Half a screen past the visible range is preloaded.
	item, ok = h.list.ItemAt(14)
	require.True(t, ok)
	assert.Equal(t, "item-14", item)

	_, ok = h.list.ItemAt(testItemCount)
	assert.False(t, ok)

	_, ok = h.list.ItemAt(-1)
	assert.False(t, ok)
}

func TestAsyncListUtil_MissingItemReportedWhenLoaded(t *testing.T) {
	t.Parallel()

	h := newHarness(asynclist.DefaultMaxCachedTiles)
	h.settle()

	_, ok := h.list.ItemAt(25)
	require.False(t, ok)

	h.scrollTo(20, 29)

	assert.Equal(t, []int{25}, h.view.loaded)

	item, ok := h.list.ItemAt(25)
	require.True(t, ok)
	assert.Equal(t, "item-25", item)
}

func TestAsyncListUtil_EvictsTilesOutsideRequiredRange(t *testing.T) {
	t.Parallel()

	h := newHarness(3)
	h.settle()
	h.scrollTo(20, 29)

	_, ok := h.list.ItemAt(5)
	assert.False(t, ok, "tile 0 evicted")
	assert.Equal(t, []string{"item-0"}, h.data.recycledFirsts())

	for _, pos := range []int{10, 20, 30} {
		_, ok := h.list.ItemAt(pos)
		assert.True(t, ok, "position %d", pos)
	}
}

func TestAsyncListUtil_ScrollHints(t *testing.T) {
	t.Parallel()

	h := newHarness(asynclist.DefaultMaxCachedTiles)
	h.settle()

	h.scrollTo(5, 14)
	h.scrollTo(8, 17)
	h.scrollTo(6, 15)
	h.scrollTo(60, 69)

	// The first range after a refresh never carries a hint.
	assert.Equal(t, []asynclist.ScrollHint{
		asynclist.ScrollNone,
		asynclist.ScrollNone,
		asynclist.ScrollAscending,
		asynclist.ScrollDescending,
		asynclist.ScrollNone,
	}, h.view.hints)
}

func TestAsyncListUtil_RefreshReplacesGeneration(t *testing.T) {
	t.Parallel()

	h := newHarness(asynclist.DefaultMaxCachedTiles)
	h.settle()

	h.data.setPrefix("v2-")
	h.list.Refresh()

	item, ok := h.list.ItemAt(5)
	require.True(t, ok, "old tiles stay until the new count arrives")
	assert.Equal(t, "item-5", item)

	h.settle()

	item, ok = h.list.ItemAt(5)
	require.True(t, ok)
	assert.Equal(t, "v2-item-5", item)
	assert.Equal(t, 2, h.view.refreshes)
	assert.ElementsMatch(t, []string{"item-0", "item-10"}, h.data.recycledFirsts())
}

func TestAsyncListUtil_StaleTilesRecycled(t *testing.T) {
	t.Parallel()

	h := newHarness(asynclist.DefaultMaxCachedTiles)

	h.background.RunPending() // refresh(1)
	h.main.RunPending()       // item count, range request
	h.background.RunPending() // tiles 0 and 10 for generation 1

	require.Equal(t, 2, h.main.Pending())

	h.data.setPrefix("v2-")
	h.list.Refresh()
	h.main.RunPending()

	_, ok := h.list.ItemAt(5)
	assert.False(t, ok, "generation 1 tiles dropped")

	h.settle()

	assert.ElementsMatch(t, []string{"item-0", "item-10"}, h.data.recycledFirsts())

	item, ok := h.list.ItemAt(5)
	require.True(t, ok)
	assert.Equal(t, "v2-item-5", item)
}

func TestAsyncListUtil_PartialLastTile(t *testing.T) {
	t.Parallel()

	h := newHarness(asynclist.DefaultMaxCachedTiles)
	h.data.count = 95
	h.settle()
	h.scrollTo(85, 94)

	item, ok := h.list.ItemAt(94)
	require.True(t, ok)
	assert.Equal(t, "item-94", item)

	_, ok = h.list.ItemAt(95)
	assert.False(t, ok)
}

func TestAsyncListUtil_BackgroundPool(t *testing.T) {
	t.Parallel()

	main := executor.NewLoop()
	pool := executor.NewPool(executor.DefaultWorkers)

	t.Cleanup(pool.Close)

	data := &source{count: testItemCount, maxTiles: asynclist.DefaultMaxCachedTiles}
	list := asynclist.New[string](testTileSize, data, &view{first: 0, last: 9}, main, pool)

	require.Eventually(t, func() bool {
		main.RunPending()

		item, ok := list.ItemAt(9)

		return ok && item == "item-9"
	}, waitTimeout, waitTick)
}

func TestExtendRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		hint      asynclist.ScrollHint
		wantFirst int
		wantLast  int
	}{
		{asynclist.ScrollNone, 15, 34},
		{asynclist.ScrollDescending, 10, 34},
		{asynclist.ScrollAscending, 15, 39},
	}

	for _, tt := range tests {
		t.Run(tt.hint.String(), func(t *testing.T) {
			t.Parallel()

			first, last := asynclist.ExtendRange(20, 29, tt.hint)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantLast, last)
		})
	}
}

func TestAsyncListUtil_ShrinkingRefreshDropsStaleRequests(t *testing.T) {
	t.Parallel()

	h := newHarness(asynclist.DefaultMaxCachedTiles)
	h.settle()
	h.scrollTo(80, 89)

	// The range request is still queued when the data shrinks.
	h.view.first, h.view.last = 85, 94
	h.list.OnRangeChanged()

	h.data.mu.Lock()
	h.data.count = 10
	h.data.mu.Unlock()

	h.list.Refresh()
	h.settle()

	require.Equal(t, 10, h.list.ItemCount())

	_, ok := h.list.ItemAt(85)
	assert.False(t, ok)

	h.scrollTo(0, 9)

	item, ok := h.list.ItemAt(9)
	require.True(t, ok)
	assert.Equal(t, "item-9", item)
}
