package listupdate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/listkit/pkg/listupdate"
)

func newBatching() (*listupdate.BatchingCallback, *listupdate.Recorder) {
	rec := &listupdate.Recorder{}

	return listupdate.NewBatchingCallback(rec), rec
}

func TestBatching_AdjacentInsertsMerge(t *testing.T) {
	t.Parallel()

	batching, rec := newBatching()

	batching.OnInserted(2, 3)
	batching.OnInserted(3, 2)
	assert.Empty(t, rec.Ops, "nothing is forwarded before the flush")

	batching.DispatchLastEvent()
	assert.Equal(t, []listupdate.Op{listupdate.Insert(2, 5)}, rec.Ops)
}

func TestBatching_InsertBeforePendingMerges(t *testing.T) {
	t.Parallel()

	batching, rec := newBatching()

	batching.OnInserted(5, 1)
	batching.OnInserted(5, 1)
	batching.OnInserted(6, 1)
	batching.DispatchLastEvent()

	assert.Equal(t, []listupdate.Op{listupdate.Insert(5, 3)}, rec.Ops)
}

func TestBatching_DisjointInsertsFlush(t *testing.T) {
	t.Parallel()

	batching, rec := newBatching()

	batching.OnInserted(0, 1)
	batching.OnInserted(4, 1)
	batching.DispatchLastEvent()

	assert.Equal(t, []listupdate.Op{listupdate.Insert(0, 1), listupdate.Insert(4, 1)}, rec.Ops)
}

func TestBatching_BackwardRemovesMerge(t *testing.T) {
	t.Parallel()

	batching, rec := newBatching()

	// DiffUtil removes from the end, one by one.
	batching.OnRemoved(4, 1)
	batching.OnRemoved(3, 1)
	batching.OnRemoved(2, 1)
	batching.DispatchLastEvent()

	assert.Equal(t, []listupdate.Op{listupdate.Remove(2, 3)}, rec.Ops)
}

func TestBatching_RepeatedRemoveAtSamePositionMerges(t *testing.T) {
	t.Parallel()

	batching, rec := newBatching()

	batching.OnRemoved(1, 1)
	batching.OnRemoved(1, 2)
	batching.DispatchLastEvent()

	assert.Equal(t, []listupdate.Op{listupdate.Remove(1, 3)}, rec.Ops)
}

func TestBatching_RemoveAfterPendingFlushes(t *testing.T) {
	t.Parallel()

	batching, rec := newBatching()

	batching.OnRemoved(1, 1)
	batching.OnRemoved(3, 1)
	batching.DispatchLastEvent()

	assert.Equal(t, []listupdate.Op{listupdate.Remove(1, 1), listupdate.Remove(3, 1)}, rec.Ops)
}

func TestBatching_ChangesWithSamePayloadMerge(t *testing.T) {
	t.Parallel()

	batching, rec := newBatching()

	batching.OnChanged(3, 1, "p")
	batching.OnChanged(2, 1, "p")
	batching.OnChanged(4, 2, "p")
	batching.DispatchLastEvent()

	assert.Equal(t, []listupdate.Op{listupdate.Change(2, 4, "p")}, rec.Ops)
}

func TestBatching_ChangesWithDifferentPayloadFlush(t *testing.T) {
	t.Parallel()

	batching, rec := newBatching()

	batching.OnChanged(3, 1, "a")
	batching.OnChanged(2, 1, "b")
	batching.DispatchLastEvent()

	assert.Equal(t, []listupdate.Op{listupdate.Change(3, 1, "a"), listupdate.Change(2, 1, "b")}, rec.Ops)
}

func TestBatching_SlicePayloadComparesByReference(t *testing.T) {
	t.Parallel()

	batching, rec := newBatching()

	shared := []string{"x"}

	batching.OnChanged(0, 1, shared)
	batching.OnChanged(1, 1, shared)
	batching.OnChanged(2, 1, []string{"x"})
	batching.DispatchLastEvent()

	require.Len(t, rec.Ops, 2)
	assert.Equal(t, 0, rec.Ops[0].Position)
	assert.Equal(t, 2, rec.Ops[0].Count)
	assert.Equal(t, 2, rec.Ops[1].Position)
}

func TestBatching_ChangeGapFlushes(t *testing.T) {
	t.Parallel()

	batching, rec := newBatching()

	batching.OnChanged(0, 1, nil)
	batching.OnChanged(5, 1, nil)
	batching.DispatchLastEvent()

	assert.Equal(t, []listupdate.Op{listupdate.Change(0, 1, nil), listupdate.Change(5, 1, nil)}, rec.Ops)
}

func TestBatching_MoveIsNeverMerged(t *testing.T) {
	t.Parallel()

	batching, rec := newBatching()

	batching.OnInserted(0, 1)
	batching.OnMoved(3, 1)
	batching.OnMoved(4, 2)
	batching.DispatchLastEvent()

	assert.Equal(t, []listupdate.Op{
		listupdate.Insert(0, 1),
		listupdate.Move(3, 1),
		listupdate.Move(4, 2),
	}, rec.Ops)
}

func TestBatching_DispatchLastEventTwiceIsNoop(t *testing.T) {
	t.Parallel()

	batching, rec := newBatching()

	batching.OnRemoved(0, 2)
	batching.DispatchLastEvent()
	batching.DispatchLastEvent()

	assert.Len(t, rec.Ops, 1)
}

func TestWrap_ReusesBatchingCallback(t *testing.T) {
	t.Parallel()

	batching, _ := newBatching()

	assert.Same(t, batching, listupdate.Wrap(batching))
	assert.NotNil(t, listupdate.Wrap(&listupdate.Recorder{}))
}

func TestSamePayload(t *testing.T) {
	t.Parallel()

	m := map[string]int{"a": 1}

	assert.True(t, listupdate.SamePayload(nil, nil))
	assert.False(t, listupdate.SamePayload(nil, 1))
	assert.True(t, listupdate.SamePayload(1, 1))
	assert.False(t, listupdate.SamePayload(1, int64(1)))
	assert.True(t, listupdate.SamePayload(m, m))
	assert.False(t, listupdate.SamePayload(m, map[string]int{"a": 1}))

	type fieldPayload struct{ Fields any }

	sliced := fieldPayload{Fields: []string{"title"}}
	assert.False(t, listupdate.SamePayload(sliced, sliced))
	assert.True(t, listupdate.SamePayload(fieldPayload{Fields: "title"}, fieldPayload{Fields: "title"}))
}

func TestBatching_ChangesWithUncomparableFieldsFlush(t *testing.T) {
	t.Parallel()

	type fieldPayload struct{ Fields any }

	batching, rec := newBatching()

	first := fieldPayload{Fields: []string{"title"}}
	second := fieldPayload{Fields: []string{"title"}}

	require.NotPanics(t, func() {
		batching.OnChanged(0, 1, first)
		batching.OnChanged(1, 1, second)
		batching.DispatchLastEvent()
	})

	assert.Equal(t, []listupdate.Op{
		listupdate.Change(0, 1, first),
		listupdate.Change(1, 1, second),
	}, rec.Ops)
}
