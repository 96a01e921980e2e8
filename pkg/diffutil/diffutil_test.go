package diffutil_test

import (
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/listkit/pkg/diffutil"
	"github.com/Sumatoshi-tech/listkit/pkg/listupdate"
)

const (
	// propertyRounds is the number of random list pairs per property test.
	propertyRounds = 300

	// maxRandomListSize bounds the size of generated lists.
	maxRandomListSize = 40

	// smallAlphabet keeps duplicates frequent in the minimality test.
	smallAlphabet = 6

	// runeBase maps small ints to printable single-rune strings for the oracle.
	runeBase = 0x4E00
)

type message struct {
	ID   int
	Body string
}

func messageItems() diffutil.ItemCallback[message] {
	return diffutil.ItemFuncs[message]{
		Same:     func(a, b message) bool { return a.ID == b.ID },
		Contents: func(a, b message) bool { return a.Body == b.Body },
		Payload:  func(_, b message) any { return b.Body },
	}
}

func dispatch[T any](oldList, newList []T, items diffutil.ItemCallback[T], detectMoves bool) []listupdate.Op {
	rec := &listupdate.Recorder{}
	diffutil.CalculateLists(oldList, newList, items, detectMoves).DispatchUpdatesTo(rec)

	return rec.Ops
}

func TestCalculate_RemoveAndInsert(t *testing.T) {
	t.Parallel()

	oldList := []string{"a", "b", "c"}
	newList := []string{"a", "c", "d"}

	ops := dispatch(oldList, newList, diffutil.Comparable[string](), true)
	require.Len(t, ops, 2)

	slots, err := listupdate.Apply(oldList, ops)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	assert.Equal(t, "a", slots[0].Item)
	assert.Equal(t, "c", slots[1].Item)
	assert.True(t, slots[2].Inserted)
}

func TestCalculate_EmptyLists(t *testing.T) {
	t.Parallel()

	assert.Empty(t, dispatch([]int{}, []int{}, diffutil.Comparable[int](), true))
	assert.Equal(t, []listupdate.Op{listupdate.Insert(0, 3)},
		dispatch([]int{}, []int{1, 2, 3}, diffutil.Comparable[int](), true))
	assert.Equal(t, []listupdate.Op{listupdate.Remove(0, 2)},
		dispatch([]int{1, 2}, []int{}, diffutil.Comparable[int](), true))
}

func TestCalculate_IdenticalListsDispatchNothing(t *testing.T) {
	t.Parallel()

	list := []int{4, 8, 15, 16, 23, 42}

	assert.Empty(t, dispatch(list, list, diffutil.Comparable[int](), true))
}

func TestCalculate_ContentChangeCarriesPayload(t *testing.T) {
	t.Parallel()

	oldList := []message{{1, "hi"}, {2, "typing"}, {3, "bye"}}
	newList := []message{{1, "hi"}, {2, "sent"}, {3, "bye"}}

	ops := dispatch(oldList, newList, messageItems(), true)

	assert.Equal(t, []listupdate.Op{listupdate.Change(1, 1, "sent")}, ops)
}

func TestCalculate_MoveToEnd(t *testing.T) {
	t.Parallel()

	ops := dispatch([]string{"a", "b", "c"}, []string{"b", "c", "a"}, diffutil.Comparable[string](), true)

	assert.Equal(t, []listupdate.Op{listupdate.Move(0, 2)}, ops)
}

func TestCalculate_MoveToFront(t *testing.T) {
	t.Parallel()

	ops := dispatch([]string{"b", "c", "a"}, []string{"a", "b", "c"}, diffutil.Comparable[string](), true)

	assert.Equal(t, []listupdate.Op{listupdate.Move(2, 0)}, ops)
}

func TestCalculate_MovedAndChanged(t *testing.T) {
	t.Parallel()

	oldList := []message{{1, "a"}, {2, "b"}, {3, "c"}}
	newList := []message{{2, "b"}, {3, "c"}, {1, "edited"}}

	ops := dispatch(oldList, newList, messageItems(), true)

	slots, err := listupdate.Apply(oldList, ops)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	assert.Equal(t, 1, slots[2].Item.ID)
	assert.True(t, slots[2].Changed)
	assert.Equal(t, "edited", slots[2].Payload)
	assert.False(t, slots[0].Changed)
}

func TestCalculate_WithoutMovesUsesRemoveInsert(t *testing.T) {
	t.Parallel()

	ops := dispatch([]string{"a", "b", "c"}, []string{"b", "c", "a"}, diffutil.Comparable[string](), false)

	for _, op := range ops {
		assert.NotEqual(t, listupdate.KindMove, op.Kind)
	}

	slots, err := listupdate.Apply([]string{"a", "b", "c"}, ops)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "b", slots[0].Item)
	assert.Equal(t, "c", slots[1].Item)
	assert.True(t, slots[2].Inserted)
}

func TestResult_ConvertPositions(t *testing.T) {
	t.Parallel()

	res := diffutil.CalculateLists([]string{"a", "b", "c"}, []string{"a", "c", "d"}, diffutil.Comparable[string](), true)

	expectOldToNew := []int{0, diffutil.NoPosition, 1}
	for oldPos, want := range expectOldToNew {
		got, err := res.ConvertOldPositionToNew(oldPos)
		require.NoError(t, err)
		assert.Equal(t, want, got, "old position %d", oldPos)
	}

	expectNewToOld := []int{0, 2, diffutil.NoPosition}
	for newPos, want := range expectNewToOld {
		got, err := res.ConvertNewPositionToOld(newPos)
		require.NoError(t, err)
		assert.Equal(t, want, got, "new position %d", newPos)
	}

	_, err := res.ConvertOldPositionToNew(3)
	require.ErrorIs(t, err, diffutil.ErrPositionOutOfRange)

	_, err = res.ConvertNewPositionToOld(-1)
	require.ErrorIs(t, err, diffutil.ErrPositionOutOfRange)
}

// uniqueShuffle returns a random list of distinct ids drawn from [0, 2*maxRandomListSize).
func uniqueShuffle(rng *rand.Rand) []int {
	perm := rng.Perm(maxRandomListSize * 2)

	return perm[:rng.IntN(maxRandomListSize+1)]
}

func TestCalculate_PropertyApplyYieldsNewList(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))

	for round := range propertyRounds {
		oldList := uniqueShuffle(rng)
		newList := uniqueShuffle(rng)
		detectMoves := round%2 == 0

		ops := dispatch(oldList, newList, diffutil.Comparable[int](), detectMoves)

		slots, err := listupdate.Apply(oldList, ops)
		require.NoError(t, err, "round %d", round)
		require.Len(t, slots, len(newList), "round %d", round)

		kept := make(map[int]bool, len(oldList))
		for _, id := range oldList {
			kept[id] = true
		}

		for idx, slot := range slots {
			if slot.Inserted {
				// With moves, only genuinely new items are inserted.
				if detectMoves {
					assert.False(t, kept[newList[idx]], "round %d: %d should have moved", round, newList[idx])
				}

				continue
			}

			assert.Equal(t, newList[idx], slot.Item, "round %d position %d", round, idx)
		}
	}
}

func TestCalculate_PropertyChangesMarkEditedItems(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))

	for round := range propertyRounds {
		oldIDs := uniqueShuffle(rng)
		newIDs := uniqueShuffle(rng)

		oldList := make([]message, len(oldIDs))
		for idx, id := range oldIDs {
			oldList[idx] = message{ID: id, Body: "v1"}
		}

		newList := make([]message, len(newIDs))
		for idx, id := range newIDs {
			body := "v1"
			if rng.IntN(3) == 0 {
				body = "v2"
			}

			newList[idx] = message{ID: id, Body: body}
		}

		slots, err := listupdate.Apply(oldList, dispatch(oldList, newList, messageItems(), true))
		require.NoError(t, err)
		require.Len(t, slots, len(newList))

		for idx, slot := range slots {
			if slot.Inserted {
				continue
			}

			require.Equal(t, newList[idx].ID, slot.Item.ID, "round %d position %d", round, idx)
			assert.Equal(t, newList[idx].Body != "v1", slot.Changed, "round %d position %d", round, idx)
		}
	}
}

func encodeRunes(list []int) string {
	var sb strings.Builder
	for _, v := range list {
		sb.WriteRune(rune(runeBase + v))
	}

	return sb.String()
}

// oracleEditCount counts inserted plus deleted elements in an optimal diff.
func oracleEditCount(oldList, newList []int) int {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	edits := 0

	for _, d := range dmp.DiffMain(encodeRunes(oldList), encodeRunes(newList), false) {
		if d.Type != diffmatchpatch.DiffEqual {
			edits += utf8.RuneCountInString(d.Text)
		}
	}

	return edits
}

func TestCalculate_PropertyMinimalWithoutMoves(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(3, 5))

	for round := range propertyRounds {
		oldList := make([]int, rng.IntN(maxRandomListSize))
		for idx := range oldList {
			oldList[idx] = rng.IntN(smallAlphabet)
		}

		newList := make([]int, rng.IntN(maxRandomListSize))
		for idx := range newList {
			newList[idx] = rng.IntN(smallAlphabet)
		}

		edits := 0

		for _, op := range dispatch(oldList, newList, diffutil.Comparable[int](), false) {
			edits += op.Count
		}

		assert.Equal(t, oracleEditCount(oldList, newList), edits, "round %d: %v -> %v", round, oldList, newList)
	}
}

func recoverError(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
		}
	}()

	fn()

	return nil
}

func TestListCallback_NilItems(t *testing.T) {
	t.Parallel()

	first := &message{ID: 1}
	same := &message{ID: 1}

	cb := &diffutil.ListCallback[*message]{
		Old: []*message{nil, first, nil},
		New: []*message{nil, same, first},
		Items: diffutil.ItemFuncs[*message]{
			Same:     func(a, b *message) bool { return a.ID == b.ID },
			Contents: func(a, b *message) bool { return a.Body == b.Body },
		},
	}

	assert.True(t, cb.AreItemsTheSame(0, 0), "two nils are the same item")
	assert.True(t, cb.AreContentsTheSame(0, 0), "two nils have the same contents")
	assert.True(t, cb.AreItemsTheSame(1, 1))
	assert.False(t, cb.AreItemsTheSame(0, 1), "nil is never the same as an item")

	err := recoverError(func() { cb.AreContentsTheSame(2, 2) })
	require.ErrorIs(t, err, diffutil.ErrContentsForDifferentItems)

	err = recoverError(func() { cb.ChangePayload(0, 0) })
	require.ErrorIs(t, err, diffutil.ErrNilPayload)
}

func TestCalculate_ListsWithNils(t *testing.T) {
	t.Parallel()

	first := &message{ID: 1, Body: "a"}
	second := &message{ID: 2, Body: "b"}

	items := diffutil.ItemFuncs[*message]{
		Same:     func(a, b *message) bool { return a.ID == b.ID },
		Contents: func(a, b *message) bool { return a.Body == b.Body },
	}

	oldList := []*message{first, nil, second}
	newList := []*message{nil, first, second}

	slots, err := listupdate.Apply(oldList, dispatch(oldList, newList, items, true))
	require.NoError(t, err)
	require.Len(t, slots, 3)

	for idx, slot := range slots {
		if !slot.Inserted {
			assert.Same(t, newList[idx], slot.Item)
		}
	}
}
