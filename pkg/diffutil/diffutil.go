// Package diffutil computes the edit script that turns one list into another.
//
// It runs Eugene W. Myers's O(N+D^2) difference algorithm in linear space
// (divide and conquer around the middle snake) over a pluggable Callback, then
// optionally runs a second pass that pairs removed and inserted items into
// moves. The result is dispatched as a stream of structural notifications to a
// listupdate.Callback.
//
// The move pass is O(N^2) in the number of added and removed items; disable it
// for very large, heavily reshuffled lists.
package diffutil

import (
	"cmp"
	"slices"
)

// Callback is what Calculate needs to know about the two lists being diffed.
type Callback interface {
	// OldListSize returns the size of the old list.
	OldListSize() int
	// NewListSize returns the size of the new list.
	NewListSize() int
	// AreItemsTheSame reports whether two positions hold the same item,
	// usually by comparing stable IDs.
	AreItemsTheSame(oldPos, newPos int) bool
	// AreContentsTheSame reports whether two items have the same visual
	// representation. It is only called when AreItemsTheSame returned true.
	AreContentsTheSame(oldPos, newPos int) bool
	// ChangePayload returns an optional payload describing the change between
	// two items. It is only called when AreItemsTheSame returned true and
	// AreContentsTheSame returned false.
	ChangePayload(oldPos, newPos int) any
}

// Calculate computes the difference between the two lists described by cb.
// With detectMoves set, removed and inserted items that are the same item are
// reported as moves.
func Calculate(cb Callback, detectMoves bool) *Result {
	oldSize := cb.OldListSize()
	newSize := cb.NewListSize()

	diagonals := make([]diagonal, 0)
	stack := []span{{oldStart: 0, oldEnd: oldSize, newStart: 0, newEnd: newSize}}

	maxD := (oldSize + newSize + 1) / 2
	forward := newCenteredArray(maxD*2 + 1)
	backward := newCenteredArray(maxD*2 + 1)

	for len(stack) > 0 {
		rng := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		snk, ok := midPoint(rng, cb, forward, backward)
		if !ok {
			continue
		}

		if snk.diagonalSize() > 0 {
			diagonals = append(diagonals, snk.toDiagonal())
		}

		stack = append(stack,
			span{oldStart: rng.oldStart, oldEnd: snk.startX, newStart: rng.newStart, newEnd: snk.startY},
			span{oldStart: snk.endX, oldEnd: rng.oldEnd, newStart: snk.endY, newEnd: rng.newEnd},
		)
	}

	slices.SortFunc(diagonals, func(a, b diagonal) int { return cmp.Compare(a.x, b.x) })

	return newResult(cb, diagonals, detectMoves)
}

// span is a sub-problem: old[oldStart:oldEnd] against new[newStart:newEnd].
type span struct {
	oldStart, oldEnd int
	newStart, newEnd int
}

func (s span) oldSize() int { return s.oldEnd - s.oldStart }
func (s span) newSize() int { return s.newEnd - s.newStart }

// diagonal is a run of size matching items starting at old x / new y.
type diagonal struct {
	x, y, size int
}

func (d diagonal) endX() int { return d.x + d.size }
func (d diagonal) endY() int { return d.y + d.size }

// snake is one step of the Myers walk: an optional single insertion or
// removal followed by a diagonal.
type snake struct {
	startX, startY int
	endX, endY     int
	reverse        bool
}

func (s snake) hasAdditionOrRemoval() bool { return s.endY-s.startY != s.endX-s.startX }

func (s snake) isAddition() bool { return s.endY-s.startY > s.endX-s.startX }

func (s snake) diagonalSize() int { return min(s.endX-s.startX, s.endY-s.startY) }

func (s snake) toDiagonal() diagonal {
	if !s.hasAdditionOrRemoval() {
		return diagonal{x: s.startX, y: s.startY, size: s.endX - s.startX}
	}

	if s.reverse {
		// The edit sits at the end of a reverse snake.
		return diagonal{x: s.startX, y: s.startY, size: s.diagonalSize()}
	}

	if s.isAddition() {
		return diagonal{x: s.startX, y: s.startY + 1, size: s.diagonalSize()}
	}

	return diagonal{x: s.startX + 1, y: s.startY, size: s.diagonalSize()}
}

// centeredArray is an int slice addressable by negative indices.
type centeredArray struct {
	data []int
	mid  int
}

func newCenteredArray(size int) *centeredArray {
	return &centeredArray{data: make([]int, size), mid: size / 2}
}

func (a *centeredArray) get(idx int) int { return a.data[idx+a.mid] }

func (a *centeredArray) set(idx, value int) { a.data[idx+a.mid] = value }

func midPoint(rng span, cb Callback, forward, backward *centeredArray) (snake, bool) {
	if rng.oldSize() < 1 || rng.newSize() < 1 {
		return snake{}, false
	}

	maxD := (rng.oldSize() + rng.newSize() + 1) / 2
	forward.set(1, rng.oldStart)
	backward.set(1, rng.oldEnd)

	for d := range maxD {
		if snk, ok := forwardStep(rng, cb, forward, backward, d); ok {
			return snk, true
		}

		if snk, ok := backwardStep(rng, cb, forward, backward, d); ok {
			return snk, true
		}
	}

	return snake{}, false
}

func forwardStep(rng span, cb Callback, forward, backward *centeredArray, d int) (snake, bool) {
	delta := rng.oldSize() - rng.newSize()
	checkForSnake := delta%2 != 0

	for k := -d; k <= d; k += 2 {
		var startX, x int

		// Pick the better of moving down (insertion) or right (removal).
		if k == -d || (k != d && forward.get(k+1) > forward.get(k-1)) {
			startX = forward.get(k + 1)
			x = startX
		} else {
			startX = forward.get(k - 1)
			x = startX + 1
		}

		y := rng.newStart + (x - rng.oldStart) - k

		startY := y
		if d != 0 && x == startX {
			startY = y - 1
		}

		for x < rng.oldEnd && y < rng.newEnd && cb.AreItemsTheSame(x, y) {
			x++
			y++
		}

		forward.set(k, x)

		if checkForSnake {
			backwardK := delta - k
			if backwardK >= -d+1 && backwardK <= d-1 && backward.get(backwardK) <= x {
				return snake{startX: startX, startY: startY, endX: x, endY: y}, true
			}
		}
	}

	return snake{}, false
}

func backwardStep(rng span, cb Callback, forward, backward *centeredArray, d int) (snake, bool) {
	delta := rng.oldSize() - rng.newSize()
	checkForSnake := delta%2 == 0

	for k := -d; k <= d; k += 2 {
		var startX, x int

		if k == -d || (k != d && backward.get(k+1) < backward.get(k-1)) {
			startX = backward.get(k + 1)
			x = startX
		} else {
			startX = backward.get(k - 1)
			x = startX - 1
		}

		y := rng.newEnd - ((rng.oldEnd - x) - k)

		startY := y
		if d != 0 && x == startX {
			startY = y + 1
		}

		for x > rng.oldStart && y > rng.newStart && cb.AreItemsTheSame(x-1, y-1) {
			x--
			y--
		}

		backward.set(k, x)

		if checkForSnake {
			forwardK := delta - k
			if forwardK >= -d && forwardK <= d && forward.get(forwardK) >= x {
				return snake{startX: x, startY: y, endX: startX, endY: startY, reverse: true}, true
			}
		}
	}

	return snake{}, false
}
