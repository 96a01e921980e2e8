package diffutil

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/listkit/pkg/listupdate"
)

// NoPosition is returned by the position converters for items that do not
// exist on the other side of the diff.
const NoPosition = -1

// ErrPositionOutOfRange is returned by the position converters.
var ErrPositionOutOfRange = errors.New("position out of range")

// Per-item status flags. The upper bits of a status hold the matching
// position on the other side.
const (
	flagNotChanged      = 1
	flagChanged         = flagNotChanged << 1
	flagMovedChanged    = flagChanged << 1
	flagMovedNotChanged = flagMovedChanged << 1
	flagMoved           = flagMovedChanged | flagMovedNotChanged
	flagOffset          = 4
	flagMask            = (1 << flagOffset) - 1
)

// Result holds the outcome of Calculate. Dispatch it with DispatchUpdatesTo.
type Result struct {
	cb              Callback
	diagonals       []diagonal
	oldItemStatuses []int
	newItemStatuses []int
	oldListSize     int
	newListSize     int
	detectMoves     bool
}

func newResult(cb Callback, diagonals []diagonal, detectMoves bool) *Result {
	res := &Result{
		cb:              cb,
		diagonals:       diagonals,
		oldListSize:     cb.OldListSize(),
		newListSize:     cb.NewListSize(),
		oldItemStatuses: make([]int, cb.OldListSize()),
		newItemStatuses: make([]int, cb.NewListSize()),
		detectMoves:     detectMoves,
	}

	res.addEdgeDiagonals()
	res.findMatchingItems()

	return res
}

// addEdgeDiagonals brackets the diagonals with empty ones at (0,0) and at the
// end so the dispatch walk never needs special cases.
func (r *Result) addEdgeDiagonals() {
	if len(r.diagonals) == 0 || r.diagonals[0].x != 0 || r.diagonals[0].y != 0 {
		r.diagonals = append([]diagonal{{}}, r.diagonals...)
	}

	r.diagonals = append(r.diagonals, diagonal{x: r.oldListSize, y: r.newListSize})
}

func (r *Result) findMatchingItems() {
	for _, diag := range r.diagonals {
		for offset := range diag.size {
			posX := diag.x + offset
			posY := diag.y + offset

			changeFlag := flagChanged
			if r.cb.AreContentsTheSame(posX, posY) {
				changeFlag = flagNotChanged
			}

			r.oldItemStatuses[posX] = (posY << flagOffset) | changeFlag
			r.newItemStatuses[posY] = (posX << flagOffset) | changeFlag
		}
	}

	if r.detectMoves {
		r.findMoveMatches()
	}
}

func (r *Result) findMoveMatches() {
	posX := 0

	for _, diag := range r.diagonals {
		for posX < diag.x {
			if r.oldItemStatuses[posX] == 0 {
				r.findMatchingAddition(posX)
			}

			posX++
		}

		posX = diag.endX()
	}
}

// findMatchingAddition looks for an inserted item that is the same as the
// removed item at posX and links the two as a move.
func (r *Result) findMatchingAddition(posX int) {
	posY := 0

	for _, diag := range r.diagonals {
		for posY < diag.y {
			if r.newItemStatuses[posY] == 0 && r.cb.AreItemsTheSame(posX, posY) {
				changeFlag := flagMovedChanged
				if r.cb.AreContentsTheSame(posX, posY) {
					changeFlag = flagMovedNotChanged
				}

				r.oldItemStatuses[posX] = (posY << flagOffset) | changeFlag
				r.newItemStatuses[posY] = (posX << flagOffset) | changeFlag

				return
			}

			posY++
		}

		posY = diag.endY()
	}
}

// ConvertOldPositionToNew returns where the item at oldPos ended up in the
// new list, or NoPosition if it was removed.
func (r *Result) ConvertOldPositionToNew(oldPos int) (int, error) {
	if oldPos < 0 || oldPos >= r.oldListSize {
		return NoPosition, fmt.Errorf("old position %d, old list size %d: %w",
			oldPos, r.oldListSize, ErrPositionOutOfRange)
	}

	status := r.oldItemStatuses[oldPos]
	if status&flagMask == 0 {
		return NoPosition, nil
	}

	return status >> flagOffset, nil
}

// ConvertNewPositionToOld returns where the item at newPos was in the old
// list, or NoPosition if it was inserted.
func (r *Result) ConvertNewPositionToOld(newPos int) (int, error) {
	if newPos < 0 || newPos >= r.newListSize {
		return NoPosition, fmt.Errorf("new position %d, new list size %d: %w",
			newPos, r.newListSize, ErrPositionOutOfRange)
	}

	status := r.newItemStatuses[newPos]
	if status&flagMask == 0 {
		return NoPosition, nil
	}

	return status >> flagOffset, nil
}

// postponedUpdate is one half of a move whose other half has not been
// reached yet by the backwards dispatch walk.
type postponedUpdate struct {
	posInOwnerList int
	currentPos     int
	removal        bool
}

// DispatchUpdatesTo sends the edit script to cb. Notifications go through a
// BatchingCallback so consecutive inserts, removes and changes arrive merged.
func (r *Result) DispatchUpdatesTo(cb listupdate.Callback) {
	batching := listupdate.Wrap(cb)

	currentListSize := r.oldListSize
	postponed := make([]*postponedUpdate, 0)

	posX := r.oldListSize
	posY := r.newListSize

	// Walk backwards so earlier positions stay valid while we emit edits.
	for diagIdx := len(r.diagonals) - 1; diagIdx >= 0; diagIdx-- {
		diag := r.diagonals[diagIdx]
		endX := diag.endX()
		endY := diag.endY()

		for posX > endX {
			posX--

			status := r.oldItemStatuses[posX]
			if status&flagMoved == 0 {
				batching.OnRemoved(posX, 1)

				currentListSize--

				continue
			}

			newPos := status >> flagOffset

			var update *postponedUpdate

			postponed, update = takePostponedUpdate(postponed, newPos, false)
			if update == nil {
				// The insertion has not been seen yet; come back for it.
				postponed = append(postponed, &postponedUpdate{
					posInOwnerList: posX,
					currentPos:     currentListSize - posX - 1,
					removal:        true,
				})

				continue
			}

			updatedNewPos := currentListSize - update.currentPos
			batching.OnMoved(posX, updatedNewPos-1)

			if status&flagMovedChanged != 0 {
				batching.OnChanged(updatedNewPos-1, 1, r.cb.ChangePayload(posX, newPos))
			}
		}

		for posY > endY {
			posY--

			status := r.newItemStatuses[posY]
			if status&flagMoved == 0 {
				batching.OnInserted(posX, 1)

				currentListSize++

				continue
			}

			oldPos := status >> flagOffset

			var update *postponedUpdate

			postponed, update = takePostponedUpdate(postponed, oldPos, true)
			if update == nil {
				postponed = append(postponed, &postponedUpdate{
					posInOwnerList: posY,
					currentPos:     currentListSize - posX,
					removal:        false,
				})

				continue
			}

			updatedOldPos := currentListSize - update.currentPos - 1
			batching.OnMoved(updatedOldPos, posX)

			if status&flagMovedChanged != 0 {
				batching.OnChanged(posX, 1, r.cb.ChangePayload(oldPos, posY))
			}
		}

		posX = diag.x
		posY = diag.y

		for range diag.size {
			if r.oldItemStatuses[posX]&flagMask == flagChanged {
				batching.OnChanged(posX, 1, r.cb.ChangePayload(posX, posY))
			}

			posX++
			posY++
		}

		posX = diag.x
		posY = diag.y
	}

	batching.DispatchLastEvent()
}

// takePostponedUpdate removes and returns the pending update for posInList,
// shifting the recorded positions of every update queued after it.
func takePostponedUpdate(
	updates []*postponedUpdate, posInList int, removal bool,
) ([]*postponedUpdate, *postponedUpdate) {
	for idx, update := range updates {
		if update.posInOwnerList != posInList || update.removal != removal {
			continue
		}

		for _, later := range updates[idx+1:] {
			if removal {
				later.currentPos--
			} else {
				later.currentPos++
			}
		}

		return append(updates[:idx], updates[idx+1:]...), update
	}

	return updates, nil
}
