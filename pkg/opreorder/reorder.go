package opreorder

import (
	"slices"
)

// Reorderer moves every CmdMove op behind the non-move ops that follow it,
// rewriting positions so the stream keeps its net effect. Ops dropped or
// split along the way go through the pool.
type Reorderer struct {
	pool OpPool
}

// New returns a Reorderer using pool. A nil pool allocates without reuse.
func New(pool OpPool) *Reorderer {
	if pool == nil {
		pool = heapPool{}
	}

	return &Reorderer{pool: pool}
}

// Reorder rewrites ops in place and returns the resulting slice, in which no
// move precedes a non-move. It panics on an op that fails Validate.
func (r *Reorderer) Reorder(ops []*UpdateOp) []*UpdateOp {
	err := Validate(ops)
	if err != nil {
		panic(err)
	}

	// Each swap removes one out-of-order move/non-move pair, so this ends.
	for badMove := lastMoveOutOfOrder(ops); badMove != -1; badMove = lastMoveOutOfOrder(ops) {
		ops = r.swapMoveOp(ops, badMove, badMove+1)
	}

	return ops
}

func (r *Reorderer) swapMoveOp(ops []*UpdateOp, movePos, nextPos int) []*UpdateOp {
	moveOp, nextOp := ops[movePos], ops[nextPos]

	switch nextOp.Cmd {
	case CmdRemove:
		return r.swapMoveRemove(ops, movePos, moveOp, nextPos, nextOp)
	case CmdAdd:
		return swapMoveAdd(ops, movePos, moveOp, nextPos, nextOp)
	case CmdUpdate:
		return r.swapMoveUpdate(ops, movePos, moveOp, nextPos, nextOp)
	case CmdMove:
	}

	return ops
}

func (r *Reorderer) swapMoveRemove(
	ops []*UpdateOp, movePos int, moveOp *UpdateOp, removePos int, removeOp *UpdateOp,
) []*UpdateOp {
	var extraRm *UpdateOp

	// A remove that covers exactly the span the move shifted cancels it.
	reverted := false
	backwards := moveOp.PositionStart >= moveOp.ItemCount

	if backwards {
		reverted = removeOp.PositionStart == moveOp.ItemCount+1 &&
			removeOp.ItemCount == moveOp.PositionStart-moveOp.ItemCount
	} else {
		reverted = removeOp.PositionStart == moveOp.PositionStart &&
			removeOp.ItemCount == moveOp.ItemCount-moveOp.PositionStart
	}

	// Undo the insertion half of the move first.
	if moveOp.ItemCount < removeOp.PositionStart {
		removeOp.PositionStart--
	} else if moveOp.ItemCount < removeOp.PositionStart+removeOp.ItemCount {
		// The moved item itself is removed: the move becomes that remove.
		removeOp.ItemCount--
		moveOp.Cmd = CmdRemove
		moveOp.ItemCount = 1

		if removeOp.ItemCount == 0 {
			ops = slices.Delete(ops, removePos, removePos+1)
			r.pool.Recycle(removeOp)
		}

		return ops
	}

	// Then the removal half.
	if moveOp.PositionStart <= removeOp.PositionStart {
		removeOp.PositionStart++
	} else if moveOp.PositionStart < removeOp.PositionStart+removeOp.ItemCount {
		remaining := removeOp.PositionStart + removeOp.ItemCount - moveOp.PositionStart
		extraRm = r.pool.Obtain(CmdRemove, moveOp.PositionStart+1, remaining, nil)
		removeOp.ItemCount = moveOp.PositionStart - removeOp.PositionStart
	}

	if reverted {
		ops[movePos] = removeOp
		ops = slices.Delete(ops, removePos, removePos+1)
		r.pool.Recycle(moveOp)

		return ops
	}

	if backwards {
		if extraRm != nil {
			if moveOp.PositionStart > extraRm.PositionStart {
				moveOp.PositionStart -= extraRm.ItemCount
			}

			if moveOp.ItemCount > extraRm.PositionStart {
				moveOp.ItemCount -= extraRm.ItemCount
			}
		}

		if moveOp.PositionStart > removeOp.PositionStart {
			moveOp.PositionStart -= removeOp.ItemCount
		}

		if moveOp.ItemCount > removeOp.PositionStart {
			moveOp.ItemCount -= removeOp.ItemCount
		}
	} else {
		if extraRm != nil {
			if moveOp.PositionStart >= extraRm.PositionStart {
				moveOp.PositionStart -= extraRm.ItemCount
			}

			if moveOp.ItemCount >= extraRm.PositionStart {
				moveOp.ItemCount -= extraRm.ItemCount
			}
		}

		if moveOp.PositionStart >= removeOp.PositionStart {
			moveOp.PositionStart -= removeOp.ItemCount
		}

		if moveOp.ItemCount >= removeOp.PositionStart {
			moveOp.ItemCount -= removeOp.ItemCount
		}
	}

	ops[movePos] = removeOp

	if moveOp.PositionStart != moveOp.ItemCount {
		ops[removePos] = moveOp
	} else {
		ops = slices.Delete(ops, removePos, removePos+1)
		r.pool.Recycle(moveOp)
	}

	if extraRm != nil {
		ops = slices.Insert(ops, movePos, extraRm)
	}

	return ops
}

func swapMoveAdd(ops []*UpdateOp, movePos int, moveOp *UpdateOp, addPos int, addOp *UpdateOp) []*UpdateOp {
	offset := 0

	if moveOp.ItemCount < addOp.PositionStart {
		offset--
	}

	if moveOp.PositionStart < addOp.PositionStart {
		offset++
	}

	if addOp.PositionStart <= moveOp.PositionStart {
		moveOp.PositionStart += addOp.ItemCount
	}

	if addOp.PositionStart <= moveOp.ItemCount {
		moveOp.ItemCount += addOp.ItemCount
	}

	addOp.PositionStart += offset
	ops[movePos] = addOp
	ops[addPos] = moveOp

	return ops
}

func (r *Reorderer) swapMoveUpdate(
	ops []*UpdateOp, movePos int, moveOp *UpdateOp, updatePos int, updateOp *UpdateOp,
) []*UpdateOp {
	var extraUp1, extraUp2 *UpdateOp

	if moveOp.ItemCount < updateOp.PositionStart {
		updateOp.PositionStart--
	} else if moveOp.ItemCount < updateOp.PositionStart+updateOp.ItemCount {
		// The moved item is updated: it gets an update of its own.
		updateOp.ItemCount--
		extraUp1 = r.pool.Obtain(CmdUpdate, moveOp.PositionStart, 1, updateOp.Payload)
	}

	if moveOp.PositionStart <= updateOp.PositionStart {
		updateOp.PositionStart++
	} else if moveOp.PositionStart < updateOp.PositionStart+updateOp.ItemCount {
		remaining := updateOp.PositionStart + updateOp.ItemCount - moveOp.PositionStart
		extraUp2 = r.pool.Obtain(CmdUpdate, moveOp.PositionStart+1, remaining, updateOp.Payload)
		updateOp.ItemCount -= remaining
	}

	ops[updatePos] = moveOp

	if updateOp.ItemCount > 0 {
		ops[movePos] = updateOp
	} else {
		ops = slices.Delete(ops, movePos, movePos+1)
		r.pool.Recycle(updateOp)
	}

	if extraUp1 != nil {
		ops = slices.Insert(ops, movePos, extraUp1)
	}

	if extraUp2 != nil {
		ops = slices.Insert(ops, movePos, extraUp2)
	}

	return ops
}

// lastMoveOutOfOrder returns the index of the last move followed by a
// non-move, or -1.
func lastMoveOutOfOrder(ops []*UpdateOp) int {
	foundNonMove := false

	for idx := len(ops) - 1; idx >= 0; idx-- {
		if ops[idx].Cmd != CmdMove {
			foundNonMove = true

			continue
		}

		if foundNonMove {
			return idx
		}
	}

	return -1
}
