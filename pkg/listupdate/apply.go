package listupdate

import (
	"errors"
	"fmt"
	"slices"
)

// ErrOutOfRange is returned by Apply when an op addresses a position outside
// the list it is applied to.
var ErrOutOfRange = errors.New("op position out of range")

// Slot is one position of a list replayed by Apply. Inserted slots carry no
// item: the edit stream only knows that something new lives there.
type Slot[T any] struct {
	Item     T
	Payload  any
	Inserted bool
	Changed  bool
}

// Apply replays ops onto a copy of list and returns the resulting slots.
// Moves carry their Changed/Payload state along with the item.
func Apply[T any](list []T, ops []Op) ([]Slot[T], error) {
	slots := make([]Slot[T], len(list))
	for idx, item := range list {
		slots[idx] = Slot[T]{Item: item}
	}

	for idx, op := range ops {
		var err error

		slots, err = applyOne(slots, op)
		if err != nil {
			return nil, fmt.Errorf("op %d %s: %w", idx, op, err)
		}
	}

	return slots, nil
}

func applyOne[T any](slots []Slot[T], op Op) ([]Slot[T], error) {
	size := len(slots)

	switch op.Kind {
	case KindInsert:
		if op.Position < 0 || op.Position > size || op.Count < 0 {
			return nil, ErrOutOfRange
		}

		inserted := make([]Slot[T], op.Count)
		for idx := range inserted {
			inserted[idx].Inserted = true
		}

		return slices.Insert(slots, op.Position, inserted...), nil
	case KindRemove:
		if op.Position < 0 || op.Count < 0 || op.Position+op.Count > size {
			return nil, ErrOutOfRange
		}

		return slices.Delete(slots, op.Position, op.Position+op.Count), nil
	case KindMove:
		if op.Position < 0 || op.Position >= size || op.To < 0 || op.To >= size {
			return nil, ErrOutOfRange
		}

		moved := slots[op.Position]
		slots = slices.Delete(slots, op.Position, op.Position+1)

		return slices.Insert(slots, op.To, moved), nil
	case KindChange:
		if op.Position < 0 || op.Count < 0 || op.Position+op.Count > size {
			return nil, ErrOutOfRange
		}

		for idx := op.Position; idx < op.Position+op.Count; idx++ {
			slots[idx].Changed = true
			slots[idx].Payload = op.Payload
		}

		return slots, nil
	}

	return nil, fmt.Errorf("unknown op kind %d: %w", int(op.Kind), ErrOutOfRange)
}
