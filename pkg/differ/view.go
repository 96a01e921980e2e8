package differ

import (
	"iter"
	"slices"
)

// View is a read-only window onto a list held by an AsyncListDiffer. The zero
// View is empty.
type View[T any] struct {
	items []T
}

// Len returns the number of items.
func (v View[T]) Len() int { return len(v.items) }

// IsEmpty reports whether the view holds no items.
func (v View[T]) IsEmpty() bool { return len(v.items) == 0 }

// At returns the item at idx. It panics when idx is out of range.
func (v View[T]) At(idx int) T { return v.items[idx] }

// All iterates positions and items in order.
func (v View[T]) All() iter.Seq2[int, T] { return slices.All(v.items) }

// Slice returns a copy of the items, never nil.
func (v View[T]) Slice() []T {
	out := make([]T, len(v.items))
	copy(out, v.items)

	return out
}
