package diffutil

import (
	"errors"
	"fmt"
	"reflect"
)

// Contract violations. They are raised as panics: continuing would produce a
// corrupt edit script.
var (
	// ErrContentsForDifferentItems is raised when contents are compared for a
	// pair where exactly one side is nil, which AreItemsTheSame never accepts.
	ErrContentsForDifferentItems = errors.New("contents compared for items that are not the same")
	// ErrNilPayload is raised when a change payload is requested for a nil item.
	ErrNilPayload = errors.New("change payload requested for a nil item")
)

// ItemCallback compares two items of a list. Implementations only see non-nil
// items; nil handling is done by ListCallback.
type ItemCallback[T any] interface {
	// AreItemsTheSame reports whether a and b represent the same item.
	AreItemsTheSame(a, b T) bool
	// AreContentsTheSame reports whether a and b render identically.
	AreContentsTheSame(a, b T) bool
	// ChangePayload returns an optional description of what changed.
	ChangePayload(a, b T) any
}

// ItemFuncs adapts plain functions to an ItemCallback. Contents defaults to
// "always the same" and Payload to nil.
type ItemFuncs[T any] struct {
	Same     func(a, b T) bool
	Contents func(a, b T) bool
	Payload  func(a, b T) any
}

// AreItemsTheSame implements ItemCallback.
func (f ItemFuncs[T]) AreItemsTheSame(a, b T) bool { return f.Same(a, b) }

// AreContentsTheSame implements ItemCallback.
func (f ItemFuncs[T]) AreContentsTheSame(a, b T) bool {
	if f.Contents == nil {
		return true
	}

	return f.Contents(a, b)
}

// ChangePayload implements ItemCallback.
func (f ItemFuncs[T]) ChangePayload(a, b T) any {
	if f.Payload == nil {
		return nil
	}

	return f.Payload(a, b)
}

// Comparable returns an ItemCallback for comparable items where identity
// and contents are both plain equality.
func Comparable[T comparable]() ItemCallback[T] {
	eq := func(a, b T) bool { return a == b }

	return ItemFuncs[T]{Same: eq, Contents: eq}
}

// ListCallback is a Callback over two in-memory slices.
//
// Nil items (nil pointers, maps, slices, interfaces...) are handled before the
// ItemCallback sees them: two nils are the same item with the same contents, a
// nil is never the same item as a non-nil.
type ListCallback[T any] struct {
	Old   []T
	New   []T
	Items ItemCallback[T]
}

// OldListSize implements Callback.
func (c *ListCallback[T]) OldListSize() int { return len(c.Old) }

// NewListSize implements Callback.
func (c *ListCallback[T]) NewListSize() int { return len(c.New) }

// AreItemsTheSame implements Callback.
func (c *ListCallback[T]) AreItemsTheSame(oldPos, newPos int) bool {
	oldItem, newItem := c.Old[oldPos], c.New[newPos]
	oldNil, newNil := isNil(oldItem), isNil(newItem)

	if !oldNil && !newNil {
		return c.Items.AreItemsTheSame(oldItem, newItem)
	}

	return oldNil && newNil
}

// AreContentsTheSame implements Callback.
func (c *ListCallback[T]) AreContentsTheSame(oldPos, newPos int) bool {
	oldItem, newItem := c.Old[oldPos], c.New[newPos]
	oldNil, newNil := isNil(oldItem), isNil(newItem)

	switch {
	case !oldNil && !newNil:
		return c.Items.AreContentsTheSame(oldItem, newItem)
	case oldNil && newNil:
		return true
	}

	panic(fmt.Errorf("old %d, new %d: %w", oldPos, newPos, ErrContentsForDifferentItems))
}

// ChangePayload implements Callback.
func (c *ListCallback[T]) ChangePayload(oldPos, newPos int) any {
	oldItem, newItem := c.Old[oldPos], c.New[newPos]
	if isNil(oldItem) || isNil(newItem) {
		panic(fmt.Errorf("old %d, new %d: %w", oldPos, newPos, ErrNilPayload))
	}

	return c.Items.ChangePayload(oldItem, newItem)
}

// CalculateLists diffs two slices with items.
func CalculateLists[T any](oldList, newList []T, items ItemCallback[T], detectMoves bool) *Result {
	return Calculate(&ListCallback[T]{Old: oldList, New: newList, Items: items}, detectMoves)
}

func isNil(value any) bool {
	if value == nil {
		return true
	}

	val := reflect.ValueOf(value)

	switch val.Kind() { //nolint:exhaustive // only nillable kinds matter.
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface,
		reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return val.IsNil()
	default:
		return false
	}
}
