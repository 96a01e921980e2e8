package listupdate

import (
	"reflect"
)

type pendingType int

const (
	pendingNone pendingType = iota
	pendingInsert
	pendingRemove
	pendingChange
)

// BatchingCallback wraps a Callback and merges consecutive compatible
// notifications into one. It holds at most one pending event; callers must
// call DispatchLastEvent once their edit stream is exhausted or the pending
// event is lost.
//
// BatchingCallback is not safe for concurrent use.
type BatchingCallback struct {
	wrapped Callback

	lastPayload any
	lastType    pendingType
	lastPos     int
	lastCount   int
}

// NewBatchingCallback returns a BatchingCallback forwarding to cb.
func NewBatchingCallback(cb Callback) *BatchingCallback {
	return &BatchingCallback{wrapped: cb, lastPos: -1, lastCount: -1}
}

// Wrap returns cb as a BatchingCallback, reusing it if it already is one.
func Wrap(cb Callback) *BatchingCallback {
	if batching, ok := cb.(*BatchingCallback); ok {
		return batching
	}

	return NewBatchingCallback(cb)
}

// DispatchLastEvent flushes the pending event, if any, to the wrapped callback.
func (b *BatchingCallback) DispatchLastEvent() {
	switch b.lastType {
	case pendingNone:
		return
	case pendingInsert:
		b.wrapped.OnInserted(b.lastPos, b.lastCount)
	case pendingRemove:
		b.wrapped.OnRemoved(b.lastPos, b.lastCount)
	case pendingChange:
		b.wrapped.OnChanged(b.lastPos, b.lastCount, b.lastPayload)
	}

	b.lastPayload = nil
	b.lastType = pendingNone
}

// OnInserted merges with a pending insert when pos lands inside or right
// after it; otherwise it flushes and starts a new pending insert.
func (b *BatchingCallback) OnInserted(pos, count int) {
	if b.lastType == pendingInsert && pos >= b.lastPos && pos <= b.lastPos+b.lastCount {
		b.lastCount += count
		b.lastPos = min(pos, b.lastPos)

		return
	}

	b.DispatchLastEvent()
	b.lastPos = pos
	b.lastCount = count
	b.lastType = pendingInsert
}

// OnRemoved merges with a pending remove when the pending start falls in
// [pos, pos+count].
func (b *BatchingCallback) OnRemoved(pos, count int) {
	if b.lastType == pendingRemove && b.lastPos >= pos && b.lastPos <= pos+count {
		b.lastCount += count
		b.lastPos = pos

		return
	}

	b.DispatchLastEvent()
	b.lastPos = pos
	b.lastCount = count
	b.lastType = pendingRemove
}

// OnMoved is never merged.
func (b *BatchingCallback) OnMoved(from, to int) {
	b.DispatchLastEvent()
	b.wrapped.OnMoved(from, to)
}

// OnChanged merges with a pending change carrying the same payload when the
// two ranges touch or overlap.
func (b *BatchingCallback) OnChanged(pos, count int, payload any) {
	if b.lastType == pendingChange &&
		pos <= b.lastPos+b.lastCount && pos+count >= b.lastPos &&
		SamePayload(b.lastPayload, payload) {
		previousEnd := b.lastPos + b.lastCount
		b.lastPos = min(pos, b.lastPos)
		b.lastCount = max(previousEnd, pos+count) - b.lastPos

		return
	}

	b.DispatchLastEvent()
	b.lastPos = pos
	b.lastCount = count
	b.lastPayload = payload
	b.lastType = pendingChange
}

// SamePayload reports whether a and b are the same payload. Comparable values
// use ==; slices, maps, funcs and channels compare by reference, never by
// contents. Values holding uncomparable data in interface fields are never
// the same.
func SamePayload(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	typeA := reflect.TypeOf(a)
	if typeA != reflect.TypeOf(b) {
		return false
	}

	valA, valB := reflect.ValueOf(a), reflect.ValueOf(b)

	// Comparable types may still hold uncomparable values in interface fields.
	if typeA.Comparable() {
		return valA.Comparable() && valB.Comparable() && a == b
	}

	switch typeA.Kind() { //nolint:exhaustive // only reference kinds are uncomparable here.
	case reflect.Slice:
		return valA.Pointer() == valB.Pointer() && valA.Len() == valB.Len()
	case reflect.Map, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return valA.Pointer() == valB.Pointer()
	default:
		return false
	}
}
