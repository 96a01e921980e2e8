// Package listupdate defines the structural-edit sink that list diffs are
// dispatched to, plus helpers that coalesce, record and replay edit streams.
package listupdate

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when parsing an unrecognized kind name.
var ErrUnknownKind = errors.New("unknown op kind")

// Callback receives structural change notifications for a list.
// Positions always refer to the list as it looks after every previous
// notification has been applied.
type Callback interface {
	// OnInserted is called when count items are inserted at pos.
	OnInserted(pos, count int)
	// OnRemoved is called when count items are removed starting at pos.
	OnRemoved(pos, count int)
	// OnMoved is called when the item at from moves to to.
	OnMoved(from, to int)
	// OnChanged is called when count items starting at pos changed their contents.
	OnChanged(pos, count int, payload any)
}

// Kind tags an Op.
type Kind int

const (
	// KindInsert is an OnInserted notification.
	KindInsert Kind = iota + 1
	// KindRemove is an OnRemoved notification.
	KindRemove
	// KindMove is an OnMoved notification.
	KindMove
	// KindChange is an OnChanged notification.
	KindChange
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindRemove:
		return "remove"
	case KindMove:
		return "move"
	case KindChange:
		return "change"
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if k < KindInsert || k > KindChange {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}

	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name produced by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	for candidate := KindInsert; candidate <= KindChange; candidate++ {
		if candidate.String() == string(text) {
			*k = candidate

			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrUnknownKind, text)
}

// Op is one recorded structural notification.
// For KindMove, Position is the source and To the destination; Count is 1.
type Op struct {
	Payload  any  `json:"payload,omitempty" yaml:"payload,omitempty"`
	Kind     Kind `json:"kind"              yaml:"kind"`
	Position int  `json:"position"          yaml:"position"`
	Count    int  `json:"count"             yaml:"count"`
	To       int  `json:"to,omitempty"      yaml:"to,omitempty"`
}

// Insert builds an insert Op.
func Insert(pos, count int) Op { return Op{Kind: KindInsert, Position: pos, Count: count} }

// Remove builds a remove Op.
func Remove(pos, count int) Op { return Op{Kind: KindRemove, Position: pos, Count: count} }

// Move builds a move Op.
func Move(from, to int) Op { return Op{Kind: KindMove, Position: from, To: to, Count: 1} }

// Change builds a change Op.
func Change(pos, count int, payload any) Op {
	return Op{Kind: KindChange, Position: pos, Count: count, Payload: payload}
}

// String renders the op the way it is logged, e.g. "insert(2,1)" or "move(0->3)".
func (op Op) String() string {
	switch op.Kind {
	case KindMove:
		return fmt.Sprintf("move(%d->%d)", op.Position, op.To)
	case KindChange:
		if op.Payload != nil {
			return fmt.Sprintf("change(%d,%d,%v)", op.Position, op.Count, op.Payload)
		}

		return fmt.Sprintf("change(%d,%d)", op.Position, op.Count)
	case KindInsert, KindRemove:
		return fmt.Sprintf("%s(%d,%d)", op.Kind, op.Position, op.Count)
	}

	return op.Kind.String()
}

// DispatchTo forwards the op to cb.
func (op Op) DispatchTo(cb Callback) {
	switch op.Kind {
	case KindInsert:
		cb.OnInserted(op.Position, op.Count)
	case KindRemove:
		cb.OnRemoved(op.Position, op.Count)
	case KindMove:
		cb.OnMoved(op.Position, op.To)
	case KindChange:
		cb.OnChanged(op.Position, op.Count, op.Payload)
	}
}

// Recorder is a Callback that keeps every notification it receives.
// The zero value is ready to use. Recorder is not safe for concurrent use.
type Recorder struct {
	Ops []Op
}

// OnInserted implements Callback.
func (r *Recorder) OnInserted(pos, count int) { r.Ops = append(r.Ops, Insert(pos, count)) }

// OnRemoved implements Callback.
func (r *Recorder) OnRemoved(pos, count int) { r.Ops = append(r.Ops, Remove(pos, count)) }

// OnMoved implements Callback.
func (r *Recorder) OnMoved(from, to int) { r.Ops = append(r.Ops, Move(from, to)) }

// OnChanged implements Callback.
func (r *Recorder) OnChanged(pos, count int, payload any) {
	r.Ops = append(r.Ops, Change(pos, count, payload))
}

// Reset drops every recorded op.
func (r *Recorder) Reset() { r.Ops = r.Ops[:0] }

// Funcs adapts plain functions to a Callback. Nil fields are ignored.
type Funcs struct {
	Inserted func(pos, count int)
	Removed  func(pos, count int)
	Moved    func(from, to int)
	Changed  func(pos, count int, payload any)
}

// OnInserted implements Callback.
func (f Funcs) OnInserted(pos, count int) {
	if f.Inserted != nil {
		f.Inserted(pos, count)
	}
}

// OnRemoved implements Callback.
func (f Funcs) OnRemoved(pos, count int) {
	if f.Removed != nil {
		f.Removed(pos, count)
	}
}

// OnMoved implements Callback.
func (f Funcs) OnMoved(from, to int) {
	if f.Moved != nil {
		f.Moved(from, to)
	}
}

// OnChanged implements Callback.
func (f Funcs) OnChanged(pos, count int, payload any) {
	if f.Changed != nil {
		f.Changed(pos, count, payload)
	}
}
