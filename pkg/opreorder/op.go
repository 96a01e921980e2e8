// Package opreorder rewrites a stream of adapter update operations so that
// every move comes last, without changing what the stream does to a list.
package opreorder

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Sumatoshi-tech/listkit/pkg/listupdate"
)

// Cmd is the kind of an UpdateOp.
type Cmd int

// Commands are bit flags so callers can test sets of them.
const (
	CmdAdd Cmd = 1 << iota
	CmdRemove
	CmdUpdate
	CmdMove
)

func (c Cmd) String() string {
	switch c {
	case CmdAdd:
		return "add"
	case CmdRemove:
		return "rm"
	case CmdUpdate:
		return "up"
	case CmdMove:
		return "mv"
	default:
		return fmt.Sprintf("cmd(%d)", int(c))
	}
}

// ErrMalformedOp is returned by Validate for ops no list could apply.
var ErrMalformedOp = errors.New("malformed update op")

// UpdateOp is one adapter operation. For CmdMove, PositionStart is the source
// position and ItemCount holds the target position.
type UpdateOp struct {
	Payload       any
	Cmd           Cmd
	PositionStart int
	ItemCount     int
}

func (op *UpdateOp) String() string {
	if op.Cmd == CmdMove {
		return fmt.Sprintf("mv(%d->%d)", op.PositionStart, op.ItemCount)
	}

	return fmt.Sprintf("%s(%d,%d)", op.Cmd, op.PositionStart, op.ItemCount)
}

// Validate checks the op on its own; positions are not checked against any
// list size.
func (op *UpdateOp) Validate() error {
	if op.PositionStart < 0 {
		return fmt.Errorf("%s: negative position: %w", op, ErrMalformedOp)
	}

	switch op.Cmd {
	case CmdAdd, CmdRemove, CmdUpdate:
		if op.ItemCount < 1 {
			return fmt.Errorf("%s: item count below one: %w", op, ErrMalformedOp)
		}
	case CmdMove:
		if op.ItemCount < 0 {
			return fmt.Errorf("%s: negative target: %w", op, ErrMalformedOp)
		}
	default:
		return fmt.Errorf("%s: unknown command: %w", op, ErrMalformedOp)
	}

	return nil
}

// Validate checks every op in ops.
func Validate(ops []*UpdateOp) error {
	for idx, op := range ops {
		err := op.Validate()
		if err != nil {
			return fmt.Errorf("op %d: %w", idx, err)
		}
	}

	return nil
}

// ToListOps converts ops to structural notifications in the same order.
func ToListOps(ops []*UpdateOp) []listupdate.Op {
	out := make([]listupdate.Op, 0, len(ops))

	for _, op := range ops {
		switch op.Cmd {
		case CmdAdd:
			out = append(out, listupdate.Insert(op.PositionStart, op.ItemCount))
		case CmdRemove:
			out = append(out, listupdate.Remove(op.PositionStart, op.ItemCount))
		case CmdUpdate:
			out = append(out, listupdate.Change(op.PositionStart, op.ItemCount, op.Payload))
		case CmdMove:
			out = append(out, listupdate.Move(op.PositionStart, op.ItemCount))
		}
	}

	return out
}

// OpPool hands out and takes back UpdateOps.
type OpPool interface {
	Obtain(cmd Cmd, positionStart, itemCount int, payload any) *UpdateOp
	Recycle(op *UpdateOp)
}

// SyncPool is an OpPool backed by sync.Pool. The zero value is ready to use.
type SyncPool struct {
	pool sync.Pool
}

// Obtain returns an op with the given fields.
func (p *SyncPool) Obtain(cmd Cmd, positionStart, itemCount int, payload any) *UpdateOp {
	op, ok := p.pool.Get().(*UpdateOp)
	if !ok {
		op = &UpdateOp{}
	}

	op.Cmd = cmd
	op.PositionStart = positionStart
	op.ItemCount = itemCount
	op.Payload = payload

	return op
}

// Recycle clears op and keeps it for reuse. op must not be used afterwards.
func (p *SyncPool) Recycle(op *UpdateOp) {
	*op = UpdateOp{}
	p.pool.Put(op)
}

// heapPool allocates fresh ops and drops recycled ones.
type heapPool struct{}

func (heapPool) Obtain(cmd Cmd, positionStart, itemCount int, payload any) *UpdateOp {
	return &UpdateOp{Cmd: cmd, PositionStart: positionStart, ItemCount: itemCount, Payload: payload}
}

func (heapPool) Recycle(*UpdateOp) {}
