package threadutil

import (
	"sync"
)

// Message is one queued proxy call. What is the call tag; the Arg fields and
// Data carry its arguments.
type Message struct {
	next *Message

	What int
	Arg1 int
	Arg2 int
	Arg3 int
	Arg4 int
	Arg5 int
	Data any
}

// messagePool is a free list of Messages shared by the queues of one
// MessageThreadUtil.
type messagePool struct {
	mu   sync.Mutex
	root *Message
}

func (p *messagePool) obtain(what, arg1, arg2, arg3, arg4, arg5 int, data any) *Message {
	p.mu.Lock()

	msg := p.root
	if msg == nil {
		msg = &Message{}
	} else {
		p.root = msg.next
	}

	p.mu.Unlock()

	msg.next = nil
	msg.What = what
	msg.Arg1, msg.Arg2, msg.Arg3, msg.Arg4, msg.Arg5 = arg1, arg2, arg3, arg4, arg5
	msg.Data = data

	return msg
}

func (p *messagePool) recycle(msg *Message) {
	*msg = Message{}

	p.mu.Lock()
	msg.next = p.root
	p.root = msg
	p.mu.Unlock()
}

// MessageQueue is a FIFO of Messages linked through the messages themselves.
// It is safe for concurrent use.
type MessageQueue struct {
	pool *messagePool

	mu   sync.Mutex
	root *Message
}

// NewMessageQueue returns an empty queue with its own message pool.
func NewMessageQueue() *MessageQueue {
	return newMessageQueue(&messagePool{})
}

func newMessageQueue(pool *messagePool) *MessageQueue {
	return &MessageQueue{pool: pool}
}

// Next removes and returns the head of the queue, or nil when it is empty.
func (q *MessageQueue) Next() *Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	msg := q.root
	if msg == nil {
		return nil
	}

	q.root = msg.next
	msg.next = nil

	return msg
}

// SendMessageAtFrontOfQueue puts msg at the head of the queue.
func (q *MessageQueue) SendMessageAtFrontOfQueue(msg *Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	msg.next = q.root
	q.root = msg
}

// SendMessage appends msg to the tail of the queue.
func (q *MessageQueue) SendMessage(msg *Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.root == nil {
		q.root = msg

		return
	}

	last := q.root
	for last.next != nil {
		last = last.next
	}

	last.next = msg
}

// RemoveMessages drops every queued message tagged what and returns how many
// were dropped. Dropped messages go back to the pool.
func (q *MessageQueue) RemoveMessages(what int) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0

	for q.root != nil && q.root.What == what {
		msg := q.root
		q.root = msg.next
		q.pool.recycle(msg)
		removed++
	}

	if q.root == nil {
		return removed
	}

	prev := q.root
	for msg := prev.next; msg != nil; {
		next := msg.next

		if msg.What == what {
			prev.next = next
			q.pool.recycle(msg)
			removed++
		} else {
			prev = msg
		}

		msg = next
	}

	return removed
}

// Len returns the number of queued messages.
func (q *MessageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for msg := q.root; msg != nil; msg = msg.next {
		n++
	}

	return n
}

// Empty reports whether the queue holds no messages.
func (q *MessageQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.root == nil
}
