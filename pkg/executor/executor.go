// Package executor provides the task runners the differ and the tile loader
// post work to: a foreground Loop owned by the caller, a background Pool and
// an Inline runner for tests.
//
// Executors never recover panics raised by tasks. Tasks in this module panic
// only on broken caller contracts, and those must stay fatal.
package executor

import (
	"sync"
)

// DefaultWorkers is the worker count of the pool returned by NewDefaultBackground.
const DefaultWorkers = 2

// Executor runs tasks. Execute must not block on the task itself.
type Executor interface {
	Execute(task func())
}

// Func adapts a plain function to an Executor.
type Func func(task func())

// Execute implements Executor.
func (f Func) Execute(task func()) { f(task) }

// Inline runs every task synchronously on the calling goroutine.
type Inline struct{}

// Execute implements Executor.
func (Inline) Execute(task func()) { task() }

// NewDefaultBackground returns a fresh pool with DefaultWorkers workers. Each
// call creates a new pool; the caller owns it and must Close it.
func NewDefaultBackground() *Pool {
	return NewPool(DefaultWorkers)
}

// taskQueue is an unbounded FIFO of tasks. Producers never block.
type taskQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []func()
	closed bool
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{}
	q.cond = sync.NewCond(&q.mu)

	return q
}

// push appends task and reports whether the queue accepted it.
func (q *taskQueue) push(task func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.tasks = append(q.tasks, task)
	q.cond.Signal()

	return true
}

// pop blocks until a task is available or the queue is closed and empty.
func (q *taskQueue) pop() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.tasks) == 0 && !q.closed {
		q.cond.Wait()
	}

	return q.takeLocked()
}

// tryPop returns the head task without waiting.
func (q *taskQueue) tryPop() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.takeLocked()
}

func (q *taskQueue) takeLocked() (func(), bool) {
	if len(q.tasks) == 0 {
		return nil, false
	}

	task := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]

	return task, true
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.tasks)
}

func (q *taskQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.cond.Broadcast()
}
