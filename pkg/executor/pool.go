package executor

import (
	"sync"
)

// Pool runs tasks on a fixed set of worker goroutines fed by an unbounded
// queue. Execute never blocks.
type Pool struct {
	queue *taskQueue
	wg    sync.WaitGroup
	once  sync.Once
}

// NewPool starts a pool with the given number of workers; values below one
// start a single worker.
func NewPool(workers int) *Pool {
	workers = max(workers, 1)

	pool := &Pool{queue: newTaskQueue()}
	pool.wg.Add(workers)

	for range workers {
		go pool.work()
	}

	return pool
}

func (p *Pool) work() {
	defer p.wg.Done()

	for {
		task, ok := p.queue.pop()
		if !ok {
			return
		}

		task()
	}
}

// Execute queues task. Tasks queued after Close are dropped.
func (p *Pool) Execute(task func()) {
	p.queue.push(task)
}

// Pending returns the number of tasks waiting for a worker.
func (p *Pool) Pending() int {
	return p.queue.len()
}

// Close stops accepting tasks, lets the workers finish the queued ones and
// waits for them to exit.
func (p *Pool) Close() {
	p.once.Do(p.queue.close)
	p.wg.Wait()
}
