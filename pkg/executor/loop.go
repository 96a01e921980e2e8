package executor

import (
	"context"
)

// Loop is a foreground executor: tasks run one at a time, in submission
// order, on whichever goroutine drives the loop with Run or RunPending. It
// plays the role of a UI thread.
type Loop struct {
	queue *taskQueue
}

// NewLoop creates an idle loop. Nothing runs until Run or RunPending is called.
func NewLoop() *Loop {
	return &Loop{queue: newTaskQueue()}
}

// Execute queues task. Tasks queued after Stop are dropped.
func (l *Loop) Execute(task func()) {
	l.queue.push(task)
}

// Run drives the loop on the calling goroutine until ctx is done or Stop is
// called. Tasks already queued at that point still run before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, l.queue.close)
	defer stop()

	for {
		task, ok := l.queue.pop()
		if !ok {
			return ctx.Err()
		}

		task()
	}
}

// RunPending runs queued tasks on the calling goroutine until the queue is
// empty, including tasks queued by the tasks it runs, and returns how many
// ran. It must not be used concurrently with Run.
func (l *Loop) RunPending() int {
	ran := 0

	for {
		task, ok := l.queue.tryPop()
		if !ok {
			return ran
		}

		task()

		ran++
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	return l.queue.len()
}

// Stop makes Run return once the queue is drained.
func (l *Loop) Stop() {
	l.queue.close()
}
