// Package threadutil turns calls between the foreground and background sides
// of a windowed loader into queued messages.
//
// Each proxy returned by MessageThreadUtil records a call as a Message and
// schedules a drain of its queue on the owning executor; the drain invokes
// the real callback. Producers never block. On the background side a newer
// Refresh or UpdateRange jumps the queue and discards the stale requests it
// supersedes.
package threadutil

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/Sumatoshi-tech/listkit/pkg/executor"
	"github.com/Sumatoshi-tech/listkit/pkg/observability"
	"github.com/Sumatoshi-tech/listkit/pkg/tile"
)

// MainThreadCallback receives loader results on the foreground side.
type MainThreadCallback[T any] interface {
	UpdateItemCount(generation, itemCount int)
	AddTile(generation int, t *tile.Tile[T])
	RemoveTile(generation, position int)
}

// BackgroundCallback receives loader requests on the background side.
type BackgroundCallback[T any] interface {
	Refresh(generation int)
	UpdateRange(rangeStart, rangeEnd, extRangeStart, extRangeEnd, scrollHint int)
	LoadTile(position, scrollHint int)
	RecycleTile(t *tile.Tile[T])
}

// Foreground message tags.
const (
	UpdateItemCount = 1
	AddTile         = 2
	RemoveTile      = 3
)

// Background message tags.
const (
	Refresh     = 1
	UpdateRange = 2
	LoadTile    = 3
	RecycleTile = 4
)

const (
	queueMain       = "main"
	queueBackground = "background"
)

var (
	mainNames = map[int]string{
		UpdateItemCount: "update_item_count",
		AddTile:         "add_tile",
		RemoveTile:      "remove_tile",
	}
	backgroundNames = map[int]string{
		Refresh:     "refresh",
		UpdateRange: "update_range",
		LoadTile:    "load_tile",
		RecycleTile: "recycle_tile",
	}
)

// Option configures a MessageThreadUtil.
type Option func(*MessageThreadUtil)

// WithLogger sets the logger unknown messages are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(u *MessageThreadUtil) { u.logger = logger }
}

// WithMetrics sets the loader instruments.
func WithMetrics(metrics *observability.LoaderMetrics) Option {
	return func(u *MessageThreadUtil) { u.metrics = metrics }
}

// MessageThreadUtil builds message-queue proxies that run foreground calls on
// main and background calls on background.
type MessageThreadUtil struct {
	main       executor.Executor
	background executor.Executor
	pool       *messagePool
	logger     *slog.Logger
	metrics    *observability.LoaderMetrics
}

// New returns a MessageThreadUtil posting to the given executors.
func New(main, background executor.Executor, opts ...Option) *MessageThreadUtil {
	u := &MessageThreadUtil{
		main:       main,
		background: background,
		pool:       &messagePool{},
	}

	for _, opt := range opts {
		opt(u)
	}

	u.logger = observability.LoggerOrDefault(u.logger)

	return u
}

// MainThreadProxy wraps cb so that every call is queued and later delivered,
// in order, on the main executor.
func MainThreadProxy[T any](u *MessageThreadUtil, cb MainThreadCallback[T]) MainThreadCallback[T] {
	return &mainProxy[T]{util: u, callback: cb, queue: newMessageQueue(u.pool)}
}

// BackgroundProxy wraps cb so that calls are queued and delivered on the
// background executor, at most one drain at a time.
func BackgroundProxy[T any](u *MessageThreadUtil, cb BackgroundCallback[T]) BackgroundCallback[T] {
	return &backgroundProxy[T]{util: u, callback: cb, queue: newMessageQueue(u.pool)}
}

type mainProxy[T any] struct {
	util     *MessageThreadUtil
	callback MainThreadCallback[T]
	queue    *MessageQueue
}

func (p *mainProxy[T]) UpdateItemCount(generation, itemCount int) {
	p.send(p.util.pool.obtain(UpdateItemCount, generation, itemCount, 0, 0, 0, nil))
}

func (p *mainProxy[T]) AddTile(generation int, t *tile.Tile[T]) {
	p.send(p.util.pool.obtain(AddTile, generation, 0, 0, 0, 0, t))
}

func (p *mainProxy[T]) RemoveTile(generation, position int) {
	p.send(p.util.pool.obtain(RemoveTile, generation, position, 0, 0, 0, nil))
}

func (p *mainProxy[T]) send(msg *Message) {
	p.util.metrics.MessageSent(context.Background(), queueMain, mainNames[msg.What])
	p.queue.SendMessage(msg)
	p.util.main.Execute(p.drain)
}

func (p *mainProxy[T]) drain() {
	for msg := p.queue.Next(); msg != nil; msg = p.queue.Next() {
		switch msg.What {
		case UpdateItemCount:
			p.callback.UpdateItemCount(msg.Arg1, msg.Arg2)
		case AddTile:
			t, ok := msg.Data.(*tile.Tile[T])
			if !ok {
				p.util.unsupported(queueMain, msg)

				break
			}

			p.callback.AddTile(msg.Arg1, t)
		case RemoveTile:
			p.callback.RemoveTile(msg.Arg1, msg.Arg2)
		default:
			p.util.unsupported(queueMain, msg)
		}

		p.util.pool.recycle(msg)
	}
}

type backgroundProxy[T any] struct {
	util     *MessageThreadUtil
	callback BackgroundCallback[T]
	queue    *MessageQueue
	running  atomic.Bool
}

func (p *backgroundProxy[T]) Refresh(generation int) {
	p.sendAtFront(p.util.pool.obtain(Refresh, generation, 0, 0, 0, 0, nil))
}

func (p *backgroundProxy[T]) UpdateRange(rangeStart, rangeEnd, extRangeStart, extRangeEnd, scrollHint int) {
	p.sendAtFront(p.util.pool.obtain(UpdateRange, rangeStart, rangeEnd, extRangeStart, extRangeEnd, scrollHint, nil))
}

func (p *backgroundProxy[T]) LoadTile(position, scrollHint int) {
	p.send(p.util.pool.obtain(LoadTile, position, scrollHint, 0, 0, 0, nil))
}

func (p *backgroundProxy[T]) RecycleTile(t *tile.Tile[T]) {
	p.send(p.util.pool.obtain(RecycleTile, 0, 0, 0, 0, 0, t))
}

func (p *backgroundProxy[T]) send(msg *Message) {
	p.util.metrics.MessageSent(context.Background(), queueBackground, backgroundNames[msg.What])
	p.queue.SendMessage(msg)
	p.maybeExecute()
}

func (p *backgroundProxy[T]) sendAtFront(msg *Message) {
	p.util.metrics.MessageSent(context.Background(), queueBackground, backgroundNames[msg.What])
	p.queue.SendMessageAtFrontOfQueue(msg)
	p.maybeExecute()
}

func (p *backgroundProxy[T]) maybeExecute() {
	if p.running.CompareAndSwap(false, true) {
		p.util.background.Execute(p.drain)
	}
}

func (p *backgroundProxy[T]) drain() {
	for {
		for msg := p.queue.Next(); msg != nil; msg = p.queue.Next() {
			p.dispatch(msg)
			p.util.pool.recycle(msg)
		}

		p.running.Store(false)

		// A send that lost the CAS to this drain may have queued a message
		// after the last Next; pick it up rather than strand it.
		if p.queue.Empty() || !p.running.CompareAndSwap(false, true) {
			return
		}
	}
}

func (p *backgroundProxy[T]) dispatch(msg *Message) {
	ctx := context.Background()

	switch msg.What {
	case Refresh:
		p.util.metrics.MessagesDiscarded(ctx, queueBackground, p.queue.RemoveMessages(Refresh))
		p.callback.Refresh(msg.Arg1)
	case UpdateRange:
		discarded := p.queue.RemoveMessages(UpdateRange) + p.queue.RemoveMessages(LoadTile)
		p.util.metrics.MessagesDiscarded(ctx, queueBackground, discarded)
		p.callback.UpdateRange(msg.Arg1, msg.Arg2, msg.Arg3, msg.Arg4, msg.Arg5)
	case LoadTile:
		p.callback.LoadTile(msg.Arg1, msg.Arg2)
	case RecycleTile:
		t, ok := msg.Data.(*tile.Tile[T])
		if !ok {
			p.util.unsupported(queueBackground, msg)

			return
		}

		p.callback.RecycleTile(t)
	default:
		p.util.unsupported(queueBackground, msg)
	}
}

func (u *MessageThreadUtil) unsupported(queue string, msg *Message) {
	u.logger.Warn("unsupported message dropped", "queue", queue, "what", msg.What)
}
