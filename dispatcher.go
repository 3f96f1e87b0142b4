package authgate

import (
	"context"
	"sync"
)

// EventLoop is a single threaded task queue. Post is safe from any goroutine;
// tasks run one at a time on the goroutine calling Run, RunOnce or Drain.
type EventLoop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
}

// NewEventLoop returns an empty loop.
func NewEventLoop() *EventLoop {
	return &EventLoop{
		wake: make(chan struct{}, 1),
	}
}

// Post implements Dispatcher. Tasks posted after Close are dropped.
func (l *EventLoop) Post(task func()) {
	if task == nil {
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// RunOnce waits for one task and runs it.
func (l *EventLoop) RunOnce(ctx context.Context) error {
	for {
		if task := l.pop(); task != nil {
			task()
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Run processes tasks until ctx is done.
func (l *EventLoop) Run(ctx context.Context) error {
	for {
		if err := l.RunOnce(ctx); err != nil {
			return err
		}
	}
}

// Drain runs every task already queued, including tasks they post, and
// returns how many ran. It never blocks waiting for new work.
func (l *EventLoop) Drain() int {
	n := 0
	for task := l.pop(); task != nil; task = l.pop() {
		task()
		n++
	}
	return n
}

// Pending returns the number of queued tasks.
func (l *EventLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Close stops accepting tasks and discards the queue.
func (l *EventLoop) Close() {
	l.mu.Lock()
	l.closed = true
	l.queue = nil
	l.mu.Unlock()
}

func (l *EventLoop) pop() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task
}
