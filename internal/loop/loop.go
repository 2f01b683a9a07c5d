// Package loop provides the single-threaded event loop that owns session
// state. Every mutation of interaction state runs as a task on the loop, so
// callbacks from speech engines, timers and transports never race.
package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hammamikhairi/vocalpal/internal/logger"
)

// ErrStopped is returned by Do when the loop has stopped.
var ErrStopped = errors.New("event loop stopped")

// Timer is a pending delayed task.
type Timer interface {
	// Stop cancels the task. It reports whether the task was still pending.
	Stop() bool
}

// Scheduler runs tasks serially. Post queues a task to run as soon as
// possible; After queues it once d has elapsed. Tasks posted from a task
// run after it, in posting order.
type Scheduler interface {
	Post(fn func())
	After(d time.Duration, fn func()) Timer
	Now() time.Time
}

// Loop is a Scheduler backed by one goroutine and wall-clock timers.
type Loop struct {
	log  *logger.Logger
	wake chan struct{}
	done chan struct{}

	mu      sync.Mutex
	queue   []func()
	running bool
	stopped bool
	cancel  context.CancelFunc
}

// New creates a loop. Tasks posted before Start are kept and run once the
// loop starts.
func New(log *logger.Logger) *Loop {
	return &Loop{
		log:  log,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Start runs the loop in the background until ctx is cancelled or Stop is
// called. Non-blocking.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running || l.stopped {
		l.log.Warn("event loop already started")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.running = true

	go l.run(childCtx)
	l.log.Debug("event loop started")
}

// Stop halts the loop and waits for the running task to return. Tasks that
// are still queued are dropped.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	wasRunning := l.running
	if l.cancel != nil {
		l.cancel()
	}
	l.queue = nil
	l.mu.Unlock()

	if wasRunning {
		<-l.done
	} else {
		close(l.done)
	}
	l.log.Debug("event loop stopped")
}

// Post queues fn. It is dropped if the loop has stopped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// After posts fn once d has elapsed. Stopping the returned timer from a loop
// task guarantees fn does not run.
func (l *Loop) After(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.cancelled.Swap(true) {
				return
			}
			fn()
		})
	})
	return t
}

// Now returns the wall-clock time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}

		for {
			if ctx.Err() != nil {
				return
			}
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			l.runTask(fn)
		}
	}
}

func (l *Loop) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("event loop task panicked: %v", r)
		}
	}()
	fn()
}

type loopTimer struct {
	t         *time.Timer
	cancelled atomic.Bool
}

func (t *loopTimer) Stop() bool {
	t.t.Stop()
	return !t.cancelled.Swap(true)
}
