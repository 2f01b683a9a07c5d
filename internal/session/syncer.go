package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hammamikhairi/vocalpal/internal/logger"
	"github.com/hammamikhairi/vocalpal/internal/loop"
)

// ErrSyncerStopped is returned by Flush once the syncer has shut down.
var ErrSyncerStopped = errors.New("syncer stopped")

// SyncerOption configures the Syncer.
type SyncerOption func(*Syncer)

// WithWriteTimeout bounds how long a single write may take.
func WithWriteTimeout(d time.Duration) SyncerOption {
	return func(s *Syncer) {
		s.writeTimeout = d
	}
}

// Syncer is the session's single store writer. Jobs run one at a time on a
// background goroutine in the order they were enqueued, so writes never
// overlap. Completions are posted back to the scheduler.
type Syncer struct {
	sched        loop.Scheduler
	log          *logger.Logger
	writeTimeout time.Duration

	wake chan struct{}
	done chan struct{}

	mu      sync.Mutex
	queue   []syncJob
	running bool
	stopped bool
	cancel  context.CancelFunc
}

type syncJob struct {
	name   string
	run    func(ctx context.Context) error
	onDone func(error)
	marker chan struct{}
}

// NewSyncer creates a syncer. Jobs enqueued before Start wait for it.
func NewSyncer(sched loop.Scheduler, log *logger.Logger, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		sched:        sched,
		log:          log,
		writeTimeout: 10 * time.Second,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the writer in the background. Non-blocking.
func (s *Syncer) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || s.stopped {
		s.log.Warn("syncer already started")
		return
	}
	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	go s.run(childCtx)
	s.log.Debug("syncer started (write timeout=%s)", s.writeTimeout)
}

// Enqueue adds a job. onDone, if set, is posted to the scheduler with the
// job's result. Jobs enqueued after Stop are dropped.
func (s *Syncer) Enqueue(name string, run func(ctx context.Context) error, onDone func(error)) {
	if !s.push(syncJob{name: name, run: run, onDone: onDone}) {
		s.log.Warn("syncer stopped, dropping %s", name)
	}
}

// Flush blocks until every job enqueued before the call has finished.
func (s *Syncer) Flush(ctx context.Context) error {
	marker := make(chan struct{})
	if !s.push(syncJob{name: "flush", marker: marker}) {
		return ErrSyncerStopped
	}
	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSyncerStopped
	}
}

// Stop drains queued jobs, then shuts the writer down. If ctx ends first
// the remaining jobs are abandoned.
func (s *Syncer) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.running
	s.mu.Unlock()

	var err error
	if started {
		err = s.Flush(ctx)
		if errors.Is(err, ErrSyncerStopped) {
			err = nil
		}
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return err
	}
	s.stopped = true
	cancel := s.cancel
	running := s.running
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if running {
		<-s.done
	}
	s.log.Debug("syncer stopped")
	return err
}

func (s *Syncer) push(job syncJob) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, job)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *Syncer) run(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			job := s.queue[0]
			s.queue[0] = syncJob{}
			s.queue = s.queue[1:]
			s.mu.Unlock()

			s.runJob(ctx, job)
		}
	}
}

func (s *Syncer) runJob(ctx context.Context, job syncJob) {
	if job.marker != nil {
		close(job.marker)
		return
	}

	jctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	err := job.run(jctx)
	cancel()

	if err != nil {
		s.log.Debug("%s failed: %v", job.name, err)
	}
	if job.onDone != nil {
		s.sched.Post(func() { job.onDone(err) })
	}
}
