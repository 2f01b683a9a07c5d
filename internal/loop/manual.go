package loop

import (
	"sort"
	"sync"
	"time"
)

// Manual is a virtual-time Scheduler. Nothing runs until the owner calls
// RunPending or Advance, which makes timing-sensitive code deterministic in
// tests.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks []*manualTask
}

type manualTask struct {
	due       time.Time
	seq       uint64
	fn        func()
	cancelled bool
	m         *Manual
}

// NewManual creates a virtual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Post queues fn at the current virtual time.
func (m *Manual) Post(fn func()) {
	m.schedule(0, fn)
}

// After queues fn d after the current virtual time.
func (m *Manual) After(d time.Duration, fn func()) Timer {
	return m.schedule(d, fn)
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of queued tasks that have not been cancelled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// RunPending runs every task that is due now, including tasks those tasks
// post.
func (m *Manual) RunPending() {
	m.Advance(0)
}

// Advance moves the clock forward by d, running due tasks in time order.
// Tasks with the same due time run in the order they were scheduled.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.next(target)
		if t == nil {
			break
		}
		t.fn()
	}

	m.mu.Lock()
	if target.After(m.now) {
		m.now = target
	}
	m.mu.Unlock()
}

func (m *Manual) next(target time.Time) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	m.tasks = live
	if len(m.tasks) == 0 {
		return nil
	}

	sort.SliceStable(m.tasks, func(i, j int) bool {
		a, b := m.tasks[i], m.tasks[j]
		if !a.due.Equal(b.due) {
			return a.due.Before(b.due)
		}
		return a.seq < b.seq
	})

	t := m.tasks[0]
	if t.due.After(target) {
		return nil
	}
	m.tasks = m.tasks[1:]
	t.cancelled = true
	if t.due.After(m.now) {
		m.now = t.due
	}
	return t
}

func (m *Manual) schedule(d time.Duration, fn func()) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{due: m.now.Add(d), seq: m.seq, fn: fn, m: m}
	m.tasks = append(m.tasks, t)
	return t
}

func (t *manualTask) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	wasPending := !t.cancelled
	t.cancelled = true
	return wasPending
}
