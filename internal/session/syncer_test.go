package session

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/vocalpal/internal/logger"
	"github.com/hammamikhairi/vocalpal/internal/loop"
)

func newTestSyncer(t *testing.T, opts ...SyncerOption) (*Syncer, *loop.Manual) {
	t.Helper()
	sched := loop.NewManual(time.Unix(0, 0))
	s := NewSyncer(sched, logger.New(logger.LevelOff, nil), opts...)
	s.Start(context.Background())
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s, sched
}

func TestSyncerRunsJobsInOrder(t *testing.T) {
	s, sched := newTestSyncer(t)

	var (
		mu  sync.Mutex
		ran []int
		got []error
	)
	fail := errors.New("boom")
	for i := 0; i < 5; i++ {
		i := i
		s.Enqueue("job", func(context.Context) error {
			mu.Lock()
			ran = append(ran, i)
			mu.Unlock()
			if i == 2 {
				return fail
			}
			return nil
		}, func(err error) { got = append(got, err) })
	}

	if err := s.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ran, []int{0, 1, 2, 3, 4}) {
		t.Fatalf("ran = %v", ran)
	}

	// Completions wait for the loop.
	if len(got) != 0 {
		t.Fatal("completion ran off the loop")
	}
	sched.RunPending()
	want := []error{nil, nil, fail, nil, nil}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("results = %v, want %v", got, want)
	}
}

func TestSyncerWriteTimeout(t *testing.T) {
	s, sched := newTestSyncer(t, WithWriteTimeout(20*time.Millisecond))

	var got error
	s.Enqueue("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, func(err error) { got = err })

	if err := s.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	sched.RunPending()
	if !errors.Is(got, context.DeadlineExceeded) {
		t.Fatalf("result = %v, want deadline exceeded", got)
	}
}

func TestSyncerStopDrainsThenDrops(t *testing.T) {
	sched := loop.NewManual(time.Unix(0, 0))
	s := NewSyncer(sched, logger.New(logger.LevelOff, nil))
	s.Start(context.Background())

	var mu sync.Mutex
	count := 0
	for i := 0; i < 3; i++ {
		s.Enqueue("job", func(context.Context) error {
			mu.Lock()
			count++
			mu.Unlock()
			return nil
		}, nil)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("stop ran %d of 3 jobs", count)
	}

	s.Enqueue("late", func(context.Context) error {
		t.Error("job ran after stop")
		return nil
	}, nil)
	if err := s.Flush(context.Background()); !errors.Is(err, ErrSyncerStopped) {
		t.Fatalf("flush after stop = %v", err)
	}
}

func TestSyncerStopWithoutStart(t *testing.T) {
	s := NewSyncer(loop.NewManual(time.Unix(0, 0)), logger.New(logger.LevelOff, nil))
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop = %v", err)
	}
}
