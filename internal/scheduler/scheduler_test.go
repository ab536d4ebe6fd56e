package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	mu    sync.Mutex
	calls []string
	ch    chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 64)}
}

func (r *recorder) task(key string, err error) Task {
	return func(context.Context) error {
		r.mu.Lock()
		r.calls = append(r.calls, key)
		r.mu.Unlock()
		r.ch <- key
		return err
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func waitFor(t *testing.T, r *recorder, want string) {
	t.Helper()
	select {
	case got := <-r.ch:
		if got != want {
			t.Fatalf("expected run for %q, got %q", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for run of %q", want)
	}
}

func expectNoRun(t *testing.T, r *recorder) {
	t.Helper()
	select {
	case got := <-r.ch:
		t.Fatalf("expected no run, got %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestActivate_RunsImmediatelyThenEveryInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New("list", 5*time.Second, clock, quietLogger())
	r := newRecorder()

	s.Activate("dashboard", r.task("dashboard", nil))
	waitFor(t, r, "dashboard")

	clock.BlockUntil(1)
	clock.Advance(4 * time.Second)
	expectNoRun(t, r)

	clock.Advance(time.Second)
	waitFor(t, r, "dashboard")

	clock.Advance(5 * time.Second)
	waitFor(t, r, "dashboard")

	s.Deactivate()
}

func TestActivate_SameKeyIsNoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New("thread", time.Second, clock, quietLogger())
	r := newRecorder()

	s.Activate("+15550001", r.task("+15550001", nil))
	waitFor(t, r, "+15550001")
	s.Activate("+15550001", r.task("+15550001", nil))
	expectNoRun(t, r)

	if key, ok := s.Active(); !ok || key != "+15550001" {
		t.Fatalf("expected active key, got %q %v", key, ok)
	}
	s.Deactivate()
}

func TestActivate_DifferentKeyReplacesTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New("thread", time.Second, clock, quietLogger())
	r := newRecorder()

	s.Activate("a", r.task("a", nil))
	waitFor(t, r, "a")

	s.Activate("b", r.task("b", nil))
	waitFor(t, r, "b")

	// Only the replacement ticker remains registered.
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitFor(t, r, "b")
	expectNoRun(t, r)

	s.Deactivate()
}

func TestDeactivate_StopsFurtherRuns(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New("calls", time.Second, clock, quietLogger())
	r := newRecorder()

	s.Activate("feed", r.task("feed", nil))
	waitFor(t, r, "feed")
	s.Deactivate()

	clock.Advance(3 * time.Second)
	expectNoRun(t, r)
	if _, ok := s.Active(); ok {
		t.Fatalf("expected inactive")
	}
	if r.count() != 1 {
		t.Fatalf("expected exactly one run, got %d", r.count())
	}

	// Deactivating twice is harmless.
	s.Deactivate()
}

func TestTaskErrorsAndPanicsDoNotStopTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New("list", time.Second, clock, quietLogger())

	runs := make(chan int, 8)
	n := 0
	s.Activate("k", func(context.Context) error {
		n++
		runs <- n
		if n == 1 {
			return errors.New("backend down")
		}
		panic("malformed payload")
	})

	for want := 1; want <= 3; want++ {
		select {
		case got := <-runs:
			if got != want {
				t.Fatalf("expected run %d, got %d", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for run %d", want)
		}
		clock.BlockUntil(1)
		clock.Advance(time.Second)
	}
	s.Deactivate()
}

func TestDeactivate_CancelsInFlightContext(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New("thread", time.Second, clock, quietLogger())

	started := make(chan struct{})
	cancelled := make(chan struct{})
	s.Activate("k", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})

	<-started
	s.Deactivate()
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected in-flight task context to be cancelled")
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New("x", 0, nil, nil)
	if s.Interval() != DefaultPollInterval {
		t.Fatalf("expected default interval, got %v", s.Interval())
	}
}
