package calls

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func newTestTracker() (*Tracker, clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return NewTracker(clock, slog.New(slog.NewTextHandler(io.Discard, nil))), clock
}

func TestTracker_CallingThenInitiated(t *testing.T) {
	tr, clock := newTestTracker()

	if _, ok := tr.Get("lead-1"); ok {
		t.Fatalf("expected no entry before request")
	}
	e, err := tr.Begin("lead-1", "+15550001")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if e.Phase != PhaseCalling {
		t.Fatalf("expected calling, got %s", e.Phase)
	}

	clock.Advance(time.Second)
	e, err = tr.Initiate("lead-1", "call-1", CallStatusInitiated)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if e.Phase != PhaseInitiated || e.CallID != "call-1" || !e.Provisional {
		t.Fatalf("unexpected entry %+v", e)
	}
	if !e.UpdatedAt.After(e.RequestedAt) {
		t.Fatalf("expected updated_at to move")
	}
}

func TestTracker_RejectsSecondRequestInAnyPhase(t *testing.T) {
	tr, _ := newTestTracker()

	tr.Begin("calling", "+1")
	tr.Begin("done", "+2")
	tr.Initiate("done", "c", CallStatusInitiated)
	tr.Begin("bad", "+3")
	tr.Fail("bad", errors.New("twilio rejected"))

	for _, id := range []string{"calling", "done", "bad"} {
		if _, err := tr.Begin(id, "+9"); !errors.Is(err, ErrCallAlreadyRequested) {
			t.Fatalf("%s: expected ErrCallAlreadyRequested, got %v", id, err)
		}
	}
	if _, err := tr.Begin("  ", "+9"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestTracker_NoTransitionLeavesFinalPhases(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Begin("a", "+1")
	tr.Fail("a", errors.New("x"))

	if _, err := tr.Initiate("a", "c", CallStatusInitiated); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := tr.Fail("missing", nil); !errors.Is(err, ErrNotTracked) {
		t.Fatalf("expected ErrNotTracked, got %v", err)
	}
	e, _ := tr.Get("a")
	if e.Phase != PhaseFailed || e.Error != "x" {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestTracker_ReconcileIsMonotonic(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Begin("lead-1", "+1")
	tr.Initiate("lead-1", "call-1", CallStatusInitiated)

	// First authoritative report replaces the provisional status.
	if n := tr.Reconcile([]CallRecord{{ID: "call-1", Status: CallStatusQueued}}); n != 1 {
		t.Fatalf("expected 1 change, got %d", n)
	}
	e, _ := tr.Get("lead-1")
	if e.Provisional || e.Status != CallStatusQueued {
		t.Fatalf("expected authoritative queued, got %+v", e)
	}

	steps := []struct {
		reported CallStatus
		want     CallStatus
	}{
		{CallStatusRinging, CallStatusRinging},
		{CallStatusQueued, CallStatusRinging},
		{CallStatusInProgress, CallStatusInProgress},
		{CallStatusRinging, CallStatusInProgress},
		{CallStatusCompleted, CallStatusCompleted},
		{CallStatusFailed, CallStatusCompleted},
		{CallStatusInProgress, CallStatusCompleted},
	}
	for _, s := range steps {
		tr.Reconcile([]CallRecord{{ID: "call-1", Status: s.reported}})
		e, _ = tr.Get("lead-1")
		if e.Status != s.want {
			t.Fatalf("after %s: expected %s, got %s", s.reported, s.want, e.Status)
		}
		if e.Phase != PhaseInitiated {
			t.Fatalf("expected phase unchanged by reconciliation, got %s", e.Phase)
		}
	}
}

func TestTracker_ReconcileIgnoresUnknownCalls(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Begin("lead-1", "+1")
	tr.Initiate("lead-1", "", CallStatusInitiated)
	if n := tr.Reconcile([]CallRecord{{ID: "other", Status: CallStatusCompleted}}); n != 0 {
		t.Fatalf("expected no changes, got %d", n)
	}
	e, _ := tr.Get("lead-1")
	if e.Provisional {
		t.Fatalf("expected entry without call id to stay non-provisional")
	}
}

func TestTracker_ReconcileSkipsUnrankedStatus(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Begin("lead-1", "+1")
	tr.Initiate("lead-1", "c1", CallStatusInitiated)

	if n := tr.Reconcile([]CallRecord{{ID: "c1", Status: CallStatusUnknown}}); n != 0 {
		t.Fatalf("expected no changes, got %d", n)
	}
	e, _ := tr.Get("lead-1")
	if !e.Provisional || e.Status != CallStatusInitiated {
		t.Fatalf("expected provisional initiated entry kept, got %+v", e)
	}

	if n := tr.Reconcile([]CallRecord{{ID: "c1", Status: CallStatusRinging}}); n != 1 {
		t.Fatalf("expected one change, got %d", n)
	}
	e, _ = tr.Get("lead-1")
	if e.Provisional || e.Status != CallStatusRinging {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestTracker_EntriesOrderedByRequest(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Begin("b", "+2")
	clock.Advance(time.Second)
	tr.Begin("a", "+1")
	got := tr.Entries()
	if len(got) != 2 || got[0].LeadID != "b" || got[1].LeadID != "a" {
		t.Fatalf("unexpected order %+v", got)
	}
	if tr.Count() != 2 {
		t.Fatalf("expected count 2")
	}
}
