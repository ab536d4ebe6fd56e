package snapshot

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestCommit_LatestTicketWins(t *testing.T) {
	s := New[[]string](clockwork.NewFakeClock())

	older := s.Begin()
	newer := s.Begin()

	if !s.Commit(newer, []string{"new"}) {
		t.Fatalf("expected newer ticket to commit")
	}
	if s.Commit(older, []string{"old"}) {
		t.Fatalf("expected older ticket to be rejected")
	}
	got := s.Get()
	if len(got.Value) != 1 || got.Value[0] != "new" || got.Seq != newer.Seq() {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestFail_RetainsLastGoodValue(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New[int](clock)

	tk := s.Begin()
	s.Commit(tk, 42)
	syncedAt := s.Get().SyncedAt

	clock.Advance(5 * time.Second)
	tk = s.Begin()
	if !s.Fail(tk, errors.New("timeout")) {
		t.Fatalf("expected failure recorded")
	}
	tk = s.Begin()
	s.Fail(tk, errors.New("timeout again"))

	got := s.Get()
	if got.Value != 42 || !got.Loaded {
		t.Fatalf("expected last good value retained, got %+v", got)
	}
	if !got.Stale || got.Failures != 2 || got.LastErr != "timeout again" {
		t.Fatalf("expected stale snapshot with two failures, got %+v", got)
	}
	if !got.SyncedAt.Equal(syncedAt) {
		t.Fatalf("expected synced_at unchanged on failure")
	}

	tk = s.Begin()
	s.Commit(tk, 43)
	got = s.Get()
	if got.Stale || got.Failures != 0 || got.LastErr != "" {
		t.Fatalf("expected fresh snapshot after success, got %+v", got)
	}
}

func TestReset_DropsOutstandingTickets(t *testing.T) {
	s := New[string](nil)
	tk := s.Begin()
	s.Reset()
	if s.Commit(tk, "late") {
		t.Fatalf("expected ticket issued before reset to be rejected")
	}
	if s.Get().Loaded {
		t.Fatalf("expected empty snapshot")
	}
}
