// Package snapshot holds the latest committed value of a polled view.
//
// Every refresh takes a Ticket before doing I/O. Only the most recently issued
// ticket may commit, so a slow response can never overwrite a newer one. A
// failed refresh keeps the last good value and marks the snapshot stale.
package snapshot

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrSuperseded is returned when a newer refresh was issued before this one finished.
var ErrSuperseded = errors.New("snapshot: superseded by a newer refresh")

// Ticket identifies one refresh attempt.
type Ticket struct {
	seq uint64
}

func (t Ticket) Seq() uint64 { return t.seq }

// Snapshot is a read-only copy of the store's state.
type Snapshot[T any] struct {
	Value T `json:"value"`
	// Loaded is false until the first successful commit.
	Loaded   bool      `json:"loaded"`
	SyncedAt time.Time `json:"synced_at"`
	Stale    bool      `json:"stale"`
	Failures int       `json:"failures"`
	LastErr  string    `json:"last_error,omitempty"`
	Seq      uint64    `json:"seq"`
}

type Store[T any] struct {
	clock clockwork.Clock

	mu     sync.RWMutex
	issued uint64
	snap   Snapshot[T]
}

func New[T any](clock clockwork.Clock) *Store[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store[T]{clock: clock}
}

// Begin issues a ticket newer than every ticket issued before.
func (s *Store[T]) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return Ticket{seq: s.issued}
}

// Commit replaces the value if t is still the latest issued ticket.
func (s *Store[T]) Commit(t Ticket, v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.seq != s.issued {
		return false
	}
	s.snap = Snapshot[T]{
		Value:    v,
		Loaded:   true,
		SyncedAt: s.clock.Now(),
		Seq:      t.seq,
	}
	return true
}

// Fail records a failed refresh. The previous value is retained.
func (s *Store[T]) Fail(t Ticket, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.seq != s.issued {
		return false
	}
	s.snap.Stale = true
	s.snap.Failures++
	if err != nil {
		s.snap.LastErr = err.Error()
	}
	return true
}

// Reset clears the value and drops outstanding tickets.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.snap = Snapshot[T]{}
}

func (s *Store[T]) Get() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
