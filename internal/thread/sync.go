package thread

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/snapshot"
)

// Source fetches one conversation's transcript.
type Source interface {
	GetConversation(ctx context.Context, phone string) (json.RawMessage, error)
}

// View is the thread shown for the current selection.
type View struct {
	Selected string `json:"selected"`
	snapshot.Snapshot[Thread]
}

// Sync tracks the selected conversation and its transcript. Each selection gets its
// own snapshot store, so a response is applied only while its phone is still selected
// and only if no newer request for that selection was issued.
type Sync struct {
	src   Source
	clock clockwork.Clock
	log   *slog.Logger

	mu       sync.Mutex
	selected string
	store    *snapshot.Store[Thread]
}

func NewSync(src Source, clock clockwork.Clock, log *slog.Logger) *Sync {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sync{src: src, clock: clock, log: log}
}

// Select focuses phone. The displayed thread is cleared when the selection changes.
// It reports whether the selection changed.
func (s *Sync) Select(phone string) bool {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		s.Clear()
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == phone && s.store != nil {
		return false
	}
	s.selected = phone
	s.store = snapshot.New[Thread](s.clock)
	return true
}

func (s *Sync) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = ""
	s.store = nil
}

func (s *Sync) Selected() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != ""
}

// Refresh fetches phone's transcript. Nothing is fetched unless phone is selected,
// and the result is discarded if the selection moved on while the request was in flight.
func (s *Sync) Refresh(ctx context.Context, phone string) error {
	s.mu.Lock()
	if phone == "" || s.selected != phone || s.store == nil {
		s.mu.Unlock()
		return nil
	}
	store := s.store
	ticket := store.Begin()
	s.mu.Unlock()

	raw, err := s.src.GetConversation(ctx, phone)
	if err == nil {
		var th Thread
		th, err = Normalize(phone, raw)
		if err == nil {
			if !s.apply(phone, store, func() bool { return store.Commit(ticket, th) }) {
				s.log.Debug("thread result discarded", "phone", phone, "seq", ticket.Seq())
			}
			return nil
		}
	} else {
		err = fmt.Errorf("thread: fetch %s: %w", phone, err)
	}

	s.apply(phone, store, func() bool { return store.Fail(ticket, err) })
	return err
}

// apply runs fn only while phone is still selected with the same store.
func (s *Sync) apply(phone string, store *snapshot.Store[Thread], fn func() bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != phone || s.store != store {
		return false
	}
	return fn()
}

// Current returns the view for the selection, if any.
func (s *Sync) Current() (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return View{}, false
	}
	return View{Selected: s.selected, Snapshot: s.store.Get()}, true
}
