package conversations

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/snapshot"
)

// Source fetches the raw conversation list.
type Source interface {
	ListConversations(ctx context.Context) (json.RawMessage, error)
}

// ListSync keeps the latest normalized conversation list.
type ListSync struct {
	src   Source
	store *snapshot.Store[[]Conversation]
	log   *slog.Logger
}

func NewListSync(src Source, clock clockwork.Clock, log *slog.Logger) *ListSync {
	if log == nil {
		log = slog.Default()
	}
	return &ListSync{
		src:   src,
		store: snapshot.New[[]Conversation](clock),
		log:   log,
	}
}

// Refresh replaces the list with the server's current set. On failure the previous
// list is kept, the snapshot is marked stale and the error is returned.
func (s *ListSync) Refresh(ctx context.Context) error {
	ticket := s.store.Begin()

	raw, err := s.src.ListConversations(ctx)
	if err != nil {
		err = fmt.Errorf("conversations: fetch: %w", err)
		s.store.Fail(ticket, err)
		return err
	}
	list, err := Normalize(raw)
	if err != nil {
		s.store.Fail(ticket, err)
		return err
	}
	if !s.store.Commit(ticket, list) {
		s.log.Debug("conversation list result superseded", "seq", ticket.Seq())
		return nil
	}
	s.log.Debug("conversation list refreshed", "count", len(list))
	return nil
}

func (s *ListSync) Snapshot() snapshot.Snapshot[[]Conversation] {
	return s.store.Get()
}

// List returns the current list; nil before the first successful refresh.
func (s *ListSync) List() []Conversation {
	return s.store.Get().Value
}

func (s *ListSync) Lookup(phone string) (Conversation, bool) {
	for _, c := range s.store.Get().Value {
		if c.Phone == phone {
			return c, true
		}
	}
	return Conversation{}, false
}

// QualifiedCount counts conversations whose aggregate flag is set.
func (s *ListSync) QualifiedCount() int {
	n := 0
	for _, c := range s.store.Get().Value {
		if c.Qualification.Qualified() {
			n++
		}
	}
	return n
}
