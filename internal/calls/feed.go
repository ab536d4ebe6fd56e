package calls

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/snapshot"
)

// FeedSource fetches the authoritative call list.
type FeedSource interface {
	ListCalls(ctx context.Context) (json.RawMessage, error)
}

// FeedSync keeps the latest call feed and reconciles the tracker with it.
// A call's status never moves backwards between committed snapshots.
type FeedSync struct {
	src     FeedSource
	tracker *Tracker
	store   *snapshot.Store[[]CallRecord]
	log     *slog.Logger

	mu   sync.Mutex
	seen map[string]CallStatus
}

func NewFeedSync(src FeedSource, tracker *Tracker, clock clockwork.Clock, log *slog.Logger) *FeedSync {
	if log == nil {
		log = slog.Default()
	}
	return &FeedSync{
		src:     src,
		tracker: tracker,
		store:   snapshot.New[[]CallRecord](clock),
		log:     log,
		seen:    map[string]CallStatus{},
	}
}

func (f *FeedSync) Refresh(ctx context.Context) error {
	ticket := f.store.Begin()

	raw, err := f.src.ListCalls(ctx)
	if err != nil {
		err = fmt.Errorf("calls: fetch feed: %w", err)
		f.store.Fail(ticket, err)
		return err
	}
	records, err := NormalizeFeed(raw)
	if err != nil {
		f.store.Fail(ticket, err)
		return err
	}

	f.mu.Lock()
	seen := f.holdForward(records)
	committed := f.store.Commit(ticket, records)
	if committed {
		f.seen = seen
	}
	f.mu.Unlock()

	if !committed {
		f.log.Debug("call feed result superseded", "seq", ticket.Seq())
		return nil
	}
	if f.tracker != nil {
		if n := f.tracker.Reconcile(records); n > 0 {
			f.log.Debug("call tracker reconciled", "changed", n)
		}
	}
	return nil
}

// holdForward rewrites regressed statuses in place to the furthest status already seen.
// Caller holds f.mu.
func (f *FeedSync) holdForward(records []CallRecord) map[string]CallStatus {
	next := make(map[string]CallStatus, len(records))
	for k, v := range f.seen {
		next[k] = v
	}
	for i := range records {
		r := &records[i]
		prev, ok := next[r.ID]
		if ok && r.Status != prev && !prev.Advances(r.Status) {
			f.log.Warn("ignoring call status regression in feed",
				"call_id", r.ID,
				"current", string(prev),
				"reported", string(r.Status),
			)
			r.Status = prev
			continue
		}
		next[r.ID] = r.Status
	}
	return next
}

func (f *FeedSync) Snapshot() snapshot.Snapshot[[]CallRecord] {
	return f.store.Get()
}

func (f *FeedSync) Records() []CallRecord {
	return f.store.Get().Value
}
