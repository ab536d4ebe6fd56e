package audit

import (
	"context"
	"sync"
)

// MemoryRepo is the default repository when no database is configured.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Recent returns the newest events for a workspace.
func (r *MemoryRepo) Recent(_ context.Context, workspaceID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Event{}
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.events[i].WorkspaceID == workspaceID {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}
