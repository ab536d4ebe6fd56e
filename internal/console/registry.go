package console

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/scheduler"
)

const (
	DefaultIdleTTL   = 30 * time.Minute
	minSweepInterval = time.Second
	maxSweepInterval = time.Minute
)

// Registry holds one session per operator and closes sessions left idle.
type Registry struct {
	deps    Deps
	idleTTL time.Duration
	log     *slog.Logger
	sweeper *scheduler.Scheduler

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(d Deps, idleTTL time.Duration) *Registry {
	d = d.withDefaults()
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	every := idleTTL / 4
	if every < minSweepInterval {
		every = minSweepInterval
	}
	if every > maxSweepInterval {
		every = maxSweepInterval
	}
	return &Registry{
		deps:     d,
		idleTTL:  idleTTL,
		log:      d.Log,
		sweeper:  scheduler.New("session_sweeper", every, d.Clock, d.Log),
		sessions: map[string]*Session{},
	}
}

func sessionKey(workspaceID, operatorID string) string {
	return workspaceID + "/" + operatorID
}

// Session returns the operator's session, creating it on first use, and marks it used.
func (r *Registry) Session(workspaceID, operatorID string) *Session {
	key := sessionKey(workspaceID, operatorID)
	r.mu.Lock()
	s, ok := r.sessions[key]
	if !ok {
		s = NewSession(workspaceID, operatorID, r.deps)
		r.sessions[key] = s
		r.log.Info("console session opened", "session_id", s.ID, "workspace_id", workspaceID, "operator_id", operatorID)
	}
	r.mu.Unlock()
	s.Touch()
	return s
}

// Lookup returns an existing session without creating or touching it.
func (r *Registry) Lookup(workspaceID, operatorID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionKey(workspaceID, operatorID)]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the TTL.
func (r *Registry) Sweep(context.Context) error {
	now := r.deps.Clock.Now()
	var idle []*Session

	r.mu.Lock()
	for key, s := range r.sessions {
		if now.Sub(s.LastSeen()) > r.idleTTL {
			idle = append(idle, s)
			delete(r.sessions, key)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	if len(idle) > 0 {
		r.log.Info("idle console sessions closed", "count", len(idle))
	}
	return nil
}

// Start runs the idle sweeper until Close.
func (r *Registry) Start() {
	r.sweeper.Activate("sweep", r.Sweep)
}

// Close stops the sweeper and every session.
func (r *Registry) Close() {
	r.sweeper.Deactivate()
	r.mu.Lock()
	all := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
