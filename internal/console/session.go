// Package console composes the sync components into one live session per operator.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/actions"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/calls"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/conversations"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/leads"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/scheduler"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/thread"
)

// Backend is everything a session reads from and writes to.
type Backend interface {
	conversations.Source
	thread.Source
	calls.FeedSource
	actions.Backend
}

// Deps are shared by every session of a registry.
type Deps struct {
	Backend  Backend
	Leads    *leads.Directory
	Limiter  actions.CallLimiter
	Audit    actions.Recorder
	Settings actions.Settings
	Clock    clockwork.Clock
	// Interval is the poll interval for all three views.
	Interval time.Duration
	Log      *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Interval <= 0 {
		d.Interval = scheduler.DefaultPollInterval
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Leads == nil {
		d.Leads = leads.NewDirectory()
	}
	return d
}

const (
	keyConversations = "conversations"
	keyCallFeed      = "calls"
)

// Session is one operator's live console state.
type Session struct {
	ID          string
	WorkspaceID string
	OperatorID  string

	Conversations *conversations.ListSync
	Thread        *thread.Sync
	Tracker       *calls.Tracker
	Feed          *calls.FeedSync
	Actions       *actions.Coordinator

	listTimer   *scheduler.Scheduler
	threadTimer *scheduler.Scheduler
	feedTimer   *scheduler.Scheduler

	// selMu keeps the thread selection and the thread timer key in step.
	selMu sync.Mutex

	clock clockwork.Clock
	log   *slog.Logger

	mu       sync.Mutex
	lastSeen time.Time
	closed   bool
}

func NewSession(workspaceID, operatorID string, d Deps) *Session {
	d = d.withDefaults()
	id := uuid.NewString()
	log := d.Log.With("session_id", id, "operator_id", operatorID)

	s := &Session{
		ID:          id,
		WorkspaceID: workspaceID,
		OperatorID:  operatorID,
		clock:       d.Clock,
		log:         log,
		lastSeen:    d.Clock.Now(),
	}
	s.Conversations = conversations.NewListSync(d.Backend, d.Clock, log.With("component", "conversations"))
	s.Thread = thread.NewSync(d.Backend, d.Clock, log.With("component", "thread"))
	s.Tracker = calls.NewTracker(d.Clock, log.With("component", "call_tracker"))
	s.Feed = calls.NewFeedSync(d.Backend, s.Tracker, d.Clock, log.With("component", "call_feed"))
	s.Actions = actions.NewCoordinator(actions.Deps{
		Backend:       d.Backend,
		Conversations: s.Conversations,
		CallFeed:      s.Feed,
		Tracker:       s.Tracker,
		Leads:         d.Leads,
		Limiter:       d.Limiter,
		Audit:         d.Audit,
		Settings:      d.Settings,
		Actor:         actions.Actor{WorkspaceID: workspaceID, OperatorID: operatorID},
		Log:           log.With("component", "actions"),
	})

	s.listTimer = scheduler.New(keyConversations, d.Interval, d.Clock, log)
	s.threadTimer = scheduler.New("thread", d.Interval, d.Clock, log)
	s.feedTimer = scheduler.New(keyCallFeed, d.Interval, d.Clock, log)
	return s
}

// OpenDashboard starts polling the conversation list.
func (s *Session) OpenDashboard() {
	s.listTimer.Activate(keyConversations, s.Conversations.Refresh)
}

// CloseDashboard stops list and thread polling and drops the selection.
func (s *Session) CloseDashboard() {
	s.listTimer.Deactivate()
	s.ClearSelection()
}

// Select focuses a conversation and polls its thread. Selecting another phone
// replaces the thread timer; reselecting the same phone changes nothing.
func (s *Session) Select(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return fmt.Errorf("%w: phone is required", actions.ErrInvalidArgument)
	}
	s.selMu.Lock()
	defer s.selMu.Unlock()
	s.Thread.Select(phone)
	s.threadTimer.Activate(phone, func(ctx context.Context) error {
		return s.Thread.Refresh(ctx, phone)
	})
	return nil
}

func (s *Session) ClearSelection() {
	s.selMu.Lock()
	defer s.selMu.Unlock()
	s.threadTimer.Deactivate()
	s.Thread.Clear()
}

// OpenCallsView starts polling the call feed.
func (s *Session) OpenCallsView() {
	s.feedTimer.Activate(keyCallFeed, s.Feed.Refresh)
}

func (s *Session) CloseCallsView() {
	s.feedTimer.Deactivate()
}

// Status reports which views are being polled.
type Status struct {
	SessionID     string `json:"session_id"`
	DashboardOpen bool   `json:"dashboard_open"`
	Selected      string `json:"selected,omitempty"`
	CallsViewOpen bool   `json:"calls_view_open"`
}

func (s *Session) Status() Status {
	_, list := s.listTimer.Active()
	sel, _ := s.threadTimer.Active()
	_, feed := s.feedTimer.Active()
	return Status{SessionID: s.ID, DashboardOpen: list, Selected: sel, CallsViewOpen: feed}
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.clock.Now()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close stops every timer. In-flight refreshes finish but are not awaited.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.listTimer.Deactivate()
	s.ClearSelection()
	s.feedTimer.Deactivate()
	s.log.Info("console session closed")
}
