package calls

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrCallAlreadyRequested = errors.New("call already requested for lead")
	ErrNotTracked           = errors.New("lead has no call request")
	ErrInvalidTransition    = errors.New("invalid call phase transition")
)

// Phase is the console's own view of a call request: calling, then initiated or failed.
// A lead without an entry has not been called.
type Phase string

const (
	PhaseCalling   Phase = "calling"
	PhaseInitiated Phase = "initiated"
	PhaseFailed    Phase = "failed"
)

// Entry is the lifecycle of one lead's call request.
type Entry struct {
	LeadID    string `json:"lead_id"`
	LeadPhone string `json:"lead_phone"`
	Phase     Phase  `json:"phase"`

	CallID string `json:"call_id,omitempty"`

	// Status is the start-call response status while Provisional, and the
	// authoritative feed status after the feed first reports the call.
	Status      CallStatus `json:"status,omitempty"`
	Provisional bool       `json:"provisional"`

	Error       string    `json:"error,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Tracker holds one entry per lead. Phases only move calling -> initiated|failed.
type Tracker struct {
	clock clockwork.Clock
	log   *slog.Logger

	mu      sync.Mutex
	entries map[string]*Entry
	byCall  map[string]string
}

func NewTracker(clock clockwork.Clock, log *slog.Logger) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		clock:   clock,
		log:     log,
		entries: map[string]*Entry{},
		byCall:  map[string]string{},
	}
}

// Begin records a call request before any network I/O. A lead that already has an
// entry, whatever its phase, is rejected.
func (t *Tracker) Begin(leadID, leadPhone string) (Entry, error) {
	leadID = strings.TrimSpace(leadID)
	if leadID == "" {
		return Entry{}, fmt.Errorf("%w: lead id is required", ErrInvalidArgument)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[leadID]; ok {
		return *e, fmt.Errorf("%w: %s is %s", ErrCallAlreadyRequested, leadID, e.Phase)
	}
	now := t.clock.Now()
	e := &Entry{
		LeadID:      leadID,
		LeadPhone:   leadPhone,
		Phase:       PhaseCalling,
		RequestedAt: now,
		UpdatedAt:   now,
	}
	t.entries[leadID] = e
	return *e, nil
}

// Initiate moves calling -> initiated. callID may be empty when the backend did not return one.
func (t *Tracker) Initiate(leadID, callID string, status CallStatus) (Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, err := t.callingLocked(leadID)
	if err != nil {
		return Entry{}, err
	}
	e.Phase = PhaseInitiated
	e.CallID = strings.TrimSpace(callID)
	if !status.Valid() {
		status = CallStatusInitiated
	}
	e.Status = status
	e.UpdatedAt = t.clock.Now()
	if e.CallID != "" {
		e.Provisional = true
		t.byCall[e.CallID] = leadID
	}
	return *e, nil
}

// Fail moves calling -> failed. Failures are final; the lead is not retried.
func (t *Tracker) Fail(leadID string, cause error) (Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, err := t.callingLocked(leadID)
	if err != nil {
		return Entry{}, err
	}
	e.Phase = PhaseFailed
	if cause != nil {
		e.Error = cause.Error()
	}
	e.UpdatedAt = t.clock.Now()
	return *e, nil
}

func (t *Tracker) callingLocked(leadID string) (*Entry, error) {
	e, ok := t.entries[leadID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotTracked, leadID)
	}
	if e.Phase != PhaseCalling {
		return nil, fmt.Errorf("%w: %s is %s", ErrInvalidTransition, leadID, e.Phase)
	}
	return e, nil
}

func (t *Tracker) Get(leadID string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[leadID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns every entry, oldest request first.
func (t *Tracker) Entries() []Entry {
	t.mu.Lock()
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].RequestedAt.Before(out[j].RequestedAt)
		}
		return out[i].LeadID < out[j].LeadID
	})
	return out
}

// Count returns the number of leads with a call request.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Reconcile applies authoritative feed statuses to entries that know their call id.
// The first report replaces the provisional status; later reports only move forward.
// Regressions are ignored and logged. It returns how many entries changed.
func (t *Tracker) Reconcile(records []CallRecord) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := 0
	for _, r := range records {
		leadID, ok := t.byCall[r.ID]
		if !ok || !r.Status.Valid() {
			continue
		}
		e := t.entries[leadID]
		switch {
		case e.Provisional:
			e.Provisional = false
			e.Status = r.Status
		case e.Status.Advances(r.Status):
			e.Status = r.Status
		case r.Status != e.Status:
			t.log.Warn("ignoring call status regression",
				"call_id", r.ID,
				"lead_id", leadID,
				"current", string(e.Status),
				"reported", string(r.Status),
			)
			continue
		default:
			continue
		}
		e.UpdatedAt = t.clock.Now()
		changed++
	}
	return changed
}
