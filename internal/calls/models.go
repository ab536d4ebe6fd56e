package calls

import (
	"strings"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/conversations"
)

// CallRecord is one call as reported by the backend's call feed.
// After creation only the feed changes it.
type CallRecord struct {
	ID        string `json:"id"`
	LeadName  string `json:"lead_name"`
	LeadPhone string `json:"lead_phone"`
	AgentName string `json:"agent_name,omitempty"`
	Area      string `json:"area,omitempty"`
	Direction string `json:"direction,omitempty"`

	Status CallStatus `json:"status"`

	StartedAt string `json:"started_at,omitempty"`
	EndedAt   string `json:"ended_at,omitempty"`

	// DurationSeconds is zero until the provider reports it.
	DurationSeconds int `json:"duration_seconds"`

	RecordingURL  string                      `json:"recording_url,omitempty"`
	Summary       string                      `json:"summary,omitempty"`
	Qualification conversations.Qualification `json:"qualification,omitempty"`
}

type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusInitiated  CallStatus = "initiated"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusBusy       CallStatus = "busy"
	CallStatusNoAnswer   CallStatus = "no-answer"
	CallStatusCanceled   CallStatus = "canceled"

	// CallStatusUnknown stands in for a missing status. It has no rank.
	CallStatusUnknown CallStatus = "unknown"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []CallStatus{
	CallStatusQueued,
	CallStatusInitiated,
	CallStatusRinging,
	CallStatusInProgress,
	CallStatusCompleted,
	CallStatusFailed,
	CallStatusBusy,
	CallStatusNoAnswer,
	CallStatusCanceled,
}

const rankTerminal = 4

var statusRank = map[CallStatus]int{
	CallStatusQueued:     0,
	CallStatusInitiated:  1,
	CallStatusRinging:    2,
	CallStatusInProgress: 3,
	CallStatusCompleted:  rankTerminal,
	CallStatusFailed:     rankTerminal,
	CallStatusBusy:       rankTerminal,
	CallStatusNoAnswer:   rankTerminal,
	CallStatusCanceled:   rankTerminal,
}

// ParseStatus accepts the backend's spellings, including underscore forms and
// "answered" for inbound calls. ok is false for anything unrecognised.
func ParseStatus(s string) (CallStatus, bool) {
	v := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch v {
	case "answered":
		return CallStatusInProgress, true
	case "cancelled":
		return CallStatusCanceled, true
	}
	st := CallStatus(v)
	_, ok := statusRank[st]
	return st, ok
}

// Rank orders statuses along the lifecycle; unknown statuses rank -1.
func (s CallStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

func (s CallStatus) Valid() bool { return s.Rank() >= 0 }

func (s CallStatus) Terminal() bool { return s.Rank() == rankTerminal }

// Advances reports whether moving from s to next goes forward along the lifecycle.
// Terminal statuses never change.
func (s CallStatus) Advances(next CallStatus) bool {
	if !s.Valid() {
		return next.Valid()
	}
	return next.Rank() > s.Rank()
}
