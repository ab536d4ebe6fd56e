package reporting

import (
	"time"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/calls"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/conversations"
)

// Input is the console state a report is computed from.
type Input struct {
	WorkspaceID   string
	Calls         []calls.CallRecord
	Requests      []calls.Entry
	Conversations []conversations.Conversation
	Leads         int

	// CallsStale and ConversationsStale pass through the snapshots' staleness.
	CallsStale         bool
	ConversationsStale bool
}

type CallsSummary struct {
	TotalCalls      int `json:"total_calls"`
	QueuedCalls     int `json:"queued_calls"`
	RingingCalls    int `json:"ringing_calls"`
	InProgressCalls int `json:"in_progress_calls"`
	CompletedCalls  int `json:"completed_calls"`
	FailedCalls     int `json:"failed_calls"`
	NoAnswerCalls   int `json:"no_answer_calls"`
	BusyCalls       int `json:"busy_calls"`
	CanceledCalls   int `json:"canceled_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	RecordedCalls int `json:"recorded_calls"`
}

type ConversionMetrics struct {
	CallsAttempted int `json:"calls_attempted"`
	CallsConnected int `json:"calls_connected"`
	Conversations  int `json:"conversations"`
	Qualified      int `json:"qualified"`

	ConnectionRate    float64 `json:"connection_rate"`
	QualificationRate float64 `json:"qualification_rate"`
}

// DashboardStats are the headline figures of the operator dashboard.
type DashboardStats struct {
	WorkspaceID string `json:"workspace_id"`

	Leads          int `json:"leads"`
	CallsRequested int `json:"calls_requested"`
	CallsInitiated int `json:"calls_initiated"`
	CallsFailed    int `json:"calls_failed"`

	Calls      CallsSummary      `json:"calls"`
	Conversion ConversionMetrics `json:"conversion"`

	Stale       bool      `json:"stale"`
	GeneratedAt time.Time `json:"generated_at"`
}
