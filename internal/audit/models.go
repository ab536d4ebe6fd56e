package audit

import "time"

// Event is an append-only record of one operator command.
//
// Events are never updated or deleted. workspace_id is required.
type Event struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`
	OperatorID  string `json:"operator_id,omitempty" db:"operator_id"`

	Type EventType `json:"type" db:"type"`

	// Target is the phone, lead id or file name the command acted on.
	Target  string  `json:"target,omitempty" db:"target"`
	Outcome Outcome `json:"outcome" db:"outcome"`

	// Message carries the error text for failed commands.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeMessageSent   EventType = "message_sent"
	EventTypeCallRequested EventType = "call_requested"
	EventTypeLeadsUploaded EventType = "leads_uploaded"
)

type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeFailed Outcome = "failed"
)
