package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the append-only persistence contract for audit events.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Lister reads back recent events for ops review.
type Lister interface {
	Recent(ctx context.Context, workspaceID string, limit int) ([]Event, error)
}

// Service records operator commands. Callers treat it as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.WorkspaceID == "" || e.Type == "" {
		return ErrInvalidEvent
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeOK
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Command records the outcome of one operator command; err nil means success.
func (s *Service) Command(ctx context.Context, workspaceID, operatorID string, typ EventType, target string, err error) error {
	e := Event{
		WorkspaceID: workspaceID,
		OperatorID:  operatorID,
		Type:        typ,
		Target:      target,
		Outcome:     OutcomeOK,
	}
	if err != nil {
		e.Outcome = OutcomeFailed
		e.Message = err.Error()
	}
	return s.Append(ctx, e)
}
