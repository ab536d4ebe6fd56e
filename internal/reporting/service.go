package reporting

import (
	"errors"
	"time"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

type Service struct {
	clock func() time.Time
}

func NewService() *Service { return &Service{clock: time.Now} }

// CallsSummary aggregates the call feed by status.
func (s *Service) CallsSummary(records []calls.CallRecord) CallsSummary {
	out := CallsSummary{}
	for _, c := range records {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		if c.RecordingURL != "" {
			out.RecordedCalls++
		}
		switch c.Status {
		case calls.CallStatusQueued, calls.CallStatusInitiated:
			out.QueuedCalls++
		case calls.CallStatusRinging:
			out.RingingCalls++
		case calls.CallStatusInProgress:
			out.InProgressCalls++
		case calls.CallStatusCompleted:
			out.CompletedCalls++
		case calls.CallStatusFailed:
			out.FailedCalls++
		case calls.CallStatusNoAnswer:
			out.NoAnswerCalls++
		case calls.CallStatusBusy:
			out.BusyCalls++
		case calls.CallStatusCanceled:
			out.CanceledCalls++
		default:
			// Unranked statuses are shown as queued.
			out.QueuedCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out
}

// Dashboard computes the dashboard figures for one workspace.
func (s *Service) Dashboard(in Input) (DashboardStats, error) {
	if in.WorkspaceID == "" {
		return DashboardStats{}, ErrInvalidRequest
	}

	out := DashboardStats{
		WorkspaceID:    in.WorkspaceID,
		Leads:          in.Leads,
		CallsRequested: len(in.Requests),
		Calls:          s.CallsSummary(in.Calls),
		Stale:          in.CallsStale || in.ConversationsStale,
		GeneratedAt:    s.clock().UTC(),
	}
	for _, e := range in.Requests {
		switch e.Phase {
		case calls.PhaseInitiated:
			out.CallsInitiated++
		case calls.PhaseFailed:
			out.CallsFailed++
		}
	}

	conv := ConversionMetrics{
		CallsAttempted: out.Calls.TotalCalls,
		CallsConnected: out.Calls.CompletedCalls + out.Calls.InProgressCalls,
		Conversations:  len(in.Conversations),
	}
	for _, c := range in.Conversations {
		if c.Qualification.Qualified() {
			conv.Qualified++
		}
	}
	if conv.CallsAttempted > 0 {
		conv.ConnectionRate = float64(conv.CallsConnected) / float64(conv.CallsAttempted)
	}
	if conv.Conversations > 0 {
		conv.QualificationRate = float64(conv.Qualified) / float64(conv.Conversations)
	}
	out.Conversion = conv
	return out, nil
}
