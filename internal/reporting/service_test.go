package reporting

import (
	"errors"
	"testing"
	"time"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/calls"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/conversations"
)

func TestCallsSummary_CountsByStatus(t *testing.T) {
	svc := NewService()
	out := svc.CallsSummary([]calls.CallRecord{
		{ID: "c1", Status: calls.CallStatusCompleted, DurationSeconds: 30, RecordingURL: "https://r/1"},
		{ID: "c2", Status: calls.CallStatusCompleted, DurationSeconds: 50},
		{ID: "c3", Status: calls.CallStatusNoAnswer},
		{ID: "c4", Status: calls.CallStatusRinging},
	})
	if out.TotalCalls != 4 || out.CompletedCalls != 2 || out.NoAnswerCalls != 1 || out.RingingCalls != 1 {
		t.Fatalf("unexpected counts: %+v", out)
	}
	if out.TotalDurationSeconds != 80 || out.AverageDurationSeconds != 20 || out.RecordedCalls != 1 {
		t.Fatalf("unexpected durations: %+v", out)
	}
}

func TestCallsSummary_UnrankedStatusCountsAsQueued(t *testing.T) {
	out := NewService().CallsSummary([]calls.CallRecord{
		{ID: "c1", Status: calls.CallStatusUnknown},
		{ID: "c2", Status: calls.CallStatus("voicemail")},
		{ID: "c3", Status: calls.CallStatusQueued},
	})
	if out.TotalCalls != 3 || out.QueuedCalls != 3 {
		t.Fatalf("unexpected counts: %+v", out)
	}
}

func TestDashboard_Aggregates(t *testing.T) {
	svc := NewService()
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return fixed }

	out, err := svc.Dashboard(Input{
		WorkspaceID: "w1",
		Leads:       10,
		Calls: []calls.CallRecord{
			{ID: "c1", Status: calls.CallStatusCompleted},
			{ID: "c2", Status: calls.CallStatusFailed},
		},
		Requests: []calls.Entry{
			{LeadID: "a", Phase: calls.PhaseInitiated},
			{LeadID: "b", Phase: calls.PhaseFailed},
			{LeadID: "c", Phase: calls.PhaseCalling},
		},
		Conversations: []conversations.Conversation{
			{Phone: "+1", Qualification: conversations.Qualification{"qualified": true}},
			{Phone: "+2"},
		},
		ConversationsStale: true,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Leads != 10 || out.CallsRequested != 3 || out.CallsInitiated != 1 || out.CallsFailed != 1 {
		t.Fatalf("unexpected stats: %+v", out)
	}
	if out.Conversion.Qualified != 1 || out.Conversion.QualificationRate != 0.5 || out.Conversion.ConnectionRate != 0.5 {
		t.Fatalf("unexpected conversion: %+v", out.Conversion)
	}
	if !out.Stale || !out.GeneratedAt.Equal(fixed) {
		t.Fatalf("unexpected metadata: %+v", out)
	}
}

func TestDashboard_RequiresWorkspace(t *testing.T) {
	if _, err := NewService().Dashboard(Input{}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
