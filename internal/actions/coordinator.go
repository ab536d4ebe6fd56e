// Package actions runs operator commands and resynchronizes the affected views
// right away instead of waiting for the next poll.
package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/audit"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/backend"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/calls"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/leads"
)

var (
	// ErrInvalidArgument is shared with the call tracker so callers check one sentinel.
	ErrInvalidArgument = calls.ErrInvalidArgument
	ErrUnsupportedFile = errors.New("only .csv files are supported")
	ErrCallRejected    = errors.New("call rejected by backend")
)

// Backend is the write side of the backend client.
type Backend interface {
	SendMessage(ctx context.Context, req backend.SendMessageRequest) (backend.SendMessageResponse, error)
	StartCall(ctx context.Context, req backend.StartCallRequest) (backend.StartCallResponse, error)
	UploadLeads(ctx context.Context, filename string, file io.Reader) (json.RawMessage, error)
}

// Refresher is a polled view that can be refreshed out of band.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Recorder receives one entry per command.
type Recorder interface {
	Command(ctx context.Context, workspaceID, operatorID string, typ audit.EventType, target string, err error) error
}

// Settings are sent with every start-call request.
type Settings struct {
	AgentName   string
	Brokerage   string
	DefaultArea string
}

// Actor identifies who issues commands through a coordinator.
type Actor struct {
	WorkspaceID string
	OperatorID  string
}

type Deps struct {
	Backend       Backend
	Conversations Refresher
	CallFeed      Refresher
	Tracker       *calls.Tracker
	Leads         *leads.Directory
	Limiter       CallLimiter
	Audit         Recorder
	Settings      Settings
	Actor         Actor
	Log           *slog.Logger
}

type Coordinator struct {
	d Deps
}

func NewCoordinator(d Deps) *Coordinator {
	if d.Limiter == nil {
		d.Limiter = NoLimit{}
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Tracker == nil {
		d.Tracker = calls.NewTracker(nil, d.Log)
	}
	if d.Leads == nil {
		d.Leads = leads.NewDirectory()
	}
	return &Coordinator{d: d}
}

func (c *Coordinator) Tracker() *calls.Tracker { return c.d.Tracker }

// SendMessage asks the backend to open an SMS conversation with a lead.
// On success the conversation list is refreshed at once; a failed refresh is only logged.
func (c *Coordinator) SendMessage(ctx context.Context, phone, name, area string) error {
	phone, name, area = strings.TrimSpace(phone), strings.TrimSpace(name), strings.TrimSpace(area)
	if phone == "" || name == "" || area == "" {
		return fmt.Errorf("%w: phone, name and area are required", ErrInvalidArgument)
	}

	_, err := c.d.Backend.SendMessage(ctx, backend.SendMessageRequest{LeadPhone: phone, LeadName: name, Area: area})
	c.record(ctx, audit.EventTypeMessageSent, phone, err)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	c.resync(ctx, "conversations", c.d.Conversations)
	return nil
}

// StartCall requests an outbound call to a lead. The lead enters calling before any
// network I/O and ends initiated or failed. A lead is called at most once.
func (c *Coordinator) StartCall(ctx context.Context, leadID string) (calls.Entry, error) {
	leadID = strings.TrimSpace(leadID)
	if leadID == "" {
		return calls.Entry{}, fmt.Errorf("%w: lead id is required", ErrInvalidArgument)
	}
	lead, err := c.d.Leads.Get(leadID)
	if err != nil {
		return calls.Entry{}, err
	}
	if _, err := c.d.Tracker.Begin(leadID, lead.Phone); err != nil {
		return calls.Entry{}, err
	}

	entry, err := c.dispatch(ctx, lead)
	c.record(ctx, audit.EventTypeCallRequested, leadID, err)
	if err != nil {
		return entry, err
	}

	c.resync(ctx, "calls", c.d.CallFeed)
	return entry, nil
}

func (c *Coordinator) dispatch(ctx context.Context, lead leads.Lead) (calls.Entry, error) {
	fail := func(cause error) (calls.Entry, error) {
		e, ferr := c.d.Tracker.Fail(lead.ID, cause)
		if ferr != nil {
			c.d.Log.Error("call tracker transition failed", "lead_id", lead.ID, "err", ferr)
		}
		return e, cause
	}

	release, err := c.d.Limiter.Acquire(ctx, c.d.Actor.WorkspaceID)
	if err != nil {
		return fail(fmt.Errorf("start call: %w", err))
	}
	defer release()

	area := lead.Area
	if area == "" {
		area = c.d.Settings.DefaultArea
	}
	resp, err := c.d.Backend.StartCall(ctx, backend.StartCallRequest{
		LeadPhone: lead.Phone,
		LeadName:  lead.DisplayName(),
		AgentName: c.d.Settings.AgentName,
		Brokerage: c.d.Settings.Brokerage,
		Area:      area,
	})
	if err != nil {
		return fail(fmt.Errorf("start call: %w", err))
	}
	if isErrorStatus(resp.Status) {
		return fail(fmt.Errorf("%w: status %q", ErrCallRejected, resp.Status))
	}

	status, _ := calls.ParseStatus(resp.Status)
	e, err := c.d.Tracker.Initiate(lead.ID, resp.CallID, status)
	if err != nil {
		return calls.Entry{}, err
	}
	return e, nil
}

func isErrorStatus(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "failed", "error":
		return true
	default:
		return false
	}
}

// UploadLeads forwards a CSV file to the backend and adds the imported leads to the directory.
func (c *Coordinator) UploadLeads(ctx context.Context, filename string, file io.Reader) (leads.UploadResult, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if file == nil || filename == "" || filename == "." {
		return leads.UploadResult{}, fmt.Errorf("%w: file is required", ErrInvalidArgument)
	}
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		return leads.UploadResult{}, ErrUnsupportedFile
	}

	res, err := c.upload(ctx, filename, file)
	c.record(ctx, audit.EventTypeLeadsUploaded, filename, err)
	if err != nil {
		return leads.UploadResult{}, err
	}
	c.d.Leads.Add(res.Leads)
	return res, nil
}

func (c *Coordinator) upload(ctx context.Context, filename string, file io.Reader) (leads.UploadResult, error) {
	raw, err := c.d.Backend.UploadLeads(ctx, filename, file)
	if err != nil {
		return leads.UploadResult{}, fmt.Errorf("upload leads: %w", err)
	}
	return leads.NormalizeUpload(raw)
}

func (c *Coordinator) resync(ctx context.Context, view string, r Refresher) {
	if r == nil {
		return
	}
	if err := r.Refresh(ctx); err != nil {
		c.d.Log.Warn("out-of-band refresh failed", "view", view, "err", err)
	}
}

func (c *Coordinator) record(ctx context.Context, typ audit.EventType, target string, cmdErr error) {
	if c.d.Audit == nil {
		return
	}
	if err := c.d.Audit.Command(ctx, c.d.Actor.WorkspaceID, c.d.Actor.OperatorID, typ, target, cmdErr); err != nil {
		c.d.Log.Warn("audit append failed", "type", string(typ), "err", err)
	}
}
