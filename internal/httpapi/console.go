package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/calls"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/conversations"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/leads"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/reporting"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/snapshot"
	"github.com/kimchiprasadyadav-beep/callharvey/pkg/logger"
)

// syncState is the freshness metadata attached to every polled view.
type syncState struct {
	Loaded    bool      `json:"loaded"`
	SyncedAt  time.Time `json:"synced_at"`
	Stale     bool      `json:"stale"`
	Failures  int       `json:"failures"`
	LastError string    `json:"last_error,omitempty"`
}

func stateOf[T any](s snapshot.Snapshot[T]) syncState {
	return syncState{
		Loaded:    s.Loaded,
		SyncedAt:  s.SyncedAt,
		Stale:     s.Stale,
		Failures:  s.Failures,
		LastError: s.LastErr,
	}
}

// --- Views ---

func (h Handlers) OpenDashboard(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.OpenDashboard()
	c.JSON(http.StatusOK, s.Status())
}

func (h Handlers) CloseDashboard(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.CloseDashboard()
	c.JSON(http.StatusOK, s.Status())
}

func (h Handlers) OpenCallsView(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.OpenCallsView()
	c.JSON(http.StatusOK, s.Status())
}

func (h Handlers) CloseCallsView(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.CloseCallsView()
	c.JSON(http.StatusOK, s.Status())
}

func (h Handlers) ConsoleStatus(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Status())
}

type conversationView struct {
	conversations.Conversation
	Qualified bool                  `json:"qualified"`
	Badges    []conversations.Badge `json:"badges"`
}

type conversationsResponse struct {
	Conversations  []conversationView `json:"conversations"`
	QualifiedCount int                `json:"qualified_count"`
	syncState
}

func (h Handlers) ListConversations(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	snap := s.Conversations.Snapshot()
	out := make([]conversationView, 0, len(snap.Value))
	qualified := 0
	for _, conv := range snap.Value {
		q := conv.Qualification.Qualified()
		if q {
			qualified++
		}
		out = append(out, conversationView{
			Conversation: conv,
			Qualified:    q,
			Badges:       conversations.Badges(conv.Qualification),
		})
	}
	c.JSON(http.StatusOK, conversationsResponse{
		Conversations:  out,
		QualifiedCount: qualified,
		syncState:      stateOf(snap),
	})
}

type selectRequest struct {
	Phone string `json:"phone"`
}

func (h Handlers) Select(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := s.Select(req.Phone); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Status())
}

func (h Handlers) ClearSelection(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.ClearSelection()
	c.JSON(http.StatusOK, s.Status())
}

type threadResponse struct {
	Selected      string                      `json:"selected"`
	LeadName      string                      `json:"lead_name"`
	Messages      []threadMessage             `json:"messages"`
	Badges        []conversations.Badge       `json:"badges"`
	Qualification conversations.Qualification `json:"qualification"`
	syncState
}

type threadMessage struct {
	ID        string `json:"id"`
	Direction string `json:"direction"`
	Body      string `json:"body"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Thread returns the selected transcript. Qualification falls back to the list
// summary while the thread has no qualification of its own.
func (h Handlers) Thread(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	view, selected := s.Thread.Current()
	if !selected {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no conversation selected"})
		return
	}

	t := view.Value
	qual := t.Qualification
	name := t.LeadName
	if summary, found := s.Conversations.Lookup(view.Selected); found {
		if len(qual) == 0 {
			qual = summary.Qualification
		}
		if name == "" || name == view.Selected {
			name = summary.LeadName
		}
	}
	msgs := make([]threadMessage, 0, len(t.Messages))
	for _, m := range t.Messages {
		msgs = append(msgs, threadMessage{
			ID:        m.ID,
			Direction: string(m.Direction),
			Body:      m.Body,
			Role:      m.Role,
			CreatedAt: m.CreatedAt,
		})
	}
	if qual == nil {
		qual = conversations.Qualification{}
	}
	c.JSON(http.StatusOK, threadResponse{
		Selected:      view.Selected,
		LeadName:      name,
		Messages:      msgs,
		Badges:        conversations.Badges(qual),
		Qualification: qual,
		syncState:     stateOf(view.Snapshot),
	})
}

type leadView struct {
	leads.Lead
	Call *calls.Entry `json:"call,omitempty"`
}

// ListLeads returns the lead directory with each lead's call request, if any.
func (h Handlers) ListLeads(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	tracker := s.Actions.Tracker()
	list := h.Leads.List()
	out := make([]leadView, 0, len(list))
	for _, l := range list {
		v := leadView{Lead: l}
		if e, found := tracker.Get(l.ID); found {
			v.Call = &e
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, gin.H{"leads": out, "total": len(out)})
}

func (h Handlers) CallStatus(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	entries := s.Actions.Tracker().Entries()
	c.JSON(http.StatusOK, gin.H{"requests": entries, "total": len(entries)})
}

type callsResponse struct {
	Calls   []calls.CallRecord     `json:"calls"`
	Summary reporting.CallsSummary `json:"summary"`
	syncState
}

func (h Handlers) ListCalls(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	snap := s.Feed.Snapshot()
	records := snap.Value
	if records == nil {
		records = []calls.CallRecord{}
	}
	c.JSON(http.StatusOK, callsResponse{
		Calls:     records,
		Summary:   h.Reports.CallsSummary(records),
		syncState: stateOf(snap),
	})
}

func (h Handlers) DashboardReport(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	convs := s.Conversations.Snapshot()
	feed := s.Feed.Snapshot()
	stats, err := h.Reports.Dashboard(reporting.Input{
		WorkspaceID:        s.WorkspaceID,
		Calls:              feed.Value,
		Requests:           s.Actions.Tracker().Entries(),
		Conversations:      convs.Value,
		Leads:              h.Leads.Len(),
		CallsStale:         feed.Stale,
		ConversationsStale: convs.Stale,
	})
	if err != nil {
		logger.FromGin(c).Error("dashboard report failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// --- Commands ---

type sendMessageRequest struct {
	Phone string `json:"lead_phone"`
	Name  string `json:"lead_name"`
	Area  string `json:"area"`
}

func (h Handlers) SendMessage(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := s.Actions.SendMessage(c.Request.Context(), req.Phone, req.Name, req.Area); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent", "lead_phone": req.Phone})
}

func (h Handlers) StartCall(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	entry, err := s.Actions.StartCall(c.Request.Context(), c.Param("lead_id"))
	if err != nil {
		if entry.Phase == calls.PhaseFailed {
			code := statusFor(err)
			logger.FromGin(c).Info("call request failed", "lead_id", entry.LeadID, "status", code, "err", err)
			c.AbortWithStatusJSON(code, gin.H{"error": err.Error(), "call": entry})
			return
		}
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, entry)
}

const maxUploadBytes = 10 << 20

func (h Handlers) UploadLeads(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "multipart field file required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer f.Close()

	res, err := s.Actions.UploadLeads(c.Request.Context(), fh.Filename, f)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
