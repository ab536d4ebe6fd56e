package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/audit"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/auth"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/backend"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/config"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/console"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/leads"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/reporting"
)

type stubBackend struct {
	mu        sync.Mutex
	callErr   error
	uploads   []string
	sent      []backend.SendMessageRequest
	callsBody string
}

func (b *stubBackend) ListConversations(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{
		"+15550001": {"lead_name": "Ana", "message_count": 3, "qualification": {"budget": true, "area": true, "timeline": true, "property_type": true, "visa_status": true, "qualified": true}, "last_message": "sounds good"},
		"+15550002": {"lead_name": "Ben", "message_count": 1}
	}`), nil
}

func (b *stubBackend) GetConversation(_ context.Context, phone string) (json.RawMessage, error) {
	return json.RawMessage(`{"messages":[{"role":"assistant","content":"hello"},{"role":"user","content":"hi"}]}`), nil
}

func (b *stubBackend) ListCalls(context.Context) (json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.callsBody == "" {
		return json.RawMessage(`{"calls":[],"total":0}`), nil
	}
	return json.RawMessage(b.callsBody), nil
}

func (b *stubBackend) SendMessage(_ context.Context, req backend.SendMessageRequest) (backend.SendMessageResponse, error) {
	b.mu.Lock()
	b.sent = append(b.sent, req)
	b.mu.Unlock()
	return backend.SendMessageResponse{Status: "sent", Phone: req.LeadPhone}, nil
}

func (b *stubBackend) StartCall(context.Context, backend.StartCallRequest) (backend.StartCallResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.callErr != nil {
		return backend.StartCallResponse{}, b.callErr
	}
	b.callsBody = `{"calls":[{"id":"call-1","lead_phone":"+15550001","status":"ringing","duration_seconds":0}]}`
	return backend.StartCallResponse{CallID: "call-1", Status: "initiated"}, nil
}

func (b *stubBackend) UploadLeads(_ context.Context, filename string, file io.Reader) (json.RawMessage, error) {
	body, _ := io.ReadAll(file)
	b.mu.Lock()
	b.uploads = append(b.uploads, filename+":"+string(body))
	b.mu.Unlock()
	return json.RawMessage(`{"imported":1,"leads":[{"id":"lead-9","name":"Cy","phone":"+15550009","status":"new"}]}`), nil
}

type harness struct {
	router  *gin.Engine
	auth    *auth.Manager
	reg     *console.Registry
	dir     *leads.Directory
	backend *stubBackend
	audit   *audit.MemoryRepo
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("auth: %v", err)
	}

	b := &stubBackend{}
	dir := leads.NewDirectory()
	dir.Replace([]leads.Lead{{ID: "lead-1", Name: "Ana", Phone: "+15550001", Area: "Dubai Marina"}})
	repo := audit.NewMemoryRepo()

	reg := console.NewRegistry(console.Deps{
		Backend:  b,
		Leads:    dir,
		Audit:    audit.NewService(repo),
		Clock:    clockwork.NewFakeClock(),
		Interval: 5 * time.Second,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, time.Hour)
	t.Cleanup(reg.Close)

	r := gin.New()
	Register(r, Handlers{
		Auth:      m,
		Registry:  reg,
		Leads:     dir,
		Reports:   reporting.NewService(),
		Audit:     repo,
		DevTokens: true,
	}, auth.RequireAccessToken(m))

	return &harness{router: r, auth: m, reg: reg, dir: dir, backend: b, audit: repo}
}

func (h *harness) token(t *testing.T, role string) string {
	t.Helper()
	pair, err := h.auth.IssuePair(time.Now(), auth.Identity{OperatorID: "op-1", WorkspaceID: "ws-1", Role: role})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return pair.AccessToken
}

func (h *harness) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) doJSON(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return h.do(t, method, path, token, r, "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestHealthzIsPublic(t *testing.T) {
	h := newHarness(t)
	w := h.doJSON(t, http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestConsoleRoutesRequireToken(t *testing.T) {
	h := newHarness(t)
	w := h.doJSON(t, http.MethodGet, "/v1/conversations", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestDevTokenRoundTrip(t *testing.T) {
	h := newHarness(t)
	w := h.doJSON(t, http.MethodPost, "/auth/token", "", `{"operator_id":"op-2","workspace_id":"ws-1","role":"agent"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var pair auth.TokenPair
	decode(t, w, &pair)

	w = h.doJSON(t, http.MethodGet, "/v1/me", pair.AccessToken, "")
	var id auth.Identity
	decode(t, w, &id)
	if id.OperatorID != "op-2" || id.Role != "agent" {
		t.Fatalf("unexpected identity %+v", id)
	}

	w = h.doJSON(t, http.MethodPost, "/auth/token", "", `{"operator_id":"x","workspace_id":"w","role":"finance"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown role, got %d", w.Code)
	}
}

func TestListConversationsRendersBadges(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "agent")

	if w := h.doJSON(t, http.MethodPost, "/v1/console/dashboard", tok, ""); w.Code != http.StatusOK {
		t.Fatalf("open dashboard: %d", w.Code)
	}
	s, ok := h.reg.Lookup("ws-1", "op-1")
	if !ok {
		t.Fatalf("expected session")
	}
	if err := s.Conversations.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	w := h.doJSON(t, http.MethodGet, "/v1/conversations", tok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp conversationsResponse
	decode(t, w, &resp)
	if len(resp.Conversations) != 2 || resp.Conversations[0].Phone != "+15550001" {
		t.Fatalf("unexpected conversations %+v", resp.Conversations)
	}
	if resp.QualifiedCount != 1 || !resp.Conversations[0].Qualified {
		t.Fatalf("expected one qualified conversation, got %+v", resp)
	}
	ben := resp.Conversations[1]
	if len(ben.Badges) != 5 {
		t.Fatalf("expected five badges, got %+v", ben.Badges)
	}
	for _, b := range ben.Badges {
		if b.Confirmed {
			t.Fatalf("expected unconfirmed badge, got %+v", b)
		}
	}
	if !resp.Loaded || resp.Stale {
		t.Fatalf("unexpected sync state %+v", resp.syncState)
	}
}

func TestThreadFollowsSelection(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "agent")

	if w := h.doJSON(t, http.MethodGet, "/v1/thread", tok, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without selection, got %d", w.Code)
	}
	if w := h.doJSON(t, http.MethodPut, "/v1/console/selection", tok, `{"phone":""}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty phone, got %d", w.Code)
	}
	if w := h.doJSON(t, http.MethodPut, "/v1/console/selection", tok, `{"phone":"+15550001"}`); w.Code != http.StatusOK {
		t.Fatalf("select: %d", w.Code)
	}

	s, _ := h.reg.Lookup("ws-1", "op-1")
	if err := s.Conversations.Refresh(context.Background()); err != nil {
		t.Fatalf("list refresh: %v", err)
	}
	if err := s.Thread.Refresh(context.Background(), "+15550001"); err != nil {
		t.Fatalf("thread refresh: %v", err)
	}

	w := h.doJSON(t, http.MethodGet, "/v1/thread", tok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp threadResponse
	decode(t, w, &resp)
	if resp.Selected != "+15550001" || len(resp.Messages) != 2 {
		t.Fatalf("unexpected thread %+v", resp)
	}
	if resp.Messages[0].Direction != "outbound" || resp.Messages[1].Direction != "inbound" {
		t.Fatalf("unexpected directions %+v", resp.Messages)
	}
	if resp.LeadName != "Ana" || !resp.Qualification["budget"] {
		t.Fatalf("expected list summary fallback, got %+v", resp)
	}

	if w := h.doJSON(t, http.MethodDelete, "/v1/console/selection", tok, ""); w.Code != http.StatusOK {
		t.Fatalf("clear: %d", w.Code)
	}
	if w := h.doJSON(t, http.MethodGet, "/v1/thread", tok, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after clear, got %d", w.Code)
	}
}

func TestStartCallLifecycle(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "agent")

	w := h.doJSON(t, http.MethodPost, "/v1/leads/lead-1/call", tok, "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var entry struct {
		Phase  string `json:"phase"`
		CallID string `json:"call_id"`
	}
	decode(t, w, &entry)
	if entry.Phase != "initiated" || entry.CallID != "call-1" {
		t.Fatalf("unexpected entry %+v", entry)
	}

	if w := h.doJSON(t, http.MethodPost, "/v1/leads/lead-1/call", tok, ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second call, got %d", w.Code)
	}
	if w := h.doJSON(t, http.MethodPost, "/v1/leads/missing/call", tok, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown lead, got %d", w.Code)
	}

	w = h.doJSON(t, http.MethodGet, "/v1/leads", tok, "")
	var list struct {
		Leads []struct {
			ID   string `json:"id"`
			Call *struct {
				Phase  string `json:"phase"`
				Status string `json:"status"`
			} `json:"call"`
		} `json:"leads"`
	}
	decode(t, w, &list)
	if len(list.Leads) != 1 || list.Leads[0].Call == nil || list.Leads[0].Call.Phase != "initiated" {
		t.Fatalf("expected lead with initiated call, got %s", w.Body.String())
	}
	if list.Leads[0].Call.Status != "ringing" {
		t.Fatalf("expected feed status after out-of-band refresh, got %q", list.Leads[0].Call.Status)
	}

	w = h.doJSON(t, http.MethodGet, "/v1/calls", tok, "")
	var feed callsResponse
	decode(t, w, &feed)
	if len(feed.Calls) != 1 || feed.Summary.RingingCalls != 1 {
		t.Fatalf("unexpected calls %s", w.Body.String())
	}

	events := h.audit.Events()
	if len(events) != 1 || events[0].Type != audit.EventTypeCallRequested || events[0].Outcome != audit.OutcomeOK {
		t.Fatalf("expected one call audit event, got %+v", events)
	}
}

func TestStartCallBackendFailure(t *testing.T) {
	h := newHarness(t)
	h.backend.callErr = &backend.APIError{StatusCode: http.StatusInternalServerError, Message: "twilio down"}
	tok := h.token(t, "owner")

	w := h.doJSON(t, http.MethodPost, "/v1/leads/lead-1/call", tok, "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	var resp struct {
		Error string `json:"error"`
		Call  struct {
			Phase string `json:"phase"`
		} `json:"call"`
	}
	decode(t, w, &resp)
	if resp.Call.Phase != "failed" || !strings.Contains(resp.Error, "twilio down") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	w = h.doJSON(t, http.MethodGet, "/v1/call-status", tok, "")
	if !strings.Contains(w.Body.String(), `"phase":"failed"`) {
		t.Fatalf("expected failed entry, got %s", w.Body.String())
	}
}

func TestAnalystCannotCommand(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "analyst")

	w := h.doJSON(t, http.MethodPost, "/v1/messages", tok, `{"lead_phone":"+1","lead_name":"A","area":"B"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if w := h.doJSON(t, http.MethodGet, "/v1/reports/dashboard", tok, ""); w.Code != http.StatusOK {
		t.Fatalf("expected analyst to read reports, got %d", w.Code)
	}
}

func TestSendMessage(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "agent")

	if w := h.doJSON(t, http.MethodPost, "/v1/messages", tok, `{"lead_phone":"+15550003"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %d", w.Code)
	}
	w := h.doJSON(t, http.MethodPost, "/v1/messages", tok, `{"lead_phone":"+15550003","lead_name":"Dee","area":"JVC"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if len(h.backend.sent) != 1 || h.backend.sent[0].Area != "JVC" {
		t.Fatalf("unexpected sends %+v", h.backend.sent)
	}

	s, _ := h.reg.Lookup("ws-1", "op-1")
	if !s.Conversations.Snapshot().Loaded {
		t.Fatalf("expected conversation list refreshed after send")
	}
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadLeads(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "owner")

	body, ct := multipartBody(t, "leads.txt", "name,phone\n")
	if w := h.do(t, http.MethodPost, "/v1/leads/upload", tok, body, ct); w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", w.Code)
	}
	if w := h.doJSON(t, http.MethodPost, "/v1/leads/upload", tok, `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without file, got %d", w.Code)
	}

	body, ct = multipartBody(t, "leads.csv", "name,phone\nCy,+15550009\n")
	w := h.do(t, http.MethodPost, "/v1/leads/upload", tok, body, ct)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res leads.UploadResult
	decode(t, w, &res)
	if res.Imported != 1 || h.dir.Len() != 2 {
		t.Fatalf("expected directory to grow, got %+v (len %d)", res, h.dir.Len())
	}
	if len(h.backend.uploads) != 1 || !strings.HasPrefix(h.backend.uploads[0], "leads.csv:") {
		t.Fatalf("unexpected uploads %v", h.backend.uploads)
	}
}

func TestAuditOwnerOnly(t *testing.T) {
	h := newHarness(t)
	if w := h.doJSON(t, http.MethodGet, "/v1/audit", h.token(t, "agent"), ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for agent, got %d", w.Code)
	}
	if w := h.doJSON(t, http.MethodGet, "/v1/audit?limit=0", h.token(t, "owner"), ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
	if w := h.doJSON(t, http.MethodGet, "/v1/audit", h.token(t, "owner"), ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
