// Package backend is the HTTP client for the calls, SMS and leads backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 15 * time.Second

	pathConversations = "/api/sms/conversations"
	pathSendMessage   = "/api/sms/send"
	pathCalls         = "/api/calls"
	pathStartCall     = "/api/calls/start"
	pathLeads         = "/api/leads"
	pathUploadLeads   = "/api/leads/upload"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: http %d", e.StatusCode)
	}
	return fmt.Sprintf("backend: http %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the transport entirely; WithTimeout applied after it still takes effect.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// ListConversations returns the raw conversations payload: an array of summaries or a phone-keyed object.
func (c *Client) ListConversations(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, pathConversations)
}

func (c *Client) GetConversation(ctx context.Context, phone string) (json.RawMessage, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, fmt.Errorf("backend: phone is required")
	}
	return c.getRaw(ctx, pathConversations+"/"+url.PathEscape(phone))
}

// ListCalls returns the raw call feed: {"calls": [...], "total": n} or a bare array.
func (c *Client) ListCalls(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, pathCalls)
}

func (c *Client) ListLeads(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, pathLeads)
}

type SendMessageRequest struct {
	LeadPhone string `json:"lead_phone"`
	LeadName  string `json:"lead_name"`
	Area      string `json:"area"`
}

type SendMessageResponse struct {
	Status  string `json:"status"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (SendMessageResponse, error) {
	var out SendMessageResponse
	if err := c.doJSON(ctx, http.MethodPost, pathSendMessage, req, &out); err != nil {
		return SendMessageResponse{}, err
	}
	return out, nil
}

type StartCallRequest struct {
	LeadPhone string `json:"lead_phone"`
	LeadName  string `json:"lead_name"`
	AgentName string `json:"agent_name"`
	Brokerage string `json:"brokerage"`
	Area      string `json:"area"`
}

type StartCallResponse struct {
	CallID string `json:"call_id"`
	Status string `json:"status"`
}

func (c *Client) StartCall(ctx context.Context, req StartCallRequest) (StartCallResponse, error) {
	var out StartCallResponse
	if err := c.doJSON(ctx, http.MethodPost, pathStartCall, req, &out); err != nil {
		return StartCallResponse{}, err
	}
	return out, nil
}

// UploadLeads posts the file as multipart field "file" and returns the raw {"imported", "leads"} payload.
func (c *Client) UploadLeads(ctx context.Context, filename string, file io.Reader) (json.RawMessage, error) {
	if file == nil {
		return nil, fmt.Errorf("backend: file is required")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("backend: create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("backend: read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("backend: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathUploadLeads, &buf)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return c.send(req)
}

func (c *Client) getRaw(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.send(req)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, result any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: marshal request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	raw, err := c.send(req)
	if err != nil {
		return err
	}
	if result != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("backend: decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) send(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return json.RawMessage(body), nil
}

// errorMessage extracts FastAPI's {"detail": ...} or a generic {"error"|"message": ...}.
func errorMessage(body []byte) string {
	var env struct {
		Detail  json.RawMessage `json:"detail"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if len(env.Detail) > 0 {
			var s string
			if json.Unmarshal(env.Detail, &s) == nil {
				return s
			}
			return string(env.Detail)
		}
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return msg
}
