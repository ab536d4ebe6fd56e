package thread

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/conversations"
)

var ErrMalformed = errors.New("thread: malformed payload")

type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

type Message struct {
	ID        string    `json:"id"`
	Direction Direction `json:"direction"`
	Body      string    `json:"body"`
	Role      string    `json:"role"`
	From      string    `json:"from,omitempty"`
	CreatedAt string    `json:"created_at,omitempty"`
}

// Thread is the canonical transcript for one phone.
type Thread struct {
	Phone         string                      `json:"phone"`
	LeadName      string                      `json:"lead_name"`
	Messages      []Message                   `json:"messages"`
	Qualification conversations.Qualification `json:"qualification"`
}

// DirectionFor maps a transcript role to a direction. Only the agent side is outbound.
func DirectionFor(role string) Direction {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "assistant", "agent":
		return Outbound
	default:
		return Inbound
	}
}

// Normalize parses {"lead_name", "messages": [{role, content}], "qualification"} or a bare
// message array. Messages keep server order. A message's id is the server id when present,
// otherwise its position.
func Normalize(phone string, raw []byte) (Thread, error) {
	body := strings.TrimSpace(string(raw))
	if body == "" || !gjson.Valid(body) {
		return Thread{}, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	root := gjson.Parse(body)

	th := Thread{Phone: phone, Messages: []Message{}, Qualification: conversations.Qualification{}}
	var msgs gjson.Result
	switch {
	case root.IsArray():
		msgs = root
	case root.IsObject():
		msgs = root.Get("messages")
		if name := root.Get("lead_name"); name.Type == gjson.String {
			th.LeadName = strings.TrimSpace(name.Str)
		}
		th.Qualification = conversations.ParseQualification(root.Get("qualification"))
	default:
		return Thread{}, fmt.Errorf("%w: unexpected top-level %s", ErrMalformed, root.Type)
	}
	if th.LeadName == "" {
		th.LeadName = phone
	}
	if msgs.Exists() && msgs.Type != gjson.Null && !msgs.IsArray() {
		return Thread{}, fmt.Errorf("%w: messages is not an array", ErrMalformed)
	}

	i := 0
	msgs.ForEach(func(_, m gjson.Result) bool {
		pos := i
		i++
		if !m.IsObject() {
			return true
		}
		role := m.Get("role").String()
		body := m.Get("content")
		if !body.Exists() {
			body = m.Get("body")
		}
		id := strconv.Itoa(pos)
		if sid := m.Get("id"); sid.Exists() && sid.Type != gjson.Null && sid.String() != "" {
			id = sid.String()
		}
		th.Messages = append(th.Messages, Message{
			ID:        id,
			Direction: DirectionFor(role),
			Body:      body.String(),
			Role:      role,
			From:      m.Get("from").String(),
			CreatedAt: m.Get("created_at").String(),
		})
		return true
	})
	return th, nil
}
