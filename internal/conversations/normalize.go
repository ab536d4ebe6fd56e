package conversations

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrMalformed = errors.New("conversations: malformed payload")

// Conversation is the canonical summary of one SMS thread, keyed by phone.
type Conversation struct {
	Phone           string        `json:"phone"`
	LeadName        string        `json:"lead_name"`
	LastMessage     string        `json:"last_message"`
	LastMessageTime string        `json:"last_message_time,omitempty"`
	Qualification   Qualification `json:"qualification"`
	MessageCount    int           `json:"message_count"`
}

// Normalize accepts either an array of summaries or an object keyed by phone
// and returns one ordered list. Object key order is preserved. Summaries
// without a phone are skipped and the first occurrence of a phone wins.
func Normalize(raw []byte) ([]Conversation, error) {
	body := strings.TrimSpace(string(raw))
	if body == "" {
		return nil, fmt.Errorf("%w: empty body", ErrMalformed)
	}
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformed)
	}

	root := gjson.Parse(body)
	out := []Conversation{}
	seen := map[string]struct{}{}
	add := func(c Conversation) {
		if c.Phone == "" {
			return
		}
		if _, dup := seen[c.Phone]; dup {
			return
		}
		seen[c.Phone] = struct{}{}
		out = append(out, c)
	}

	switch {
	case root.Type == gjson.Null:
		return out, nil
	case root.IsArray():
		root.ForEach(func(_, v gjson.Result) bool {
			if v.IsObject() {
				add(summary(str(v.Get("phone")), v))
			}
			return true
		})
	case root.IsObject():
		root.ForEach(func(k, v gjson.Result) bool {
			phone := strings.TrimSpace(k.String())
			if phone == "" {
				phone = str(v.Get("phone"))
			}
			add(summary(phone, v))
			return true
		})
	default:
		return nil, fmt.Errorf("%w: unexpected top-level %s", ErrMalformed, root.Type)
	}
	return out, nil
}

func summary(phone string, v gjson.Result) Conversation {
	c := Conversation{
		Phone:         phone,
		LeadName:      str(v.Get("lead_name")),
		Qualification: ParseQualification(v.Get("qualification")),
		MessageCount:  count(v.Get("message_count")),
	}
	if c.LeadName == "" {
		c.LeadName = phone
	}

	lm := v.Get("last_message")
	switch {
	case lm.Type == gjson.String:
		c.LastMessage = lm.Str
	case lm.IsObject():
		c.LastMessage = str(lm.Get("content"))
		c.LastMessageTime = firstString(lm, "created_at", "timestamp")
	}
	if t := str(v.Get("last_message_time")); t != "" {
		c.LastMessageTime = t
	}
	return c
}

func str(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return strings.TrimSpace(r.Str)
	case gjson.Number:
		return r.Raw
	default:
		return ""
	}
}

func firstString(r gjson.Result, keys ...string) string {
	for _, k := range keys {
		if s := str(r.Get(k)); s != "" {
			return s
		}
	}
	return ""
}

func count(r gjson.Result) int {
	if r.Type != gjson.Number && r.Type != gjson.String {
		return 0
	}
	n := r.Int()
	if n < 0 {
		return 0
	}
	return int(n)
}
