package calls

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/conversations"
)

var ErrMalformedFeed = errors.New("calls: malformed feed")

// NormalizeFeed accepts {"calls": [...]} or a bare array. Records without an id are
// dropped; missing fields default. Unrecognised statuses are kept as reported and
// a missing status becomes CallStatusUnknown, so the record stays in the feed.
func NormalizeFeed(raw []byte) ([]CallRecord, error) {
	body := strings.TrimSpace(string(raw))
	if body == "" || !gjson.Valid(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedFeed)
	}
	root := gjson.Parse(body)

	list := root
	if root.IsObject() {
		list = root.Get("calls")
		if !list.Exists() || list.Type == gjson.Null {
			return []CallRecord{}, nil
		}
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: expected calls array", ErrMalformedFeed)
	}

	out := []CallRecord{}
	seen := map[string]struct{}{}
	list.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		id := strings.TrimSpace(v.Get("id").String())
		if id == "" {
			id = strings.TrimSpace(v.Get("call_id").String())
		}
		if id == "" {
			return true
		}
		if _, dup := seen[id]; dup {
			return true
		}
		st := feedStatus(v.Get("status"))
		seen[id] = struct{}{}

		dur := v.Get("duration_seconds")
		if !dur.Exists() {
			dur = v.Get("duration")
		}
		secs := int(dur.Int())
		if secs < 0 {
			secs = 0
		}

		rec := CallRecord{
			ID:              id,
			LeadName:        v.Get("lead_name").String(),
			LeadPhone:       v.Get("lead_phone").String(),
			AgentName:       v.Get("agent_name").String(),
			Area:            v.Get("area").String(),
			Direction:       v.Get("direction").String(),
			Status:          st,
			StartedAt:       v.Get("started_at").String(),
			EndedAt:         v.Get("ended_at").String(),
			DurationSeconds: secs,
			RecordingURL:    v.Get("recording_url").String(),
			Summary:         v.Get("summary").String(),
		}
		if q := v.Get("qualification"); q.Exists() && q.Type != gjson.Null {
			rec.Qualification = conversations.ParseQualification(q)
		}
		out = append(out, rec)
		return true
	})
	return out, nil
}

func feedStatus(r gjson.Result) CallStatus {
	st, ok := ParseStatus(r.String())
	if ok {
		return st
	}
	if st == "" {
		return CallStatusUnknown
	}
	return st
}
