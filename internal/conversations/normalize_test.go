package conversations

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalize_MapShape(t *testing.T) {
	raw := []byte(`{"+15551234567": {"lead_name":"Jane","message_count":3,"qualification":{"budget":true,"timeline":false},"last_message":{"content":"Yes that works"}}}`)

	got, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := []Conversation{{
		Phone:         "+15551234567",
		LeadName:      "Jane",
		LastMessage:   "Yes that works",
		Qualification: Qualification{"budget": true, "timeline": false},
		MessageCount:  3,
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestNormalize_ArrayAndMapAreEquivalent(t *testing.T) {
	asMap := []byte(`{
		"+15550002": {"lead_name":"Bo","message_count":1,"last_message":"hi"},
		"+15550001": {"message_count":2,"qualification":{"area":"yes"}}
	}`)
	asArray := []byte(`[
		{"phone":"+15550002","lead_name":"Bo","message_count":1,"last_message":"hi"},
		{"phone":"+15550001","message_count":2,"qualification":{"area":"yes"}}
	]`)

	a, err := Normalize(asMap)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	b, err := Normalize(asArray)
	if err != nil {
		t.Fatalf("array: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected equal lists:\nmap   %+v\narray %+v", a, b)
	}
	if a[0].Phone != "+15550002" {
		t.Fatalf("expected object key order preserved, got %q first", a[0].Phone)
	}
	if a[1].LeadName != "+15550001" {
		t.Fatalf("expected lead_name to default to phone, got %q", a[1].LeadName)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := []byte(`[{"phone":"+1","lead_name":"A","qualification":{"budget":1}}]`)
	first, _ := Normalize(raw)
	second, _ := Normalize(raw)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results")
	}
}

func TestNormalize_DefaultsAndSkips(t *testing.T) {
	raw := []byte(`[
		{"lead_name":"no phone"},
		"garbage",
		{"phone":"+1","message_count":-4,"qualification":"{\"budget\": true, \"qualified\": null}",
		 "last_message":{"content":"see you","created_at":"2026-01-02T10:00:00Z"}},
		{"phone":"+1","lead_name":"duplicate"}
	]`)
	got, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 conversation, got %d: %+v", len(got), got)
	}
	c := got[0]
	if c.LeadName != "+1" || c.MessageCount != 0 {
		t.Fatalf("expected defaults, got %+v", c)
	}
	if c.LastMessage != "see you" || c.LastMessageTime != "2026-01-02T10:00:00Z" {
		t.Fatalf("unexpected last message fields: %+v", c)
	}
	if !c.Qualification["budget"] || c.Qualification.Qualified() {
		t.Fatalf("unexpected qualification: %+v", c.Qualification)
	}
}

func TestNormalize_RejectsOtherShapes(t *testing.T) {
	for _, raw := range []string{``, `42`, `"text"`, `{not json`} {
		if _, err := Normalize([]byte(raw)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed for %q, got %v", raw, err)
		}
	}
	got, err := Normalize([]byte(`null`))
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty list for null, got %v %v", got, err)
	}
}
