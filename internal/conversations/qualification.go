package conversations

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Qualification maps an attribute key to whether it has been confirmed for the lead.
type Qualification map[string]bool

// AggregateKey marks a lead as fully qualified. It is not rendered as a badge.
const AggregateKey = "qualified"

type vocabularyEntry struct {
	Key   string
	Label string
}

// Vocabulary is the fixed, ordered set of attributes the console renders.
var Vocabulary = []vocabularyEntry{
	{Key: "budget", Label: "Budget"},
	{Key: "timeline", Label: "Timeline"},
	{Key: "area", Label: "Area"},
	{Key: "property_type", Label: "Property Type"},
	{Key: "visa_status", Label: "Visa Status"},
}

type Badge struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Confirmed bool   `json:"confirmed"`
}

// Badges renders every vocabulary attribute in order, unconfirmed when missing,
// followed by any other keys sorted by name and labelled with the raw key.
func Badges(q Qualification) []Badge {
	out := make([]Badge, 0, len(Vocabulary)+len(q))
	known := make(map[string]struct{}, len(Vocabulary)+1)
	known[AggregateKey] = struct{}{}
	for _, v := range Vocabulary {
		known[v.Key] = struct{}{}
		out = append(out, Badge{Key: v.Key, Label: v.Label, Confirmed: q[v.Key]})
	}

	var extra []string
	for k := range q {
		if _, ok := known[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		out = append(out, Badge{Key: k, Label: k, Confirmed: q[k]})
	}
	return out
}

// Qualified reports the aggregate flag.
func (q Qualification) Qualified() bool {
	return q[AggregateKey]
}

// ParseQualification accepts an object of flags or a string holding one.
// Anything else yields an empty map.
func ParseQualification(r gjson.Result) Qualification {
	if r.Type == gjson.String {
		s := strings.TrimSpace(r.Str)
		if !gjson.Valid(s) {
			return Qualification{}
		}
		r = gjson.Parse(s)
	}
	q := Qualification{}
	if !r.IsObject() {
		return q
	}
	r.ForEach(func(k, v gjson.Result) bool {
		key := strings.TrimSpace(k.String())
		if key != "" {
			q[key] = Truthy(v)
		}
		return true
	})
	return q
}

// Truthy follows the browser's notion of truthiness: null, false, "", and 0 are false.
func Truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	case gjson.JSON:
		return true
	default:
		return false
	}
}
