package leads

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrMalformed = errors.New("leads: malformed payload")

// Normalize reads {"leads": [...]} or a bare array. Leads without an id are dropped.
func Normalize(raw []byte) ([]Lead, error) {
	body := strings.TrimSpace(string(raw))
	if body == "" || !gjson.Valid(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	root := gjson.Parse(body)
	list := root
	if root.IsObject() {
		list = root.Get("leads")
		if !list.Exists() || list.Type == gjson.Null {
			return []Lead{}, nil
		}
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: expected leads array", ErrMalformed)
	}

	out := []Lead{}
	list.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		l := Lead{
			ID:         strings.TrimSpace(v.Get("id").String()),
			Name:       strings.TrimSpace(v.Get("name").String()),
			Phone:      strings.TrimSpace(v.Get("phone").String()),
			Email:      strings.TrimSpace(v.Get("email").String()),
			Area:       strings.TrimSpace(v.Get("area").String()),
			Notes:      strings.TrimSpace(v.Get("notes").String()),
			Status:     strings.TrimSpace(v.Get("status").String()),
			ImportedAt: v.Get("imported_at").String(),
		}
		if l.ID == "" {
			return true
		}
		if l.Status == "" {
			l.Status = "new"
		}
		out = append(out, l)
		return true
	})
	return out, nil
}

// NormalizeUpload reads {"imported": n, "leads": [...]}.
func NormalizeUpload(raw []byte) (UploadResult, error) {
	list, err := Normalize(raw)
	if err != nil {
		return UploadResult{}, err
	}
	n := int(gjson.GetBytes(raw, "imported").Int())
	if n == 0 {
		n = len(list)
	}
	return UploadResult{Imported: n, Leads: list}, nil
}
