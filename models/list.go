package models

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// DecodeList turns a stored categories or tags column into a string slice.
// Legacy rows may hold a bare string or malformed JSON; those become a
// single-element list holding the raw text. The result is never nil.
func DecodeList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	if !gjson.Valid(raw) {
		return []string{raw}
	}
	v := gjson.Parse(raw)
	switch {
	case v.IsArray():
		out := []string{}
		v.ForEach(func(_, item gjson.Result) bool {
			out = append(out, item.String())
			return true
		})
		return out
	case v.Type == gjson.Null:
		return []string{}
	default:
		return []string{v.String()}
	}
}

// DecodeText applies def to a NULL stored value, and to a blank one when def
// is not empty.
func DecodeText(raw string, valid bool, def string) string {
	if !valid || (def != "" && strings.TrimSpace(raw) == "") {
		return def
	}
	return raw
}

// EncodeList is the inverse of DecodeList for well-formed input.
func EncodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

// DecodeComments parses the stored comments array. ok is false when the
// stored text is not a JSON array of comments; the slice is then empty.
func DecodeComments(raw string) (comments []Comment, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []Comment{}, true
	}
	if err := json.Unmarshal([]byte(raw), &comments); err != nil {
		return []Comment{}, false
	}
	if comments == nil {
		comments = []Comment{}
	}
	return comments, true
}

func EncodeComments(comments []Comment) string {
	if comments == nil {
		comments = []Comment{}
	}
	b, _ := json.Marshal(comments)
	return string(b)
}

// SplitList splits a comma-separated form value, trimming items and
// dropping empty ones.
func SplitList(s string) []string {
	out := []string{}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
