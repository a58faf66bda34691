// Package history reads and writes the append-only question/feedback logs
// stored on a student record.
//
// The stored column went through several shapes over time (a single raw
// string, a JSON object, a JSON array of entries, a JSON-encoded string of
// any of those). Parse accepts all of them and never fails; Serialize always
// writes the current shape, a JSON array of entries.
package history

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Entry is one message in a log. CreatedAt holds the stored ISO-8601 instant
// verbatim and is nil for legacy entries that never had one.
type Entry struct {
	Message   string  `json:"message"`
	CreatedAt *string `json:"createdAt"`
}

// timeNow is a variable for testability.
var timeNow = time.Now

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// NewEntry stamps message with the current time in UTC.
func NewEntry(message string) Entry {
	ts := timeNow().UTC().Format(isoMillis)
	return Entry{Message: message, CreatedAt: &ts}
}

// Append returns a new log with e at the end. The input slice is not modified.
func Append(log []Entry, e Entry) []Entry {
	out := make([]Entry, 0, len(log)+1)
	out = append(out, log...)
	return append(out, e)
}

// Serialize encodes the whole log as a JSON array. A nil log encodes as "[]".
func Serialize(log []Entry) (string, error) {
	if log == nil {
		log = []Entry{}
	}
	b, err := json.Marshal(log)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// shape is the detected form of a stored log value.
type shape int

const (
	shapeEmpty  shape = iota // null, "", whitespace
	shapeList                // JSON array
	shapeObject              // JSON object
	shapeQuoted              // JSON string literal, decoded and parsed again
	shapeText                // anything else: one legacy plain-text entry
)

// Parse normalizes a stored log value into entries, oldest first.
func Parse(raw string) []Entry {
	trimmed := strings.TrimSpace(raw)
	switch classify(trimmed) {
	case shapeList:
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return textEntry(trimmed)
		}
		out := make([]Entry, 0, len(items))
		for _, it := range items {
			if e, ok := normalizeItem(it); ok {
				out = append(out, e)
			}
		}
		return out
	case shapeObject:
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
			return textEntry(trimmed)
		}
		if e, ok := normalizeObject(fields); ok {
			return []Entry{e}
		}
		return []Entry{}
	case shapeQuoted:
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return textEntry(trimmed)
		}
		return Parse(s)
	case shapeText:
		return textEntry(trimmed)
	default:
		return []Entry{}
	}
}

// ParseNullable is Parse for a nullable column.
func ParseNullable(raw *string) []Entry {
	if raw == nil {
		return []Entry{}
	}
	return Parse(*raw)
}

func classify(s string) shape {
	if s == "" || s == "null" {
		return shapeEmpty
	}
	if !json.Valid([]byte(s)) {
		return shapeText
	}
	switch s[0] {
	case '[':
		return shapeList
	case '{':
		return shapeObject
	case '"':
		return shapeQuoted
	default:
		// bare numbers and booleans are plain text a student typed
		return shapeText
	}
}

func textEntry(s string) []Entry {
	if s == "" {
		return []Entry{}
	}
	return []Entry{{Message: s}}
}

// normalizeItem handles one element of a stored array: strings become a
// legacy entry, objects go through field extraction, everything else is
// dropped.
func normalizeItem(raw json.RawMessage) (Entry, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Entry{}, false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Entry{}, false
		}
		s = strings.TrimSpace(s)
		return Entry{Message: s}, s != ""
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return Entry{}, false
		}
		return normalizeObject(fields)
	default:
		return Entry{}, false
	}
}

var (
	messageKeys   = []string{"message", "content", "text"}
	timestampKeys = []string{"createdAt", "created_at", "timestamp"}
)

func normalizeObject(fields map[string]json.RawMessage) (Entry, bool) {
	msg := strings.TrimSpace(scalarText(firstPresent(fields, messageKeys)))
	if msg == "" {
		return Entry{}, false
	}
	e := Entry{Message: msg}
	if ts := firstPresent(fields, timestampKeys); len(ts) > 0 && ts[0] == '"' {
		var s string
		if err := json.Unmarshal(ts, &s); err == nil {
			e.CreatedAt = &s
		}
	}
	return e, true
}

// firstPresent returns the value of the first key that is set and not null.
func firstPresent(fields map[string]json.RawMessage, keys []string) json.RawMessage {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		if len(v) == 0 || string(v) == "null" {
			continue
		}
		return v
	}
	return nil
}

// scalarText renders a JSON scalar as text; strings are unquoted, numbers and
// booleans keep their literal form, containers yield "".
func scalarText(v json.RawMessage) string {
	if len(v) == 0 {
		return ""
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return ""
		}
		return s
	case '{', '[':
		return ""
	default:
		return string(v)
	}
}
