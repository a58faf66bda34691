package history

import (
	"strconv"
	"strings"
	"time"
)

const displayLayout = "2006. 01. 02. 15:04"

// storedLayouts are the timestamp forms found in stored logs: ISO 8601 from
// clients and the text form Postgres prints for timestamptz.
var storedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02 15:04:05Z07",
}

func parseStored(s string) (time.Time, bool) {
	for _, layout := range storedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders a stored instant in loc for display. Missing or
// unparsable values render as "".
func FormatTimestamp(createdAt *string, loc *time.Location) string {
	if createdAt == nil || *createdAt == "" {
		return ""
	}
	t, ok := parseStored(strings.TrimSpace(*createdAt))
	if !ok {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(displayLayout)
}

// Label is the heading shown above entry i (0-based): its timestamp, or
// "entry N" when there is none to show.
func Label(e Entry, i int, loc *time.Location) string {
	if s := FormatTimestamp(e.CreatedAt, loc); s != "" {
		return s
	}
	return "entry " + strconv.Itoa(i+1)
}

// View is an entry prepared for rendering.
type View struct {
	Message   string  `json:"message"`
	CreatedAt *string `json:"createdAt"`
	Label     string  `json:"label"`
}

// Render labels every entry of log, keeping order.
func Render(log []Entry, loc *time.Location) []View {
	out := make([]View, len(log))
	for i, e := range log {
		out[i] = View{Message: e.Message, CreatedAt: e.CreatedAt, Label: Label(e, i, loc)}
	}
	return out
}
