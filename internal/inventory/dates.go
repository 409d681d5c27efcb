package inventory

import (
	"encoding/json"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate rehydrates a serialized timestamp. Strings in any of the known
// layouts and epoch milliseconds are accepted; anything else yields the zero
// time instead of an error so one bad item never fails a whole load.
func ParseDate(raw json.RawMessage) time.Time {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return time.Time{}
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return ParseDateString(text)
	}

	var millis float64
	if err := json.Unmarshal(raw, &millis); err == nil {
		return time.UnixMilli(int64(millis)).UTC()
	}
	return time.Time{}
}

// ParseDateString parses one textual timestamp, returning the zero time when
// no layout matches.
func ParseDateString(text string) time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatDate renders t the way snapshots store lastUpdated.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
