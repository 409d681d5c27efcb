package inventory

import "strings"

const (
	// HistoryLimit caps the remembered item names.
	HistoryLimit = 50
	// SuggestionLimit caps the names returned for one query.
	SuggestionLimit = 5
)

// RememberNames front-inserts names into history, most recent first. Earlier
// entries equal to a new name ignoring case are dropped.
func RememberNames(history []string, names ...string) []string {
	out := append([]string{}, history...)
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		next := make([]string, 0, len(out)+1)
		next = append(next, name)
		for _, existing := range out {
			if !strings.EqualFold(existing, name) {
				next = append(next, existing)
			}
		}
		out = next
	}
	if len(out) > HistoryLimit {
		out = out[:HistoryLimit]
	}
	return out
}

// Suggest returns up to SuggestionLimit history entries containing query,
// case-insensitively, in history order. A blank query matches nothing.
func Suggest(history []string, query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []string{}
	if q == "" {
		return out
	}
	for _, name := range history {
		if strings.Contains(strings.ToLower(name), q) {
			out = append(out, name)
			if len(out) == SuggestionLimit {
				break
			}
		}
	}
	return out
}
