package listing

import (
	"strings"
	"time"
)

// DefaultDateLayouts is the accepted set of decision-date formats.
// Tribunal sites vary; anything outside this set is treated as
// unknown rather than guessed.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2 January 2006",
	"02 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"02/01/2006",
	time.RFC3339,
}

// ParseDate tries each layout in order and returns the first match,
// or nil when no layout fits.
func ParseDate(raw string, layouts []string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
