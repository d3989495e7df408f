package models

import (
	"fmt"
	"strings"
	"time"
)

// MatchSnapshot is the copy of remote match data taken at purchase time.
// It is never re-synced with the match API.
type MatchSnapshot struct {
	MatchID int64  `json:"match_id"`
	Name    string `json:"name"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Venue   string `json:"venue"`
}

var matchTimeLayouts = []string{"15:04:05", "15:04"}

// MatchInstant combines a YYYY-MM-DD date and an HH:MM[:SS] time into a
// single instant in loc. Both parts must parse.
func MatchInstant(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}

	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing match date %q: %w", date, err)
	}

	clock = strings.TrimSpace(clock)
	for _, layout := range matchTimeLayouts {
		t, err := time.Parse(layout, clock)
		if err != nil {
			continue
		}
		return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("parsing match time %q: unsupported format", clock)
}

// Instant is MatchInstant for this snapshot.
func (m MatchSnapshot) Instant(loc *time.Location) (time.Time, error) {
	return MatchInstant(m.Date, m.Time, loc)
}
