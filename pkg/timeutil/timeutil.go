// Package timeutil holds the HH:MM helpers shared by slot generation and
// booking aggregation.
package timeutil

import (
	"fmt"
	"regexp"
	"time"
)

var hhmmRegex = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// IsHHMM reports whether s is a valid HH:MM clock time.
func IsHHMM(s string) bool {
	return hhmmRegex.MatchString(s)
}

// ParseMinutes converts "HH:MM" to minutes since midnight.
func ParseMinutes(s string) (int, error) {
	if !hhmmRegex.MatchString(s) {
		return 0, fmt.Errorf("invalid time format (HH:MM): %q", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time format (HH:MM): %q", s)
	}
	return h*60 + m, nil
}

// FormatMinutes converts minutes since midnight to zero-padded "HH:MM".
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DateOnly truncates t to midnight UTC, the canonical form for slot and
// booking dates.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
