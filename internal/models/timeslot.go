package models

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is a canonical three-letter weekday code.
type Weekday = string

// Canonical weekday codes in week order.
const (
	Monday    Weekday = "MON"
	Tuesday   Weekday = "TUE"
	Wednesday Weekday = "WED"
	Thursday  Weekday = "THU"
	Friday    Weekday = "FRI"
	Saturday  Weekday = "SAT"
	Sunday    Weekday = "SUN"
)

var weekdayOrder = map[Weekday]int{
	Monday:    0,
	Tuesday:   1,
	Wednesday: 2,
	Thursday:  3,
	Friday:    4,
	Saturday:  5,
	Sunday:    6,
}

// NormalizeDays uppercases and validates a weekday set. The set must be
// non-empty, every code must belong to the calendar and duplicates are
// rejected.
func NormalizeDays(raw []string) ([]Weekday, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("days_of_week must not be empty")
	}
	seen := make(map[Weekday]struct{}, len(raw))
	out := make([]Weekday, 0, len(raw))
	for _, r := range raw {
		day := Weekday(strings.ToUpper(strings.TrimSpace(r)))
		if _, ok := weekdayOrder[day]; !ok {
			return nil, fmt.Errorf("unknown weekday %q", r)
		}
		if _, dup := seen[day]; dup {
			return nil, fmt.Errorf("duplicate weekday %q", day)
		}
		seen[day] = struct{}{}
		out = append(out, day)
	}
	return out, nil
}

// DaysIntersect reports whether the two weekday sets share any day.
func DaysIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, day := range a {
		set[day] = struct{}{}
	}
	for _, day := range b {
		if _, ok := set[day]; ok {
			return true
		}
	}
	return false
}

// ParseMinute converts an "HH:MM" clock time to minutes since midnight.
func ParseMinute(raw string) (int, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", raw)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatMinute renders minutes since midnight as "HH:MM".
func FormatMinute(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// Overlaps reports whether two half-open minute intervals intersect.
// Intervals that merely touch at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}
