package utils

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used for activations and attendance
const DateLayout = "2006-01-02"

// Clock returns the current time; tests replace it
type Clock func() time.Time

// DateIn formats t as a calendar date in loc
func DateIn(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// ParseDate validates a YYYY-MM-DD string
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}
