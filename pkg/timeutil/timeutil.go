// Package timeutil provides day-boundary utilities for streak tracking.
// The engine defines "a day" as a calendar date in one configured timezone;
// all day comparisons go through this package to keep that definition single.
// No external dependencies - uses only standard library.
package timeutil

import "time"

// Clock resolves "today" in the configured timezone.
// The zero value uses UTC.
type Clock struct {
	loc *time.Location
}

// NewClock creates a Clock for the given IANA timezone name.
// An empty or unknown name falls back to UTC.
func NewClock(tz string) Clock {
	if tz == "" {
		return Clock{loc: time.UTC}
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Clock{loc: time.UTC}
	}
	return Clock{loc: loc}
}

// Location returns the clock's timezone.
func (c Clock) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Now returns the current time in the clock's timezone.
func (c Clock) Now() time.Time {
	return time.Now().In(c.Location())
}

// In converts a time to the clock's timezone.
func (c Clock) In(t time.Time) time.Time {
	return t.In(c.Location())
}

// StartOfDay returns midnight of t's calendar date in the clock's timezone.
func (c Clock) StartOfDay(t time.Time) time.Time {
	local := c.In(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Location())
}

// IsSameDay checks if two times fall on the same calendar date.
func (c Clock) IsSameDay(t1, t2 time.Time) bool {
	a1, a2 := c.In(t1), c.In(t2)
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// IsConsecutiveDay checks if t2 is the calendar day after t1.
func (c Clock) IsConsecutiveDay(t1, t2 time.Time) bool {
	nextDay := c.In(t1).AddDate(0, 0, 1)
	return c.IsSameDay(nextDay, t2)
}

// DaysBetween calculates the number of whole days between two times.
func (c Clock) DaysBetween(t1, t2 time.Time) int {
	a1 := c.StartOfDay(t1)
	a2 := c.StartOfDay(t2)
	days := int(a2.Sub(a1).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
)

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in the clock's timezone.
func (c Clock) FormatDateStr(t time.Time) string {
	return c.In(t).Format(FormatDate)
}

// ParseDate parses a date string (YYYY-MM-DD) in the clock's timezone.
func (c Clock) ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, c.Location())
}
