package campus

import (
	"time"
)

// DateLayout is the wire format for event dates.
const DateLayout = "2006-01-02"

// =============================================================================
// DATE - Calendar day without a timezone
// =============================================================================

// Date is a wall-clock calendar day. Time is always midnight UTC so that
// comparisons and day arithmetic never cross a DST boundary.
type Date struct {
	Time time.Time
}

// NewDate builds a Date from its calendar components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
// Passing time.Now() gives today's local date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string. The second return is false for
// anything that is not a real calendar day.
func ParseDate(s string) (Date, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, false
	}
	return Date{Time: t}, true
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

func (d Date) IsZero() bool   { return d.Time.IsZero() }
func (d Date) String() string { return d.Time.Format(DateLayout) }

// MarshalText renders the wire format so Dates encode as "YYYY-MM-DD".
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses the wire format.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, ok := ParseDate(string(b))
	if !ok {
		return &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	*d = parsed
	return nil
}

// DaysBetween returns the signed number of days from `from` to `to`.
func DaysBetween(from, to Date) int {
	return int(to.Time.Sub(from.Time).Hours() / 24)
}

// =============================================================================
// CLOCK
// =============================================================================

// Clock reports the current instant. Services take a Clock so tests can pin
// "today".
type Clock func() time.Time

// Today returns the local calendar date of the clock, falling back to the
// system clock when c is nil.
func (c Clock) Today() Date {
	if c == nil {
		return DateOf(time.Now())
	}
	return DateOf(c())
}

// Now returns the current instant of the clock.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// =============================================================================
// TEMPORAL STATE
// =============================================================================

// State classifies an event relative to today.
type State string

const (
	StateCompleted State = "completed"
	StateOngoing   State = "ongoing"
	StateUpcoming  State = "upcoming"
)

// StateOf classifies a raw event date against today. Time of day is ignored.
// Dates that do not parse are reported as upcoming so they are never hidden.
func StateOf(date string, today Date) State {
	d, ok := ParseDate(date)
	if !ok {
		return StateUpcoming
	}
	switch {
	case d.Before(today):
		return StateCompleted
	case d.After(today):
		return StateUpcoming
	default:
		return StateOngoing
	}
}

// ParseState accepts the filter names used by the listing endpoint.
func ParseState(s string) (State, bool) {
	switch State(s) {
	case StateCompleted, StateOngoing, StateUpcoming:
		return State(s), true
	}
	return "", false
}
