package campus

import "fmt"

// =============================================================================
// WINDOW - Inclusive range of calendar days
// =============================================================================

// Window is an inclusive [Start, End] range of calendar days used for range
// queries and utilization analysis.
type Window struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewWindow validates that end is not before start.
func NewWindow(start, end Date) (Window, error) {
	if end.Before(start) {
		return Window{}, fmt.Errorf("%w: window ends %s before it starts %s", ErrInvalidWindow, end, start)
	}
	return Window{Start: start, End: end}, nil
}

// Contains returns true if d is within [Start, End].
func (w Window) Contains(d Date) bool {
	return d.AfterOrEqual(w.Start) && d.BeforeOrEqual(w.End)
}

// ContainsDate is Contains for a raw wire date. Unparseable dates are never
// inside a window.
func (w Window) ContainsDate(date string) bool {
	d, ok := ParseDate(date)
	return ok && w.Contains(d)
}

// Days returns the number of calendar days covered, always at least 1.
func (w Window) Days() int {
	return DaysBetween(w.Start, w.End) + 1
}

func (w Window) String() string {
	return "[" + w.Start.String() + ", " + w.End.String() + "]"
}

// WindowName selects one of the named analysis windows.
type WindowName string

const (
	WindowWeek  WindowName = "week"  // today .. today+6
	WindowMonth WindowName = "month" // today .. today+29
	WindowAll   WindowName = "all"   // earliest .. latest event date
)

// ResolveWindow turns a named window into concrete dates. For WindowAll the
// bounds come from the parseable event dates; with none, it degenerates to
// the single day `today`.
func ResolveWindow(name WindowName, today Date, events []Event) (Window, error) {
	switch name {
	case WindowWeek:
		return Window{Start: today, End: today.AddDays(6)}, nil
	case WindowMonth:
		return Window{Start: today, End: today.AddDays(29)}, nil
	case WindowAll:
		var lo, hi Date
		found := false
		for _, e := range events {
			d, ok := ParseDate(e.Date)
			if !ok {
				continue
			}
			if !found || d.Before(lo) {
				lo = d
			}
			if !found || d.After(hi) {
				hi = d
			}
			found = true
		}
		if !found {
			return Window{Start: today, End: today}, nil
		}
		return Window{Start: lo, End: hi}, nil
	default:
		return Window{}, fmt.Errorf("%w: unknown window %q", ErrInvalidWindow, name)
	}
}
