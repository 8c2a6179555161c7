package analytics

import (
	"math"
	"slices"

	"github.com/warp/campus-scheduler/campus"
)

// =============================================================================
// VENUE UTILIZATION
// =============================================================================

// VenueUtilization summarizes one venue over a window.
type VenueUtilization struct {
	Venue              string `json:"venue"`
	Events             int    `json:"events"`
	Clashes            int    `json:"clashes"`
	UtilizationPercent int    `json:"utilizationPercent"`
}

// UtilizationReport is the per-venue breakdown for a window.
type UtilizationReport struct {
	Window campus.Window      `json:"window"`
	Venues []VenueUtilization `json:"venues"`
}

type slotKey struct {
	date string
	time string
}

// VenueUtilization counts in-window events per venue. Events sharing a
// (date, time) at one venue form a group; each group of size n adds n-1
// clashes. Utilization is the average events per day over the number of
// time slots, as a percentage clamped to [0, 100].
//
// Configured venues are always listed, first and in catalog order. Venues
// that only appear on events follow in name order.
func (e *Engine) VenueUtilization(events []campus.Event, w campus.Window) UtilizationReport {
	counts := make(map[string]int)
	groups := make(map[string]map[slotKey]int)

	for _, ev := range events {
		id := ev.ID()
		if !w.ContainsDate(id.Date) {
			continue
		}
		counts[id.Venue]++
		if groups[id.Venue] == nil {
			groups[id.Venue] = make(map[slotKey]int)
		}
		groups[id.Venue][slotKey{id.Date, id.Time}]++
	}

	days := float64(w.Days())
	slots := float64(len(e.slots()))

	report := UtilizationReport{Window: w}
	for _, venue := range e.venues(events) {
		clashes := 0
		for _, n := range groups[venue] {
			clashes += max(0, n-1)
		}
		pct := math.Round(float64(counts[venue]) / days / slots * 100)
		report.Venues = append(report.Venues, VenueUtilization{
			Venue:              venue,
			Events:             counts[venue],
			Clashes:            clashes,
			UtilizationPercent: int(min(100, max(0, pct))),
		})
	}
	return report
}

// Utilization resolves a named window against today and the events, then
// computes the report.
func (e *Engine) Utilization(name campus.WindowName, events []campus.Event) (UtilizationReport, error) {
	w, err := campus.ResolveWindow(name, e.Clock.Today(), events)
	if err != nil {
		return UtilizationReport{}, err
	}
	return e.VenueUtilization(events, w), nil
}

func (e *Engine) venues(events []campus.Event) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range e.Venues {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	var extra []string
	for _, ev := range events {
		v := ev.ID().Venue
		if !seen[v] {
			seen[v] = true
			extra = append(extra, v)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}
