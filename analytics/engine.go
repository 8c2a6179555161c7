/*
Package analytics derives engagement, utilization, risk and budget figures
from a snapshot of events and registrations.

PURPOSE:
  Answers the admin dashboard questions: how busy is each venue, which
  events are under-engaged, and where does the budget stand. Nothing here
  is persisted; every call recomputes from the snapshot it is given.

SYNTHETIC BASELINE:
  Demo and freshly created datasets have no registration history, so each
  event gets a deterministic baseline derived from Seed(name, index). Real
  registrations are added on top of that baseline, never in place of it.
  The baseline is for display only.

PURITY:
  Engine methods never touch a store. Callers list events and
  registrations first and pass the slices in; the same input always gives
  the same output.

EXAMPLE:
  eng := analytics.NewEngine(venues, slots, allocations, clock)
  rows := eng.EventAnalytics(events, regs)
  risk := eng.RiskReport(events, regs)

SEE ALSO:
  - seed.go:        Seed and the baseline ranges
  - utilization.go: per-venue utilization over a window
  - risk.go:        engagement classification
  - budget.go:      category rollup
*/
package analytics

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/warp/campus-scheduler/campus"
)

// Engine holds the catalog the computations are relative to. The zero
// value is usable: it falls back to the default slots and allocations.
type Engine struct {
	Venues      []string
	TimeSlots   []string
	Allocations []Allocation
	Clock       campus.Clock
}

// NewEngine builds an Engine from catalog configuration.
func NewEngine(venues, slots []string, allocations []Allocation, clock campus.Clock) *Engine {
	return &Engine{Venues: venues, TimeSlots: slots, Allocations: allocations, Clock: clock}
}

func (e *Engine) slots() []string {
	if len(e.TimeSlots) == 0 {
		return campus.DefaultTimeSlots
	}
	return e.TimeSlots
}

func (e *Engine) allocations() []Allocation {
	if len(e.Allocations) == 0 {
		return DefaultAllocations
	}
	return e.Allocations
}

// =============================================================================
// PER-EVENT ANALYTICS
// =============================================================================

// EventAnalytics is the derived record for one event.
type EventAnalytics struct {
	Event              campus.Event    `json:"event"`
	RegistrationsCount int             `json:"registrationsCount"`
	RealRegistrations  int             `json:"realRegistrations"`
	AttendanceEstimate int             `json:"attendanceEstimate"`
	EngagementPercent  int             `json:"engagementPercent"`
	BudgetNeed         decimal.Decimal `json:"budgetNeed"`
	Category           string          `json:"category"`
	UtilizationPercent int             `json:"utilizationPercent"`
}

// EventAnalytics computes one record per event, in store order. An event's
// index in the slice feeds its seed and its budget category.
func (e *Engine) EventAnalytics(events []campus.Event, regs []campus.Registration) []EventAnalytics {
	realCounts := countRegistrations(regs)

	util := make(map[string]int)
	all, _ := campus.ResolveWindow(campus.WindowAll, e.Clock.Today(), events)
	for _, v := range e.VenueUtilization(events, all).Venues {
		util[v.Venue] = v.UtilizationPercent
	}

	categories := categoryNames(e.allocations())
	out := make([]EventAnalytics, 0, len(events))
	for i, ev := range events {
		b := BaselineFor(ev.Name, i)
		n := realCounts[ev.ID()]
		total := b.Registrations + n
		attendance := int(math.Round(float64(total) * b.AttendanceRatio))

		out = append(out, EventAnalytics{
			Event:              ev,
			RegistrationsCount: total,
			RealRegistrations:  n,
			AttendanceEstimate: attendance,
			EngagementPercent:  Engagement(attendance, total),
			BudgetNeed:         b.BudgetNeed,
			Category:           categories[i%len(categories)],
			UtilizationPercent: util[ev.ID().Venue],
		})
	}
	return out
}

// Engagement is round(attendance / max(1, registrations) * 100).
func Engagement(attendance, registrations int) int {
	return int(math.Round(float64(attendance) / float64(max(1, registrations)) * 100))
}

func countRegistrations(regs []campus.Registration) map[campus.EventID]int {
	counts := make(map[campus.EventID]int, len(regs))
	for _, r := range regs {
		counts[r.EventID.Normalized()]++
	}
	return counts
}
