/*
dto.go - Data Transfer Objects for the HTTP API

PURPOSE:
  Defines the JSON shapes for requests and responses. Domain types that
  already carry json tags (campus.Event, campus.Registration, the analytics
  reports) are returned as-is; DTOs exist where the wire shape differs.

NAMING:
  Field names are camelCase to match the admin and public frontends.
*/
package api

import (
	"time"

	"github.com/warp/campus-scheduler/analytics"
	"github.com/warp/campus-scheduler/campus"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// EventDTO is an event with its temporal state relative to today.
type EventDTO struct {
	campus.Event
	State campus.State `json:"state"`
}

// SubmitEventRequest is the body of POST /api/events.
type SubmitEventRequest struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Venue       string `json:"venue"`
	Description string `json:"description"`
}

func (r SubmitEventRequest) fields() campus.EventFields {
	return campus.EventFields{
		Name:        r.Name,
		Date:        r.Date,
		Time:        r.Time,
		Venue:       r.Venue,
		Description: r.Description,
	}
}

// EventIDRequest selects an event by identity.
type EventIDRequest struct {
	Name  string `json:"name"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Venue string `json:"venue"`
}

func (r EventIDRequest) id() campus.EventID {
	return campus.NewEventID(r.Name, r.Date, r.Time, r.Venue)
}

// RegisterRequest is the body of POST /api/registrations. User fields left
// empty are filled from the bearer token.
type RegisterRequest struct {
	EventID    EventIDRequest `json:"eventId"`
	UserName   string         `json:"userName"`
	UserEmail  string         `json:"userEmail"`
	StudentID  string         `json:"studentId"`
	Department string         `json:"department"`
}

// EventAnalyticsDTO is one row of GET /api/analytics/events. Budget is
// rendered as a fixed two-decimal string.
type EventAnalyticsDTO struct {
	Event              campus.Event `json:"event"`
	RegistrationsCount int          `json:"registrationsCount"`
	RealRegistrations  int          `json:"realRegistrations"`
	AttendanceEstimate int          `json:"attendanceEstimate"`
	EngagementPercent  int          `json:"engagementPercent"`
	BudgetNeed         string       `json:"budgetNeed"`
	Category           string       `json:"category"`
	UtilizationPercent int          `json:"utilizationPercent"`
}

func toEventAnalyticsDTOs(rows []analytics.EventAnalytics) []EventAnalyticsDTO {
	out := make([]EventAnalyticsDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, EventAnalyticsDTO{
			Event:              row.Event,
			RegistrationsCount: row.RegistrationsCount,
			RealRegistrations:  row.RealRegistrations,
			AttendanceEstimate: row.AttendanceEstimate,
			EngagementPercent:  row.EngagementPercent,
			BudgetNeed:         row.BudgetNeed.StringFixed(2),
			Category:           row.Category,
			UtilizationPercent: row.UtilizationPercent,
		})
	}
	return out
}

// BudgetLineDTO is one category of GET /api/analytics/budget.
type BudgetLineDTO struct {
	Category   string `json:"category"`
	Events     int    `json:"events"`
	Allocated  string `json:"allocated"`
	Spent      string `json:"spent"`
	Variance   string `json:"variance"`
	OverBudget bool   `json:"overBudget"`
}

// BudgetDTO is the response of GET /api/analytics/budget.
type BudgetDTO struct {
	Lines          []BudgetLineDTO `json:"lines"`
	TotalAllocated string          `json:"totalAllocated"`
	TotalSpent     string          `json:"totalSpent"`
	TotalVariance  string          `json:"totalVariance"`
}

func toBudgetDTO(b analytics.BudgetRollup) BudgetDTO {
	lines := make([]BudgetLineDTO, 0, len(b.Lines))
	for _, l := range b.Lines {
		lines = append(lines, BudgetLineDTO{
			Category:   l.Category,
			Events:     l.Events,
			Allocated:  l.Allocated.StringFixed(2),
			Spent:      l.Spent.StringFixed(2),
			Variance:   l.Variance.StringFixed(2),
			OverBudget: l.OverBudget(),
		})
	}
	return BudgetDTO{
		Lines:          lines,
		TotalAllocated: b.TotalAllocated.StringFixed(2),
		TotalSpent:     b.TotalSpent.StringFixed(2),
		TotalVariance:  b.TotalVariance.StringFixed(2),
	}
}

// AuditStatusDTO is the response of GET /api/admin/audit.
type AuditStatusDTO struct {
	LastRun    *campus.AuditRun  `json:"lastRun"`
	Runs       []campus.AuditRun `json:"runs"`
	ClashCount int64             `json:"clashCount"`
	Enabled    bool              `json:"enabled"`
	NextRun    *time.Time        `json:"nextRun,omitempty"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ScenarioResult summarizes what a scenario load wrote.
type ScenarioResult struct {
	Scenario      ScenarioDTO `json:"scenario"`
	Events        int         `json:"events"`
	Registrations int         `json:"registrations"`
	Rejected      int         `json:"rejected"`
}
