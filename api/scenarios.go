/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the stores with realistic
	data for demos. Dates are laid out relative to today so the upcoming,
	ongoing and completed states all show up in the admin console.

AVAILABLE SCENARIOS:

	campus-week:   Tech Symposium, Basketball Finals, Literature Fest
	venue-clash:   two drafts for one slot; the second confirmation is rejected
	busy-semester: past, ongoing and upcoming events with registration history

HOW SCENARIOS WORK:
 1. Reset the stores
 2. Submit every event (Planning)
 3. Confirm the flagged events in order
 4. Register users; registrations for past events are written as history

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "venue-clash"}

ADDING NEW SCENARIOS:
 1. Add an entry to 'scenarios' with its events and registrations
 2. Nothing else: LoadScenario looks it up by ID

NOTE:

	Scenarios reset the stores. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: other endpoints
*/
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/warp/campus-scheduler/campus"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenarioEvent struct {
	offset      int // days from today
	name        string
	slot        string
	venue       string
	description string
	confirm     bool
}

type scenarioRegistration struct {
	event      int // index into events
	userName   string
	email      string
	studentID  string
	department string
}

type scenario struct {
	ScenarioDTO
	events        []scenarioEvent
	registrations []scenarioRegistration
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "campus-week",
			Name:        "Campus Week",
			Description: "Two confirmed events this week and one draft awaiting approval",
		},
		events: []scenarioEvent{
			{offset: 3, name: "Tech Symposium", slot: "Morning", venue: "Grand Auditorium", description: "Talks and demos from student research groups.", confirm: true},
			{offset: 4, name: "Basketball Finals", slot: "Evening", venue: "Sports Complex", description: "Inter-faculty championship final.", confirm: true},
			{offset: 10, name: "Literature Fest", slot: "Afternoon", venue: "Conference Hall A", description: "Readings, panels and a poetry slam."},
		},
		registrations: []scenarioRegistration{
			{event: 0, userName: "Aisha Khan", email: "aisha.khan@campus.edu", studentID: "S1001", department: "Computer Science"},
			{event: 0, userName: "Ben Ortiz", email: "ben.ortiz@campus.edu", studentID: "S1002", department: "Physics"},
			{event: 1, userName: "Aisha Khan", email: "aisha.khan@campus.edu", studentID: "S1001", department: "Computer Science"},
			{event: 2, userName: "Chen Wei", email: "chen.wei@campus.edu", studentID: "S1003", department: "English"},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "venue-clash",
			Name:        "Venue Clash",
			Description: "Two drafts share a slot; confirming the second is rejected. Includes a duplicated draft for the audit",
		},
		events: []scenarioEvent{
			{offset: 5, name: "Tech Symposium", slot: "Evening", venue: "Conference Hall A", confirm: true},
			{offset: 5, name: "Literature Fest", slot: "Evening", venue: "Conference Hall A", confirm: true},
			{offset: 8, name: "Robotics Expo", slot: "Morning", venue: "Grand Auditorium"},
			{offset: 8, name: "Robotics Expo", slot: "Morning", venue: "Grand Auditorium"},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "busy-semester",
			Name:        "Busy Semester",
			Description: "Completed, ongoing and upcoming events with registration history and rejected sign-ups",
		},
		events: []scenarioEvent{
			{offset: -14, name: "Freshers Welcome", slot: "Afternoon", venue: "Grand Auditorium", confirm: true},
			{offset: -7, name: "Alumni Mixer", slot: "Evening", venue: "Conference Hall A", confirm: true},
			{offset: 0, name: "Basketball Finals", slot: "Evening", venue: "Sports Complex", confirm: true},
			{offset: 2, name: "Career Fair", slot: "Morning", venue: "Grand Auditorium", confirm: true},
			{offset: 2, name: "Hackathon Kickoff", slot: "Morning", venue: "Conference Hall A", confirm: true},
			{offset: 20, name: "Literature Fest", slot: "Afternoon", venue: "Conference Hall A"},
		},
		registrations: []scenarioRegistration{
			{event: 0, userName: "Aisha Khan", email: "aisha.khan@campus.edu", studentID: "S1001", department: "Computer Science"},
			{event: 0, userName: "Chen Wei", email: "chen.wei@campus.edu", studentID: "S1003", department: "English"},
			{event: 1, userName: "Ben Ortiz", email: "ben.ortiz@campus.edu", studentID: "S1002", department: "Physics"},
			{event: 3, userName: "Aisha Khan", email: "aisha.khan@campus.edu", studentID: "S1001", department: "Computer Science"},
			{event: 4, userName: "Aisha Khan", email: "aisha.khan@campus.edu", studentID: "S1001", department: "Computer Science"}, // slot clash
			{event: 4, userName: "Ben Ortiz", email: "ben.ortiz@campus.edu", studentID: "S1002", department: "Physics"},
			{event: 4, userName: "Ben Ortiz", email: "ben.ortiz@campus.edu", studentID: "S1002", department: "Physics"}, // duplicate
			{event: 5, userName: "Chen Wei", email: "chen.wei@campus.edu", studentID: "S1003", department: "English"},
		},
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// SCENARIO ENDPOINTS
// =============================================================================

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	s, ok := findScenario(current)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.ScenarioDTO)
}

// LoadScenario resets the stores and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", "unknown_scenario", nil)
		return
	}
	if !h.reset(w, r) {
		return
	}

	result, err := h.loadScenario(r.Context(), s)
	if err != nil {
		writeDomainError(w, h.log(), err)
		return
	}

	h.mu.Lock()
	h.currentScenario = s.ID
	h.mu.Unlock()

	h.log().Info("scenario loaded",
		slog.String("scenario", s.ID),
		slog.Int("events", result.Events),
		slog.Int("registrations", result.Registrations),
		slog.Int("rejected", result.Rejected),
	)
	writeJSON(w, http.StatusOK, result)
}

// ResetScenario wipes events, registrations and audit runs.
// POST /api/scenarios/reset
func (h *Handler) ResetScenario(w http.ResponseWriter, r *http.Request) {
	if !h.reset(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) bool {
	if h.Store == nil {
		writeError(w, http.StatusNotImplemented, "Store cannot be reset", "reset_unsupported", nil)
		return false
	}
	if err := h.Store.Reset(r.Context()); err != nil {
		writeDomainError(w, h.log(), &campus.PersistenceError{Op: "reset", Err: err})
		return false
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	return true
}

// =============================================================================
// SCENARIO LOADER
// =============================================================================

// loadScenario writes a scenario through the services so every rule
// applies. Conflicts are expected in some scenarios and are counted, not
// returned.
func (h *Handler) loadScenario(ctx context.Context, s scenario) (ScenarioResult, error) {
	today := h.Clock.Today()
	result := ScenarioResult{Scenario: s.ScenarioDTO}

	ids := make([]campus.EventID, len(s.events))
	for i, se := range s.events {
		event, err := h.Scheduling.SubmitEvent(ctx, campus.EventFields{
			Name:        se.name,
			Date:        today.AddDays(se.offset).String(),
			Time:        se.slot,
			Venue:       se.venue,
			Description: se.description,
		})
		if campus.IsConflict(err) {
			result.Rejected++
			continue
		}
		if err != nil {
			return result, err
		}
		ids[i] = event.ID()
		result.Events++
	}

	for i, se := range s.events {
		if !se.confirm || ids[i] == (campus.EventID{}) {
			continue
		}
		_, err := h.Scheduling.ConfirmEvent(ctx, ids[i])
		if campus.IsConflict(err) {
			result.Rejected++
			continue
		}
		if err != nil {
			return result, err
		}
	}

	for _, sr := range s.registrations {
		id := ids[sr.event]
		if id == (campus.EventID{}) {
			continue
		}
		req := campus.RegistrationRequest{
			EventID:    id,
			UserName:   sr.userName,
			UserEmail:  sr.email,
			StudentID:  sr.studentID,
			Department: sr.department,
		}

		_, err := h.Registrations.Register(ctx, req, nil)
		if errors.Is(err, campus.ErrRegistrationClosed) {
			err = h.appendHistory(ctx, req)
		}
		switch {
		case err == nil:
			result.Registrations++
		case campus.IsConflict(err):
			result.Rejected++
		default:
			return result, err
		}
	}

	return result, nil
}

// appendHistory records a registration for an event that is no longer
// upcoming, as if it had been made three days before the event. The
// registration rules still apply.
func (h *Handler) appendHistory(ctx context.Context, req campus.RegistrationRequest) error {
	day, ok := campus.ParseDate(req.EventID.Date)
	if !ok {
		return &campus.ValidationError{Field: "eventId.date", Reason: "must be YYYY-MM-DD"}
	}
	_, err := h.Registrations.RecordHistory(ctx, req, day.AddDays(-3).Time.Add(9*time.Hour))
	return err
}
