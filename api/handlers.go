/*
handlers.go - HTTP API handlers for the campus event manager

PURPOSE:
  Exposes scheduling, registration and analytics over REST. Handles HTTP
  request/response, JSON serialization, and delegates to the campus
  services and the analytics engine.

ENDPOINTS:
  Events:
    GET    /api/events                 List events (?state=upcoming|ongoing|completed|all)
    GET    /api/events/planning        List Planning events
    GET    /api/events/range           Events in [from, to]
    POST   /api/events                 Submit event (Planning)
    POST   /api/events/confirm         Confirm a Planning event
    DELETE /api/events                 Delete by identity (query params)

  Registrations:
    POST   /api/registrations          Register the caller for an event
    GET    /api/registrations          List registrations (?email=)
    GET    /api/me                     Current user

  Analytics:
    GET    /api/analytics/events       Per-event analytics
    GET    /api/analytics/utilization  Venue utilization (?window=week|month|all)
    GET    /api/analytics/risk         Under-engaged events
    GET    /api/analytics/budget       Budget rollup by category

  Admin:
    GET    /api/admin/audit            Last audit runs and clash counter
    POST   /api/admin/audit/run        Run an audit now

REQUEST FLOW:
  1. Parse HTTP request
  2. Resolve the caller (middleware, see auth.go)
  3. Call the service or engine
  4. Serialize response
  5. Map errors with writeDomainError

ERROR HANDLING:
  - 400: validation, closed registration, bad window
  - 401/403: missing token, non-admin caller
  - 404: identity not found
  - 409: scheduling conflict, duplicate registration, slot clash
  - 503: store failure (safe to retry)
  - 500: anything else

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - scheduler.go: Audit scheduler
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/warp/campus-scheduler/analytics"
	"github.com/warp/campus-scheduler/campus"
)

// Handler holds the dependencies of every endpoint.
type Handler struct {
	Scheduling    *campus.SchedulingService
	Registrations *campus.RegistrationService
	Analytics     *analytics.Engine
	Store         campus.Resetter
	Audit         *AuditScheduler
	Clock         campus.Clock
	Logger        *slog.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler. Audit may be attached afterwards.
func NewHandler(sched *campus.SchedulingService, regs *campus.RegistrationService, engine *analytics.Engine, store campus.Resetter, logger *slog.Logger) *Handler {
	return &Handler{
		Scheduling:    sched,
		Registrations: regs,
		Analytics:     engine,
		Store:         store,
		Logger:        logger,
	}
}

func (h *Handler) log() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// Health is the liveness probe.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// EVENT ENDPOINTS
// =============================================================================

// ListEvents returns events, optionally filtered by temporal state.
// GET /api/events?state=upcoming
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("state")))

	var (
		events []campus.Event
		err    error
	)
	switch filter {
	case "", "all":
		events, err = h.Scheduling.ListEvents(ctx)
	default:
		state, ok := campus.ParseState(filter)
		if !ok {
			writeDomainError(w, h.log(), &campus.ValidationError{Field: "state", Reason: "must be upcoming, ongoing, completed or all"})
			return
		}
		events, err = h.Scheduling.ListByState(ctx, state)
	}
	if err != nil {
		writeDomainError(w, h.log(), err)
		return
	}

	writeJSON(w, http.StatusOK, h.toEventDTOs(events))
}

// ListPlanning returns events awaiting confirmation.
// GET /api/events/planning
func (h *Handler) ListPlanning(w http.ResponseWriter, r *http.Request) {
	events, err := h.Scheduling.ListPlanning(r.Context())
	if err != nil {
		writeDomainError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, h.toEventDTOs(events))
}

// ListEventsInRange returns events dated inside [from, to].
// GET /api/events/range?from=2026-03-01&to=2026-03-07
func (h *Handler) ListEventsInRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, ok := campus.ParseDate(q.Get("from"))
	if !ok {
		writeDomainError(w, h.log(), &campus.ValidationError{Field: "from", Reason: "must be YYYY-MM-DD"})
		return
	}
	to, ok := campus.ParseDate(q.Get("to"))
	if !ok {
		writeDomainError(w, h.log(), &campus.ValidationError{Field: "to", Reason: "must be YYYY-MM-DD"})
		return
	}
	window, err := campus.NewWindow(from, to)
	if err != nil {
		writeDomainError(w, h.log(), err)
		return
	}

	events, err := h.Scheduling.ListInRange(r.Context(), window)
	if err != nil {
		writeDomainError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, h.toEventDTOs(events))
}

// SubmitEvent creates a Planning event.
// POST /api/events
func (h *Handler) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	var req SubmitEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	event, err := h.Scheduling.SubmitEvent(r.Context(), req.fields())
	if err != nil {
		writeDomainError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toEventDTO(event))
}

// ConfirmEvent promotes a Planning event to Confirmed.
// POST /api/events/confirm
func (h *Handler) ConfirmEvent(w http.ResponseWriter, r *http.Request) {
	var req EventIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	event, err := h.Scheduling.ConfirmEvent(r.Context(), req.id())
	if err != nil {
		writeDomainError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, h.toEventDTO(event))
}

// DeleteEvent removes an event by identity.
// DELETE /api/events?name=...&date=...&time=...&venue=...
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if strings.TrimSpace(q.Get("time")) == "" {
		writeDomainError(w, h.log(), &campus.ValidationError{Field: "time", Reason: "required"})
		return
	}
	id := campus.NewEventID(q.Get("name"), q.Get("date"), q.Get("time"), q.Get("venue"))

	if err := h.Scheduling.DeleteEvent(r.Context(), id); err != nil {
		writeDomainError(w, h.log(), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REGISTRATION ENDPOINTS
// =============================================================================

// Register signs the caller up for an event.
// POST /api/registrations
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reg, err := h.Registrations.Register(r.Context(), campus.RegistrationRequest{
		EventID:    req.EventID.id(),
		UserName:   req.UserName,
		UserEmail:  req.UserEmail,
		StudentID:  req.StudentID,
		Department: req.Department,
	}, UserFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// ListRegistrations returns every registration, or one user's with ?email=.
// GET /api/registrations
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		regs []campus.Registration
		err  error
	)
	if email := r.URL.Query().Get("email"); email != "" {
		regs, err = h.Registrations.ForUser(ctx, email)
	} else {
		regs, err = h.Registrations.ListRegistrations(ctx)
	}
	if err != nil {
		writeDomainError(w, h.log(), err)
		return
	}
	if regs == nil {
		regs = []campus.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// Me returns the authenticated caller.
// GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, UserFromContext(r.Context()))
}

// =============================================================================
// ANALYTICS ENDPOINTS
// =============================================================================

// EventAnalytics returns one analytics row per event.
// GET /api/analytics/events
func (h *Handler) EventAnalytics(w http.ResponseWriter, r *http.Request) {
	events, regs, err := h.snapshot(r.Context())
	if err != nil {
		writeDomainError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, toEventAnalyticsDTOs(h.Analytics.EventAnalytics(events, regs)))
}

// Utilization returns per-venue utilization over a named window.
// GET /api/analytics/utilization?window=week
func (h *Handler) Utilization(w http.ResponseWriter, r *http.Request) {
	name := campus.WindowName(strings.ToLower(r.URL.Query().Get("window")))
	if name == "" {
		name = campus.WindowWeek
	}

	events, err := h.Scheduling.ListEvents(r.Context())
	if err != nil {
		writeDomainError(w, h.log(), err)
		return
	}

	report, err := h.Analytics.Utilization(name, events)
	if err != nil {
		writeDomainError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Risk returns the under-engaged events, lowest engagement first.
// GET /api/analytics/risk
func (h *Handler) Risk(w http.ResponseWriter, r *http.Request) {
	events, regs, err := h.snapshot(r.Context())
	if err != nil {
		writeDomainError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, h.Analytics.RiskReport(events, regs))
}

// Budget returns the category rollup.
// GET /api/analytics/budget
func (h *Handler) Budget(w http.ResponseWriter, r *http.Request) {
	events, err := h.Scheduling.ListEvents(r.Context())
	if err != nil {
		writeDomainError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(h.Analytics.Budget(events)))
}

func (h *Handler) snapshot(ctx context.Context) ([]campus.Event, []campus.Registration, error) {
	events, err := h.Scheduling.ListEvents(ctx)
	if err != nil {
		return nil, nil, err
	}
	regs, err := h.Registrations.ListRegistrations(ctx)
	if err != nil {
		return nil, nil, err
	}
	return events, regs, nil
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// GetAudit returns recent audit runs and the scheduling clash counter.
// GET /api/admin/audit
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	status := AuditStatusDTO{
		Runs:       []campus.AuditRun{},
		ClashCount: h.Scheduling.ClashCount(),
	}
	if h.Audit != nil {
		runs, err := h.Audit.Recent(r.Context(), 10)
		if err != nil {
			writeDomainError(w, h.log(), err)
			return
		}
		if len(runs) > 0 {
			status.Runs = runs
			status.LastRun = &runs[0]
		}
		status.Enabled = h.Audit.Enabled
		if next, ok := h.Audit.NextRunTime(); ok {
			status.NextRun = &next
		}
	}
	writeJSON(w, http.StatusOK, status)
}

// RunAudit runs the audit immediately.
// POST /api/admin/audit/run
func (h *Handler) RunAudit(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		writeError(w, http.StatusServiceUnavailable, "Audit is not configured", "audit_unavailable", nil)
		return
	}
	run, err := h.Audit.RunNow(r.Context())
	if err != nil {
		writeDomainError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) toEventDTO(e campus.Event) EventDTO {
	return EventDTO{Event: e, State: campus.StateOf(e.Date, h.Clock.Today())}
}

func (h *Handler) toEventDTOs(events []campus.Event) []EventDTO {
	today := h.Clock.Today()
	out := make([]EventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, EventDTO{Event: e, State: campus.StateOf(e.Date, today)})
	}
	return out
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_body", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, code string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps campus errors to a status and code. Store failures
// are logged and reported without their cause.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, campus.ErrRegistrationClosed):
		writeError(w, http.StatusBadRequest, err.Error(), "registration_closed", nil)
	case errors.Is(err, campus.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_window", nil)
	case campus.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), "validation", nil)
	case campus.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), "not_found", nil)
	case errors.Is(err, campus.ErrSchedulingConflict):
		writeError(w, http.StatusConflict, err.Error(), "scheduling_conflict", nil)
	case errors.Is(err, campus.ErrDuplicateRegistration):
		writeError(w, http.StatusConflict, err.Error(), "duplicate_registration", nil)
	case errors.Is(err, campus.ErrSlotClash):
		writeError(w, http.StatusConflict, err.Error(), "slot_clash", nil)
	case campus.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), "conflict", nil)
	case errors.Is(err, campus.ErrPersistence):
		logger.Error("store failure", slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "Storage is temporarily unavailable, please try again", "persistence", nil)
	default:
		logger.Error("unhandled error", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Internal server error", "internal", nil)
	}
}
