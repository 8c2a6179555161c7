/*
scheduling.go - Event lifecycle: submit, confirm, delete

STATE MACHINE:

  submit ──▶ Planning ──confirm──▶ Confirmed
                │                      │
                └──────── delete ──────┘

  Events are always created as Planning. Confirmed is terminal; deletion
  is orthogonal and allowed from any state.

REJECT BEFORE MUTATE:
  Every operation validates input, loads the current list, runs the
  ConflictPolicy, and only then builds the new list and persists it. A
  conflict or validation failure never touches the store. A failed write
  leaves the store as ground truth; nothing is cached here.

CONCURRENCY:
  The list -> decide -> ReplaceAll sequence runs under mu, so two
  concurrent submissions cannot both pass the conflict check or lose each
  other's append.
*/
package campus

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// SchedulingService orchestrates event mutations against an EventStore.
type SchedulingService struct {
	Events    EventStore
	TimeSlots []string // allowed day-parts; empty accepts any value
	Clock     Clock
	Logger    *slog.Logger

	mu      sync.Mutex
	clashes atomic.Int64
}

// NewSchedulingService creates a service with the default time slots.
func NewSchedulingService(events EventStore, logger *slog.Logger) *SchedulingService {
	return &SchedulingService{
		Events:    events,
		TimeSlots: DefaultTimeSlots,
		Logger:    logger,
	}
}

func (s *SchedulingService) log() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// ClashCount is the number of submissions and confirmations rejected for a
// scheduling conflict since start-up.
func (s *SchedulingService) ClashCount() int64 {
	return s.clashes.Load()
}

// SubmitEvent validates the fields and appends a new Planning event unless
// a Confirmed event already occupies the slot and venue.
func (s *SchedulingService) SubmitEvent(ctx context.Context, f EventFields) (Event, error) {
	candidate, err := s.validate(f)
	if err != nil {
		return Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.Events.List(ctx)
	if err != nil {
		return Event{}, persistenceErr("load events", err)
	}

	if existing, ok := FindSchedulingConflict(candidate, events); ok {
		s.clashes.Add(1)
		s.log().Warn("event submission rejected",
			slog.String("event", candidate.Name),
			slog.String("venue", candidate.Venue),
			slog.String("date", candidate.Date),
			slog.String("time", candidate.Time),
			slog.String("blocked_by", existing.Name),
		)
		return Event{}, &SchedulingConflictError{Candidate: candidate.ID(), Existing: existing.ID()}
	}

	id := candidate.ID()
	for _, e := range events {
		if e.Status == StatusPlanning && e.ID() == id {
			s.log().Warn("planning identity collision", slog.String("event_id", id.String()))
			break
		}
	}

	next := append(slices.Clone(events), candidate)
	if err := s.Events.ReplaceAll(ctx, next); err != nil {
		return Event{}, persistenceErr("save events", err)
	}

	s.log().Info("event submitted",
		slog.String("event_id", id.String()),
		slog.String("status", string(candidate.Status)),
	)
	return candidate, nil
}

// ConfirmEvent promotes the first Planning event matching id to Confirmed
// after re-checking the slot against every other Confirmed event, including
// one that shares its identity.
func (s *SchedulingService) ConfirmEvent(ctx context.Context, id EventID) (Event, error) {
	id = id.Normalized()
	if field := id.Missing(); field != "" {
		return Event{}, &ValidationError{Field: field, Reason: "required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.Events.List(ctx)
	if err != nil {
		return Event{}, persistenceErr("load events", err)
	}

	idx := slices.IndexFunc(events, func(e Event) bool {
		return e.Status == StatusPlanning && e.ID() == id
	})
	if idx < 0 {
		return Event{}, fmt.Errorf("%w: no planning event %s", ErrNotFound, id)
	}

	others := slices.Delete(slices.Clone(events), idx, idx+1)
	if existing, ok := FindSchedulingConflict(events[idx], others); ok {
		s.clashes.Add(1)
		s.log().Warn("event confirmation rejected",
			slog.String("event_id", id.String()),
			slog.String("blocked_by", existing.Name),
		)
		return Event{}, &SchedulingConflictError{Candidate: id, Existing: existing.ID()}
	}

	next := slices.Clone(events)
	next[idx].Status = StatusConfirmed
	if err := s.Events.ReplaceAll(ctx, next); err != nil {
		return Event{}, persistenceErr("save events", err)
	}

	s.log().Info("event confirmed", slog.String("event_id", id.String()))
	return next[idx], nil
}

// DeleteEvent removes the first event matching id, whatever its status.
func (s *SchedulingService) DeleteEvent(ctx context.Context, id EventID) error {
	id = id.Normalized()
	if field := id.Missing(); field != "" {
		return &ValidationError{Field: field, Reason: "required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.Events.List(ctx)
	if err != nil {
		return persistenceErr("load events", err)
	}

	idx := slices.IndexFunc(events, func(e Event) bool { return e.ID() == id })
	if idx < 0 {
		return fmt.Errorf("%w: no event %s", ErrNotFound, id)
	}

	next := slices.Delete(slices.Clone(events), idx, idx+1)
	if err := s.Events.ReplaceAll(ctx, next); err != nil {
		return persistenceErr("save events", err)
	}

	s.log().Info("event deleted", slog.String("event_id", id.String()))
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// ListEvents returns every event.
func (s *SchedulingService) ListEvents(ctx context.Context) ([]Event, error) {
	events, err := s.Events.List(ctx)
	if err != nil {
		return nil, persistenceErr("load events", err)
	}
	return events, nil
}

// ListPlanning returns the events still awaiting confirmation.
func (s *SchedulingService) ListPlanning(ctx context.Context) ([]Event, error) {
	return s.filter(ctx, func(e Event) bool { return e.Status == StatusPlanning })
}

// ListInRange returns events whose date falls inside w. Events with
// malformed dates are never in range.
func (s *SchedulingService) ListInRange(ctx context.Context, w Window) ([]Event, error) {
	return s.filter(ctx, func(e Event) bool { return w.ContainsDate(e.Date) })
}

// ListByState returns events in the given temporal state relative to today.
func (s *SchedulingService) ListByState(ctx context.Context, state State) ([]Event, error) {
	today := s.Clock.Today()
	return s.filter(ctx, func(e Event) bool { return StateOf(e.Date, today) == state })
}

func (s *SchedulingService) filter(ctx context.Context, keep func(Event) bool) ([]Event, error) {
	events, err := s.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// validate builds the Planning event for a submission.
func (s *SchedulingService) validate(f EventFields) (Event, error) {
	id := NewEventID(f.Name, f.Date, f.Time, f.Venue)

	// Time defaults to TBA inside NewEventID; a submission must name one.
	if normalize(f.Time) == "" {
		return Event{}, &ValidationError{Field: "time", Reason: "required"}
	}
	if field := id.Missing(); field != "" {
		return Event{}, &ValidationError{Field: field, Reason: "required"}
	}
	if _, ok := ParseDate(id.Date); !ok {
		return Event{}, &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	if len(s.TimeSlots) > 0 && id.Time != TimeTBA && !slices.Contains(s.TimeSlots, id.Time) {
		return Event{}, &ValidationError{Field: "time", Reason: fmt.Sprintf("must be one of %v or %s", s.TimeSlots, TimeTBA)}
	}

	desc := normalize(f.Description)
	if desc == "" {
		desc = DefaultDescription
	}

	return Event{
		Name:        id.Name,
		Date:        id.Date,
		Time:        id.Time,
		Venue:       id.Venue,
		Status:      StatusPlanning,
		Description: desc,
	}, nil
}
