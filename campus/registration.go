package campus

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// RegistrationService validates and records sign-ups. It reads events but
// only ever writes registrations.
type RegistrationService struct {
	Events        EventStore
	Registrations RegistrationStore
	Clock         Clock
	Logger        *slog.Logger

	mu sync.Mutex
}

// NewRegistrationService wires the two stores.
func NewRegistrationService(events EventStore, regs RegistrationStore, logger *slog.Logger) *RegistrationService {
	return &RegistrationService{Events: events, Registrations: regs, Logger: logger}
}

func (s *RegistrationService) log() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Register records a registration for the selected event.
//
// Order of checks:
//  1. the selection must name a complete event identity
//  2. the event must exist
//  3. the event must still be upcoming
//  4. a user email is required (taken from user when the request has none)
//  5. duplicate (email, event), then slot clash (email, date, time)
//
// Nothing is written unless every check passes.
func (s *RegistrationService) Register(ctx context.Context, req RegistrationRequest, user *UserIdentity) (Registration, error) {
	return s.record(ctx, req, user, time.Time{})
}

// RecordHistory stores a registration made at for an event that may already
// be ongoing or completed. Every check of Register applies except the
// upcoming-only rule.
func (s *RegistrationService) RecordHistory(ctx context.Context, req RegistrationRequest, at time.Time) (Registration, error) {
	if at.IsZero() {
		return Registration{}, &ValidationError{Field: "registeredAt", Reason: "required"}
	}
	return s.record(ctx, req, nil, at)
}

// record runs the registration checks and the append under s.mu. A zero at
// means a live sign-up stamped with the service clock.
func (s *RegistrationService) record(ctx context.Context, req RegistrationRequest, user *UserIdentity, at time.Time) (Registration, error) {
	id := req.EventID.Normalized()
	if field := id.Missing(); field != "" {
		return Registration{}, &ValidationError{Field: "eventId." + field, Reason: "required"}
	}

	userName := strings.TrimSpace(req.UserName)
	email := NormalizeEmail(req.UserEmail)
	if user != nil {
		if userName == "" {
			userName = strings.TrimSpace(user.Username)
		}
		if email == "" {
			email = NormalizeEmail(user.Email)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.Events.List(ctx)
	if err != nil {
		return Registration{}, persistenceErr("load events", err)
	}
	idx := slices.IndexFunc(events, func(e Event) bool { return e.ID() == id })
	if idx < 0 {
		return Registration{}, fmt.Errorf("%w: no event %s", ErrNotFound, id)
	}
	event := events[idx]

	if state := StateOf(event.Date, s.Clock.Today()); at.IsZero() && state != StateUpcoming {
		return Registration{}, fmt.Errorf("%w: %s is %s", ErrRegistrationClosed, event.Name, state)
	}

	if email == "" {
		return Registration{}, &ValidationError{Field: "userEmail", Reason: "required"}
	}

	existing, err := s.Registrations.List(ctx)
	if err != nil {
		return Registration{}, persistenceErr("load registrations", err)
	}

	reg := Registration{
		EventID:      id,
		EventName:    id.Name,
		Date:         id.Date,
		Time:         id.Time,
		Venue:        id.Venue,
		UserName:     userName,
		UserEmail:    email,
		StudentID:    strings.TrimSpace(req.StudentID),
		Department:   strings.TrimSpace(req.Department),
		RegisteredAt: at.UTC(),
	}
	if at.IsZero() {
		reg.RegisteredAt = s.Clock.Now().UTC()
	}

	if err := FindRegistrationConflict(reg, existing); err != nil {
		s.log().Info("registration rejected",
			slog.String("event_id", id.String()),
			slog.String("user_email", email),
			slog.String("reason", err.Error()),
		)
		return Registration{}, err
	}

	if err := s.Registrations.Append(ctx, reg); err != nil {
		// Stores with a uniqueness constraint report the conflict themselves.
		if IsConflict(err) {
			return Registration{}, err
		}
		return Registration{}, persistenceErr("save registration", err)
	}

	s.log().Info("registration recorded",
		slog.String("event_id", id.String()),
		slog.String("user_email", email),
	)
	return reg, nil
}

// ListRegistrations returns every registration in insertion order.
func (s *RegistrationService) ListRegistrations(ctx context.Context) ([]Registration, error) {
	regs, err := s.Registrations.List(ctx)
	if err != nil {
		return nil, persistenceErr("load registrations", err)
	}
	return regs, nil
}

// ForUser returns the registrations recorded under email.
func (s *RegistrationService) ForUser(ctx context.Context, email string) ([]Registration, error) {
	regs, err := s.ListRegistrations(ctx)
	if err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	var out []Registration
	for _, r := range regs {
		if NormalizeEmail(r.UserEmail) == email {
			out = append(out, r)
		}
	}
	return out, nil
}
