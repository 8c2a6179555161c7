/*
errors.go - Centralized error types for scheduling and registration

PURPOSE:
  All error types in one place for consistency and discoverability.
  The HTTP layer maps them to status codes with errors.Is.

ERROR CATEGORIES:
  1. Validation errors  - missing/malformed input, rejected before store access
  2. Conflict errors    - scheduling or registration collisions, no mutation
  3. Not-found errors   - identity absent from the store
  4. Persistence errors - the external store failed to read or write

PRECEDENCE:
  Specific sentinels (ErrSlotClash, ErrSchedulingConflict, ...) unwrap to
  their category sentinel, so both of these hold for a slot clash:

    errors.Is(err, campus.ErrSlotClash)
    errors.Is(err, campus.ErrConflict)

SEE ALSO:
  - scheduling.go:   returns SchedulingConflictError, NotFound
  - registration.go: returns RegistrationConflictError
  - api/handlers.go: status code mapping
*/
package campus

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the category for missing or malformed required fields.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is the category for scheduling and registration collisions.
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned when an operation targets an absent identity.
	ErrNotFound = errors.New("not found")

	// ErrPersistence is returned when the external store fails.
	ErrPersistence = errors.New("persistence failure")
)

var (
	// ErrSchedulingConflict: a Confirmed event already holds the slot and venue.
	ErrSchedulingConflict = errors.New("venue already booked for this slot")

	// ErrDuplicateRegistration: same user already registered for the event.
	ErrDuplicateRegistration = errors.New("already registered for this event")

	// ErrSlotClash: same user already registered for another event in the slot.
	ErrSlotClash = errors.New("already registered for another event in this slot")

	// ErrRegistrationClosed: the event is not upcoming any more.
	ErrRegistrationClosed = errors.New("registration is closed for this event")

	// ErrInvalidWindow: a date window is malformed or unknown.
	ErrInvalidWindow = errors.New("invalid window")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// SchedulingConflictError identifies the Confirmed event that blocks the
// candidate.
type SchedulingConflictError struct {
	Candidate EventID
	Existing  EventID
}

func (e *SchedulingConflictError) Error() string {
	return fmt.Sprintf("%s on %s (%s) clashes with confirmed event %q",
		e.Candidate.Venue, e.Candidate.Date, e.Candidate.Time, e.Existing.Name)
}

func (e *SchedulingConflictError) Unwrap() []error {
	return []error{ErrSchedulingConflict, ErrConflict}
}

// RegistrationConflictError reports a duplicate or a slot clash.
// Reason is ErrDuplicateRegistration or ErrSlotClash.
type RegistrationConflictError struct {
	Reason    error
	UserEmail string
	Existing  EventID
}

func (e *RegistrationConflictError) Error() string {
	return fmt.Sprintf("%s: %s (existing: %q on %s %s)",
		e.Reason, e.UserEmail, e.Existing.Name, e.Existing.Date, e.Existing.Time)
}

func (e *RegistrationConflictError) Unwrap() []error {
	return []error{e.Reason, ErrConflict}
}

// PersistenceError wraps a failure of the external store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

func persistenceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidWindow) ||
		errors.Is(err, ErrRegistrationClosed)
}

// IsConflict returns true for scheduling and registration collisions.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsNotFound returns true if the error indicates a missing event.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
