/*
Package campus provides the scheduling and registration core of the campus
event manager.

PURPOSE:
  Decides whether a proposed event collides with confirmed events, drives
  the Planning -> Confirmed lifecycle, and enforces the registration rules
  (one registration per user and event, one event per user and slot).

KEY CONCEPTS IN THIS FILE (types.go):
  - EventID:      value-typed identity (name, date, time, venue)
  - Event:        a scheduled event with a lifecycle status
  - Registration: a user's sign-up, holding a snapshot of the event identity
  - UserIdentity: the authenticated caller

IDENTITY:
  There is no surrogate key for events. EventID is a comparable struct, so
  it can be used with == and as a map key. Components are trimmed and NFC
  normalized by NewEventID; no delimiter is ever involved.

SEE ALSO:
  - conflict.go:     ConflictPolicy
  - scheduling.go:   SchedulingService
  - registration.go: RegistrationService
  - store.go:        persistence contracts
*/
package campus

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// TimeTBA is used when an event has no assigned day-part.
const TimeTBA = "TBA"

// DefaultDescription is stored when an event is submitted without one.
const DefaultDescription = "No description provided."

// DefaultTimeSlots are the day-parts an event can occupy.
var DefaultTimeSlots = []string{"Morning", "Afternoon", "Evening"}

// =============================================================================
// EVENT
// =============================================================================

// Status is the lifecycle state of an event.
type Status string

const (
	StatusPlanning  Status = "Planning"
	StatusConfirmed Status = "Confirmed"
)

// EventID identifies an event instance by its core fields.
type EventID struct {
	Name  string `json:"name"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Venue string `json:"venue"`
}

// NewEventID normalizes the components. An empty time becomes TBA.
func NewEventID(name, date, slot, venue string) EventID {
	slot = normalize(slot)
	if slot == "" {
		slot = TimeTBA
	}
	return EventID{
		Name:  normalize(name),
		Date:  normalize(date),
		Time:  slot,
		Venue: normalize(venue),
	}
}

// Normalized re-applies NewEventID to an identity received from a client.
func (id EventID) Normalized() EventID {
	return NewEventID(id.Name, id.Date, id.Time, id.Venue)
}

// Missing returns the first empty component, or "" if the identity is complete.
func (id EventID) Missing() string {
	switch {
	case id.Name == "":
		return "name"
	case id.Date == "":
		return "date"
	case id.Time == "":
		return "time"
	case id.Venue == "":
		return "venue"
	}
	return ""
}

func (id EventID) String() string {
	return id.Name + " @ " + id.Venue + " on " + id.Date + " (" + id.Time + ")"
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Event is a scheduled campus event.
type Event struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Venue       string `json:"venue"`
	Status      Status `json:"status"`
	Description string `json:"description"`
}

// ID returns the identity tuple of the event.
func (e Event) ID() EventID {
	return NewEventID(e.Name, e.Date, e.Time, e.Venue)
}

// Day returns the parsed calendar date, false if the stored date is malformed.
func (e Event) Day() (Date, bool) {
	return ParseDate(e.Date)
}

// SameSlot reports whether two events occupy the same venue at the same slot.
func (e Event) SameSlot(other Event) bool {
	a, b := e.ID(), other.ID()
	return a.Date == b.Date && a.Time == b.Time && a.Venue == b.Venue
}

// EventFields is the submission payload for a new event.
type EventFields struct {
	Name        string
	Date        string
	Time        string
	Venue       string
	Description string
}

// =============================================================================
// REGISTRATION
// =============================================================================

// Registration records a user signing up for an event. EventID and the
// denormalized date/time/venue are a snapshot taken at registration time.
type Registration struct {
	EventID      EventID   `json:"eventId"`
	EventName    string    `json:"eventName"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	Venue        string    `json:"venue"`
	UserName     string    `json:"userName"`
	UserEmail    string    `json:"userEmail"`
	StudentID    string    `json:"studentId"`
	Department   string    `json:"department"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// RegistrationRequest is what a user submits from the public site.
type RegistrationRequest struct {
	EventID    EventID
	UserName   string
	UserEmail  string
	StudentID  string
	Department string
}

// NormalizeEmail lower-cases and trims an address for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// =============================================================================
// USER
// =============================================================================

// RoleAdmin gates the admin console.
const RoleAdmin = "admin"

// UserIdentity is the authenticated caller.
type UserIdentity struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the user may use admin-only operations.
func (u *UserIdentity) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
