/*
store.go - Persistence contracts for events and registrations

PURPOSE:
  Defines the interface between the scheduling core and durable storage.
  Services never keep their own copy of the dataset: every operation lists
  the store, decides, then writes. The store is ground truth, so after a
  PersistenceError the next call simply reloads it.

WHOLE-LIST REPLACE:
  EventStore persists the entire ordered event list on every mutation.
  Implementations must make ReplaceAll atomic: either the new list is
  visible in full or the old list is untouched.

APPEND-ONLY REGISTRATIONS:
  Registrations are never updated or deleted by the core. Append is the
  only write.

SINGLE WRITER:
  Each store has exactly one owning service (SchedulingService for events,
  RegistrationService for registrations) and that service serializes its
  list -> decide -> write sequence with a mutex.

IMPLEMENTATIONS:
  - campus/store/memory.go:  in-memory, for tests and -db=memory
  - store/sqlite/sqlite.go:  SQLite (default)
  - store/postgres:          PostgreSQL via pgx
*/
package campus

import "context"

// EventStore is the ordered collection of events.
type EventStore interface {
	// List returns all events in insertion order.
	List(ctx context.Context) ([]Event, error)

	// ReplaceAll atomically overwrites the stored list.
	ReplaceAll(ctx context.Context, events []Event) error
}

// RegistrationStore is the append-only collection of registrations.
type RegistrationStore interface {
	// List returns all registrations in insertion order.
	List(ctx context.Context) ([]Registration, error)

	// Append persists one registration.
	Append(ctx context.Context, r Registration) error
}

// Resetter is implemented by stores that can be wiped (demo scenarios only).
type Resetter interface {
	Reset(ctx context.Context) error
}
