package campus

import (
	"context"
	"time"
)

// Audit run statuses.
const (
	AuditRunning   = "running"
	AuditCompleted = "completed"
	AuditFailed    = "failed"
)

// AuditRun records one pass of the periodic dataset audit: how many events
// were checked, how many are under-engaged, and which Planning identities
// are shared by more than one draft.
type AuditRun struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	EventsChecked int        `json:"eventsChecked"`
	AtRisk        int        `json:"atRisk"`
	Collisions    []EventID  `json:"collisions"`
	ClashCount    int64      `json:"clashCount"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// AuditLog persists audit runs. SaveAuditRun upserts by ID so a run can be
// written when it starts and again when it finishes.
type AuditLog interface {
	SaveAuditRun(ctx context.Context, run AuditRun) error

	// ListAuditRuns returns the most recent runs first, at most limit.
	ListAuditRuns(ctx context.Context, limit int) ([]AuditRun, error)
}
