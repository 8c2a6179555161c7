// Package store provides in-memory campus stores.
package store

import (
	"context"
	"slices"
	"sync"

	"github.com/warp/campus-scheduler/campus"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds both collections behind one lock. Events and Registrations
// return views that satisfy the campus store contracts.
type Memory struct {
	mu            sync.RWMutex
	events        []campus.Event
	registrations []campus.Registration
	audits        []campus.AuditRun
}

func NewMemory() *Memory {
	return &Memory{}
}

// Events returns the EventStore view.
func (m *Memory) Events() campus.EventStore { return eventView{m} }

// Registrations returns the RegistrationStore view.
func (m *Memory) Registrations() campus.RegistrationStore { return registrationView{m} }

// Reset drops every event and registration.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
	m.registrations = nil
	m.audits = nil
	return nil
}

// SaveAuditRun inserts or replaces a run by ID.
func (m *Memory) SaveAuditRun(_ context.Context, run campus.AuditRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.audits {
		if m.audits[i].ID == run.ID {
			m.audits[i] = run
			return nil
		}
	}
	m.audits = append(m.audits, run)
	return nil
}

// ListAuditRuns returns the newest runs first.
func (m *Memory) ListAuditRuns(_ context.Context, limit int) ([]campus.AuditRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.audits)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type eventView struct{ m *Memory }

func (v eventView) List(_ context.Context) ([]campus.Event, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	return slices.Clone(v.m.events), nil
}

// ReplaceAll swaps the whole list. The caller's slice is copied so later
// edits to it are not visible here.
func (v eventView) ReplaceAll(_ context.Context, events []campus.Event) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	v.m.events = slices.Clone(events)
	return nil
}

func (v eventView) Reset(ctx context.Context) error { return v.m.Reset(ctx) }

type registrationView struct{ m *Memory }

func (v registrationView) List(_ context.Context) ([]campus.Registration, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	return slices.Clone(v.m.registrations), nil
}

// Append adds a single registration. Append-only.
func (v registrationView) Append(_ context.Context, r campus.Registration) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	v.m.registrations = append(v.m.registrations, r)
	return nil
}

func (v registrationView) Reset(ctx context.Context) error { return v.m.Reset(ctx) }
