package campus_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp/campus-scheduler/campus"
	"github.com/warp/campus-scheduler/campus/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// today is 2026-03-01 for every test in this package.
var testClock = campus.FixedClock(time.Date(2026, time.March, 1, 10, 30, 0, 0, time.UTC))

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newServices(t *testing.T) (*campus.SchedulingService, *campus.RegistrationService, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	sched := campus.NewSchedulingService(mem.Events(), quietLogger())
	sched.Clock = testClock
	regs := campus.NewRegistrationService(mem.Events(), mem.Registrations(), quietLogger())
	regs.Clock = testClock
	return sched, regs, mem
}

func seedEvents(t *testing.T, mem *store.Memory, events ...campus.Event) {
	t.Helper()
	require.NoError(t, mem.Events().ReplaceAll(context.Background(), events))
}

func event(name, date, slot, venue string, status campus.Status) campus.Event {
	return campus.Event{Name: name, Date: date, Time: slot, Venue: venue, Status: status, Description: campus.DefaultDescription}
}

func fields(name, date, slot, venue string) campus.EventFields {
	return campus.EventFields{Name: name, Date: date, Time: slot, Venue: venue}
}

var errDiskFull = errors.New("disk full")

// failingEvents reads from an inner store but refuses every write.
type failingEvents struct {
	campus.EventStore
}

func (failingEvents) ReplaceAll(context.Context, []campus.Event) error { return errDiskFull }

// failingRegistrations refuses every append.
type failingRegistrations struct {
	campus.RegistrationStore
}

func (failingRegistrations) Append(context.Context, campus.Registration) error { return errDiskFull }

// brokenEvents fails on read.
type brokenEvents struct{}

func (brokenEvents) List(context.Context) ([]campus.Event, error)     { return nil, errDiskFull }
func (brokenEvents) ReplaceAll(context.Context, []campus.Event) error { return errDiskFull }
