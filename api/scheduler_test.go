package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/campus-scheduler/analytics"
	"github.com/warp/campus-scheduler/campus"
	"github.com/warp/campus-scheduler/campus/store"
)

func newAudit(mem *store.Memory, events campus.EventStore) *AuditScheduler {
	sched := campus.NewSchedulingService(events, quietLogger())
	sched.Clock = testClock
	regs := campus.NewRegistrationService(events, mem.Registrations(), quietLogger())
	regs.Clock = testClock
	engine := analytics.NewEngine(testVenues, nil, nil, testClock)

	as := NewAuditScheduler(mem, sched, regs, engine, quietLogger())
	as.Clock = testClock
	return as
}

func TestAuditScheduler_RunNowRecordsCompletedRun(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Events().ReplaceAll(ctx, []campus.Event{
		{Name: "Gala", Date: day(3), Time: "Evening", Venue: "Grand Auditorium", Status: campus.StatusConfirmed},
	}))
	as := newAudit(mem, mem.Events())

	run, err := as.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, campus.AuditCompleted, run.Status)
	assert.Equal(t, 1, run.EventsChecked)
	assert.Equal(t, 1, run.AtRisk)
	assert.Empty(t, run.Collisions)
	require.NotNil(t, run.CompletedAt)

	runs, err := mem.ListAuditRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1, "running record is replaced, not duplicated")
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, campus.AuditCompleted, runs[0].Status)
}

func TestAuditScheduler_StoreFailureRecordsFailedRun(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	as := newAudit(mem, brokenEvents{})

	_, err := as.RunNow(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, campus.ErrPersistence)

	runs, err := mem.ListAuditRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, campus.AuditFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, errDiskFull.Error())
	assert.NotNil(t, runs[0].CompletedAt)
}

func TestAuditScheduler_StartRunsImmediately(t *testing.T) {
	mem := store.NewMemory()
	as := newAudit(mem, mem.Events())
	as.CheckInterval = time.Hour

	as.Start()
	t.Cleanup(as.Stop)

	require.Eventually(t, func() bool {
		runs, err := mem.ListAuditRuns(context.Background(), 1)
		return err == nil && len(runs) == 1 && runs[0].Status == campus.AuditCompleted
	}, 2*time.Second, 10*time.Millisecond)

	next, ok := as.NextRunTime()
	require.True(t, ok)
	assert.Equal(t, testClock.Now().Add(time.Hour), next)

	as.Stop()
	_, ok = as.NextRunTime()
	assert.False(t, ok)
}

func TestAuditScheduler_DisabledDoesNotStart(t *testing.T) {
	mem := store.NewMemory()
	as := newAudit(mem, mem.Events())
	as.Enabled = false

	as.Start()
	defer as.Stop()

	_, ok := as.NextRunTime()
	assert.False(t, ok)

	runs, err := mem.ListAuditRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
