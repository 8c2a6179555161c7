/*
scheduler.go - Periodic dataset audit

PURPOSE:
  Periodically audits the event dataset: computes the engagement risk
  report and detects Planning identity collisions (two drafts sharing
  name, date, time and venue, which no identity-based operation can tell
  apart). Findings are logged and every run is recorded for the admin
  console.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Runs once immediately on Start
  - Each run is saved as "running", then "completed" or "failed"
  - The audit only reads events and registrations; it never mutates them

CONFIGURATION:
  - CheckInterval: How often to run (default: 15 minutes)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  audit := NewAuditScheduler(log, sched, regs, engine, logger)
  audit.Start()
  // ... later
  audit.Stop()

SEE ALSO:
  - handlers.go: GetAudit / RunAudit endpoints
  - campus/audit.go: AuditRun, AuditLog
*/
package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/campus-scheduler/analytics"
	"github.com/warp/campus-scheduler/campus"
)

// AuditScheduler runs the dataset audit on a ticker.
type AuditScheduler struct {
	Log           campus.AuditLog
	Scheduling    *campus.SchedulingService
	Registrations *campus.RegistrationService
	Analytics     *analytics.Engine
	CheckInterval time.Duration
	Enabled       bool
	Clock         campus.Clock
	Logger        *slog.Logger

	ticker  *time.Ticker
	stop    chan struct{}
	cancel  context.CancelFunc
	nextRun time.Time
	wg      sync.WaitGroup
	mu      sync.Mutex
	runMu   sync.Mutex
}

// NewAuditScheduler creates an enabled scheduler with a 15 minute interval.
func NewAuditScheduler(auditLog campus.AuditLog, sched *campus.SchedulingService, regs *campus.RegistrationService, engine *analytics.Engine, logger *slog.Logger) *AuditScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditScheduler{
		Log:           auditLog,
		Scheduling:    sched,
		Registrations: regs,
		Analytics:     engine,
		CheckInterval: 15 * time.Minute,
		Enabled:       true,
		Logger:        logger.With(slog.String("component", "audit")),
	}
}

func (as *AuditScheduler) log() *slog.Logger {
	if as.Logger == nil {
		return slog.Default().With(slog.String("component", "audit"))
	}
	return as.Logger
}

// Start begins the scheduler. Calling Start twice has no effect.
func (as *AuditScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		as.log().Info("audit disabled, not starting")
		return
	}
	if as.ticker != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	as.cancel = cancel
	as.stop = make(chan struct{})
	as.ticker = time.NewTicker(as.CheckInterval)
	as.nextRun = as.Clock.Now().Add(as.CheckInterval)
	as.wg.Add(1)

	go as.run(ctx, as.ticker, as.stop)

	as.log().Info("audit started", slog.Duration("interval", as.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (as *AuditScheduler) Stop() {
	as.mu.Lock()
	ticker, cancel, stop := as.ticker, as.cancel, as.stop
	as.ticker = nil
	as.mu.Unlock()

	if ticker == nil {
		return
	}
	ticker.Stop()
	cancel()
	close(stop)
	as.wg.Wait()
	as.log().Info("audit stopped")
}

func (as *AuditScheduler) run(ctx context.Context, ticker *time.Ticker, stop <-chan struct{}) {
	defer as.wg.Done()

	// Run immediately on start
	as.runLogged(ctx)

	for {
		select {
		case <-ticker.C:
			as.mu.Lock()
			as.nextRun = as.Clock.Now().Add(as.CheckInterval)
			as.mu.Unlock()
			as.runLogged(ctx)
		case <-stop:
			return
		}
	}
}

func (as *AuditScheduler) runLogged(ctx context.Context) {
	if _, err := as.RunNow(ctx); err != nil {
		as.log().Error("audit run failed", slog.Any("error", err))
	}
}

// RunNow performs one audit pass and returns the recorded run.
func (as *AuditScheduler) RunNow(ctx context.Context) (campus.AuditRun, error) {
	as.runMu.Lock()
	defer as.runMu.Unlock()

	run := campus.AuditRun{
		ID:         "audit-" + uuid.NewString(),
		Status:     campus.AuditRunning,
		Collisions: []campus.EventID{},
		StartedAt:  as.Clock.Now().UTC(),
	}
	if err := as.Log.SaveAuditRun(ctx, run); err != nil {
		return run, fmt.Errorf("save run record: %w", err)
	}

	events, err := as.Scheduling.ListEvents(ctx)
	if err != nil {
		return as.fail(ctx, run, err)
	}
	regs, err := as.Registrations.ListRegistrations(ctx)
	if err != nil {
		return as.fail(ctx, run, err)
	}

	risk := as.Analytics.RiskReport(events, regs)
	run.EventsChecked = len(events)
	run.AtRisk = len(risk.Entries)
	run.ClashCount = as.Scheduling.ClashCount()

	for _, id := range campus.PlanningCollisions(events) {
		run.Collisions = append(run.Collisions, id)
		as.log().Warn("planning identity collision", slog.String("event_id", id.String()))
	}
	for _, entry := range risk.Entries {
		if entry.Level == analytics.RiskHigh {
			as.log().Warn("event at high risk",
				slog.String("event_id", entry.Event.String()),
				slog.Int("engagement", entry.EngagementPercent),
			)
		}
	}

	completed := as.Clock.Now().UTC()
	run.Status = campus.AuditCompleted
	run.CompletedAt = &completed
	if err := as.Log.SaveAuditRun(ctx, run); err != nil {
		return run, fmt.Errorf("update run record: %w", err)
	}

	as.log().Info("audit completed",
		slog.String("run_id", run.ID),
		slog.Int("events", run.EventsChecked),
		slog.Int("at_risk", run.AtRisk),
		slog.Int("collisions", len(run.Collisions)),
	)
	return run, nil
}

func (as *AuditScheduler) fail(ctx context.Context, run campus.AuditRun, cause error) (campus.AuditRun, error) {
	completed := as.Clock.Now().UTC()
	run.Status = campus.AuditFailed
	run.Error = cause.Error()
	run.CompletedAt = &completed
	if err := as.Log.SaveAuditRun(ctx, run); err != nil {
		as.log().Error("failed to record failed run", slog.String("run_id", run.ID), slog.Any("error", err))
	}
	return run, cause
}

// Recent returns the latest runs, newest first.
func (as *AuditScheduler) Recent(ctx context.Context, limit int) ([]campus.AuditRun, error) {
	runs, err := as.Log.ListAuditRuns(ctx, limit)
	if err != nil {
		return nil, &campus.PersistenceError{Op: "load audit runs", Err: err}
	}
	return runs, nil
}

// NextRunTime returns when the next scheduled run will occur. ok is false
// while the scheduler is not running.
func (as *AuditScheduler) NextRunTime() (time.Time, bool) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.ticker == nil {
		return time.Time{}, false
	}
	return as.nextRun, true
}
