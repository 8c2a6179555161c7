package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp/campus-scheduler/analytics"
	"github.com/warp/campus-scheduler/campus"
	"github.com/warp/campus-scheduler/campus/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// today is 2026-03-01 for every test in this package.
var testClock = campus.FixedClock(time.Date(2026, time.March, 1, 10, 30, 0, 0, time.UTC))

var testVenues = []string{"Grand Auditorium", "Conference Hall A", "Sports Complex"}

func day(offset int) string {
	return testClock.Today().AddDays(offset).String()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	router  http.Handler
	handler *Handler
	mem     *store.Memory
	auth    *JWTAuth

	adminToken string
	userToken  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := store.NewMemory()
	return newTestEnvWith(t, mem, mem.Events(), mem.Registrations())
}

func newTestEnvWith(t *testing.T, mem *store.Memory, events campus.EventStore, regStore campus.RegistrationStore) *testEnv {
	t.Helper()
	logger := quietLogger()

	sched := campus.NewSchedulingService(events, logger)
	sched.Clock = testClock
	regs := campus.NewRegistrationService(events, regStore, logger)
	regs.Clock = testClock
	engine := analytics.NewEngine(testVenues, campus.DefaultTimeSlots, nil, testClock)

	h := NewHandler(sched, regs, engine, mem, logger)
	h.Clock = testClock
	h.Audit = NewAuditScheduler(mem, sched, regs, engine, logger)
	h.Audit.Clock = testClock

	auth := &JWTAuth{Secret: []byte("test-secret"), TTL: time.Hour, Clock: testClock}
	router := NewRouter(h, RouterOptions{
		Users:          auth,
		AllowedOrigins: []string{"http://localhost:5173"},
		Logger:         logger,
	})

	env := &testEnv{router: router, handler: h, mem: mem, auth: auth}
	env.adminToken = env.token(t, campus.UserIdentity{Username: "dean", Email: "dean@campus.edu", Role: campus.RoleAdmin})
	env.userToken = env.token(t, campus.UserIdentity{Username: "aisha", Email: "Aisha.Khan@campus.edu", Role: "student"})
	return env
}

func (e *testEnv) token(t *testing.T, u campus.UserIdentity) string {
	t.Helper()
	tok, err := e.auth.Issue(u)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func submitBody(name, date, slot, venue string) SubmitEventRequest {
	return SubmitEventRequest{Name: name, Date: date, Time: slot, Venue: venue}
}

func idBody(name, date, slot, venue string) EventIDRequest {
	return EventIDRequest{Name: name, Date: date, Time: slot, Venue: venue}
}

// seed writes events straight into the store, bypassing the services.
func (e *testEnv) seed(t *testing.T, events ...campus.Event) {
	t.Helper()
	require.NoError(t, e.mem.Events().ReplaceAll(context.Background(), events))
}

func confirmed(name, date, slot, venue string) campus.Event {
	return campus.Event{Name: name, Date: date, Time: slot, Venue: venue, Status: campus.StatusConfirmed, Description: campus.DefaultDescription}
}

var errDiskFull = errors.New("disk full")

// brokenEvents fails every call.
type brokenEvents struct{}

func (brokenEvents) List(context.Context) ([]campus.Event, error)     { return nil, errDiskFull }
func (brokenEvents) ReplaceAll(context.Context, []campus.Event) error { return errDiskFull }

func newRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}
