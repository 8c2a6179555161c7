package api

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/campus-scheduler/analytics"
	"github.com/warp/campus-scheduler/campus"
	"github.com/warp/campus-scheduler/campus/store"
)

// =============================================================================
// AUTH
// =============================================================================

func TestHealth_NoToken(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_RejectsMissingOrInvalidToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode[ErrorResponse](t, rec).Code)

	other := &JWTAuth{Secret: []byte("another-secret"), TTL: time.Hour, Clock: testClock}
	forged, err := other.Issue(campus.UserIdentity{Username: "mallory", Role: campus.RoleAdmin})
	require.NoError(t, err)
	rec = env.do(t, http.MethodGet, "/api/events", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	earlier := &JWTAuth{Secret: env.auth.Secret, TTL: time.Hour, Clock: campus.FixedClock(testClock.Now().Add(-2 * time.Hour))}
	expired, err := earlier.Issue(campus.UserIdentity{Username: "aisha"})
	require.NoError(t, err)
	rec = env.do(t, http.MethodGet, "/api/events", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_AdminRoutesRejectStudents(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/events"},
		{http.MethodPost, "/api/events/confirm"},
		{http.MethodGet, "/api/events/planning"},
		{http.MethodGet, "/api/registrations"},
		{http.MethodGet, "/api/analytics/risk"},
		{http.MethodGet, "/api/admin/audit"},
		{http.MethodPost, "/api/scenarios/reset"},
	} {
		rec := env.do(t, tc.method, tc.path, env.userToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/me", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	me := decode[campus.UserIdentity](t, rec)
	assert.Equal(t, "aisha", me.Username)
	assert.Equal(t, "aisha.khan@campus.edu", me.Email)
	assert.Equal(t, "student", me.Role)
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t)
	req, err := http.NewRequest(http.MethodOptions, "/api/events", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := newRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

// =============================================================================
// EVENTS
// =============================================================================

func TestSubmitAndConfirm_SecondConfirmationConflicts(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/events", env.adminToken, submitBody("Tech Symposium", day(4), "Evening", "Conference Hall A"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[EventDTO](t, rec)
	assert.Equal(t, campus.StatusPlanning, created.Status)
	assert.Equal(t, campus.StateUpcoming, created.State)
	assert.Equal(t, campus.DefaultDescription, created.Description)

	// A second draft for the same slot is accepted while nothing is confirmed.
	rec = env.do(t, http.MethodPost, "/api/events", env.adminToken, submitBody("Literature Fest", day(4), "Evening", "Conference Hall A"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/events/confirm", env.adminToken, idBody("Tech Symposium", day(4), "Evening", "Conference Hall A"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, campus.StatusConfirmed, decode[EventDTO](t, rec).Status)

	rec = env.do(t, http.MethodPost, "/api/events/confirm", env.adminToken, idBody("Literature Fest", day(4), "Evening", "Conference Hall A"))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "scheduling_conflict", decode[ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodGet, "/api/events/planning", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	planning := decode[[]EventDTO](t, rec)
	require.Len(t, planning, 1)
	assert.Equal(t, "Literature Fest", planning[0].Name)
}

func TestSubmitEvent_ConfirmedSlotBlocks(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, confirmed("Basketball Finals", day(2), "Evening", "Sports Complex"))

	rec := env.do(t, http.MethodPost, "/api/events", env.adminToken, submitBody("Alumni Mixer", day(2), "Evening", "Sports Complex"))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "scheduling_conflict", decode[ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodGet, "/api/admin/audit", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[AuditStatusDTO](t, rec).ClashCount)
}

func TestSubmitEvent_BadInput(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/events", env.adminToken, submitBody("", day(2), "Morning", "Grand Auditorium"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode[ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodPost, "/api/events", env.adminToken, submitBody("Gala", "next friday", "Morning", "Grand Auditorium"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/events", env.adminToken, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_body", decode[ErrorResponse](t, rec).Code)
}

func TestListEvents_StateFilter(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t,
		confirmed("Freshers Welcome", day(-3), "Afternoon", "Grand Auditorium"),
		confirmed("Basketball Finals", day(0), "Evening", "Sports Complex"),
		confirmed("Career Fair", day(2), "Morning", "Grand Auditorium"),
	)

	for state, name := range map[campus.State]string{
		campus.StateCompleted: "Freshers Welcome",
		campus.StateOngoing:   "Basketball Finals",
		campus.StateUpcoming:  "Career Fair",
	} {
		rec := env.do(t, http.MethodGet, "/api/events?state="+string(state), env.userToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		events := decode[[]EventDTO](t, rec)
		require.Len(t, events, 1, state)
		assert.Equal(t, name, events[0].Name)
		assert.Equal(t, state, events[0].State)
	}

	rec := env.do(t, http.MethodGet, "/api/events?state=all", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]EventDTO](t, rec), 3)

	rec = env.do(t, http.MethodGet, "/api/events?state=someday", env.userToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEventsInRange(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t,
		confirmed("A", day(0), "Morning", "Grand Auditorium"),
		confirmed("B", day(3), "Morning", "Grand Auditorium"),
		confirmed("C", day(10), "Morning", "Grand Auditorium"),
	)

	rec := env.do(t, http.MethodGet, "/api/events/range?from="+day(0)+"&to="+day(3), env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]EventDTO](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/api/events/range?from="+day(3)+"&to="+day(0), env.userToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_window", decode[ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodGet, "/api/events/range?to="+day(3), env.userToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode[ErrorResponse](t, rec).Code)
}

func TestDeleteEvent(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, confirmed("Tech Symposium", day(3), "Morning", "Grand Auditorium"))

	q := url.Values{}
	q.Set("name", "Tech Symposium")
	q.Set("date", day(3))
	q.Set("time", "Morning")
	q.Set("venue", "Grand Auditorium")
	path := "/api/events?" + q.Encode()

	rec := env.do(t, http.MethodDelete, path, env.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, path, env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, rec).Code)
}

func TestDeleteEvent_RequiresTime(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, confirmed("Tech Symposium", day(3), "TBA", "Grand Auditorium"))

	q := url.Values{}
	q.Set("name", "Tech Symposium")
	q.Set("date", day(3))
	q.Set("venue", "Grand Auditorium")

	rec := env.do(t, http.MethodDelete, "/api/events?"+q.Encode(), env.adminToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode[ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodGet, "/api/events", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]EventDTO](t, rec), 1, "TBA event must survive")
}

func TestStoreFailure_Returns503WithoutCause(t *testing.T) {
	mem := store.NewMemory()
	env := newTestEnvWith(t, mem, brokenEvents{}, mem.Registrations())

	rec := env.do(t, http.MethodGet, "/api/events", env.userToken, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "persistence", decode[ErrorResponse](t, rec).Code)
	assert.NotContains(t, rec.Body.String(), errDiskFull.Error())
}

// =============================================================================
// REGISTRATIONS
// =============================================================================

func TestRegister_Rules(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t,
		confirmed("Tech Symposium", day(3), "Morning", "Grand Auditorium"),
		confirmed("Career Fair", day(3), "Morning", "Conference Hall A"),
		confirmed("Alumni Mixer", day(-7), "Evening", "Conference Hall A"),
	)

	body := RegisterRequest{EventID: idBody("Tech Symposium", day(3), "Morning", "Grand Auditorium"), StudentID: "S1001"}
	rec := env.do(t, http.MethodPost, "/api/registrations", env.userToken, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[campus.Registration](t, rec)
	assert.Equal(t, "aisha.khan@campus.edu", reg.UserEmail)
	assert.Equal(t, "aisha", reg.UserName)
	assert.Equal(t, "Tech Symposium", reg.EventName)
	assert.True(t, reg.RegisteredAt.Equal(testClock.Now()))

	tests := []struct {
		name   string
		event  EventIDRequest
		status int
		code   string
	}{
		{"duplicate", idBody("Tech Symposium", day(3), "Morning", "Grand Auditorium"), http.StatusConflict, "duplicate_registration"},
		{"same slot elsewhere", idBody("Career Fair", day(3), "Morning", "Conference Hall A"), http.StatusConflict, "slot_clash"},
		{"past event", idBody("Alumni Mixer", day(-7), "Evening", "Conference Hall A"), http.StatusBadRequest, "registration_closed"},
		{"unknown event", idBody("Robotics Expo", day(3), "Morning", "Grand Auditorium"), http.StatusNotFound, "not_found"},
		{"incomplete identity", idBody("Tech Symposium", day(3), "Morning", ""), http.StatusBadRequest, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/registrations", env.userToken, RegisterRequest{EventID: tt.event})
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}

	rec = env.do(t, http.MethodGet, "/api/registrations", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]campus.Registration](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/api/registrations?email=AISHA.KHAN@campus.edu", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]campus.Registration](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/api/registrations?email=nobody@campus.edu", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

// =============================================================================
// ANALYTICS
// =============================================================================

func TestAnalytics_EventsAndRisk(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, confirmed("Gala", day(3), "Evening", "Grand Auditorium"))

	rec := env.do(t, http.MethodPost, "/api/registrations", env.userToken,
		RegisterRequest{EventID: idBody("Gala", day(3), "Evening", "Grand Auditorium")})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/analytics/events", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]EventAnalyticsDTO](t, rec)
	require.Len(t, rows, 1)

	baseline := analytics.BaselineFor("Gala", 0)
	assert.Equal(t, 1, rows[0].RealRegistrations)
	assert.Equal(t, baseline.Registrations+1, rows[0].RegistrationsCount)
	assert.Equal(t, baseline.BudgetNeed.StringFixed(2), rows[0].BudgetNeed)
	assert.Equal(t, "Marketing", rows[0].Category)

	rec = env.do(t, http.MethodGet, "/api/analytics/risk", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	risk := decode[analytics.RiskReport](t, rec)
	assert.Equal(t, 1, risk.EventsConsidered)
	require.Len(t, risk.Entries, 1)
	assert.Equal(t, 49, risk.Entries[0].EngagementPercent)
	assert.Equal(t, analytics.RiskHigh, risk.Entries[0].Level)
}

func TestAnalytics_EmptyDataset(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/analytics/risk", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[],"averageEngagement":0,"eventsConsidered":0}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/analytics/budget", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	budget := decode[BudgetDTO](t, rec)
	assert.Len(t, budget.Lines, 4)
	assert.Equal(t, "40000.00", budget.TotalAllocated)
	assert.Equal(t, "0.00", budget.TotalSpent)
	assert.Equal(t, "40000.00", budget.TotalVariance)
}

func TestAnalytics_Utilization(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, confirmed("Tech Symposium", day(1), "Morning", "Grand Auditorium"))

	rec := env.do(t, http.MethodGet, "/api/analytics/utilization?window=all", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[analytics.UtilizationReport](t, rec)
	require.Len(t, report.Venues, len(testVenues))
	assert.Equal(t, "Grand Auditorium", report.Venues[0].Venue)
	assert.Equal(t, 1, report.Venues[0].Events)

	rec = env.do(t, http.MethodGet, "/api/analytics/utilization", env.adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/analytics/utilization?window=decade", env.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_window", decode[ErrorResponse](t, rec).Code)
}

// =============================================================================
// AUDIT
// =============================================================================

func TestAudit_RunAndStatus(t *testing.T) {
	env := newTestEnv(t)
	draft := campus.Event{Name: "Robotics Expo", Date: day(8), Time: "Morning", Venue: "Grand Auditorium", Status: campus.StatusPlanning}
	env.seed(t, draft, draft)

	rec := env.do(t, http.MethodPost, "/api/admin/audit/run", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	run := decode[campus.AuditRun](t, rec)
	assert.Equal(t, campus.AuditCompleted, run.Status)
	assert.Equal(t, 2, run.EventsChecked)
	assert.Equal(t, []campus.EventID{draft.ID()}, run.Collisions)

	rec = env.do(t, http.MethodGet, "/api/admin/audit", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[AuditStatusDTO](t, rec)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, run.ID, status.LastRun.ID)
	assert.Len(t, status.Runs, 1)
	assert.True(t, status.Enabled)
	assert.Nil(t, status.NextRun)
}
