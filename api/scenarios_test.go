package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/campus-scheduler/campus"
)

func loadScenario(t *testing.T, env *testEnv, id string) ScenarioResult {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/scenarios/load", env.adminToken, LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[ScenarioResult](t, rec)
}

func listEvents(t *testing.T, env *testEnv, query string) []EventDTO {
	t.Helper()
	rec := env.do(t, http.MethodGet, "/api/events"+query, env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return decode[[]EventDTO](t, rec)
}

func TestListScenarios(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/scenarios", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[[]ScenarioDTO](t, rec)
	require.Len(t, list, 3)
	assert.Equal(t, "campus-week", list[0].ID)
}

func TestLoadScenario_CampusWeek(t *testing.T) {
	env := newTestEnv(t)

	result := loadScenario(t, env, "campus-week")
	assert.Equal(t, 3, result.Events)
	assert.Equal(t, 4, result.Registrations)
	assert.Equal(t, 0, result.Rejected)

	assert.Len(t, listEvents(t, env, "?state=upcoming"), 3)

	rec := env.do(t, http.MethodGet, "/api/events/planning", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	planning := decode[[]EventDTO](t, rec)
	require.Len(t, planning, 1)
	assert.Equal(t, "Literature Fest", planning[0].Name)

	rec = env.do(t, http.MethodGet, "/api/scenarios/current", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "campus-week", decode[ScenarioDTO](t, rec).ID)
}

func TestLoadScenario_ReloadStartsFromEmpty(t *testing.T) {
	env := newTestEnv(t)
	loadScenario(t, env, "campus-week")
	result := loadScenario(t, env, "campus-week")

	assert.Equal(t, 0, result.Rejected)
	assert.Len(t, listEvents(t, env, ""), 3)
}

func TestLoadScenario_VenueClash(t *testing.T) {
	env := newTestEnv(t)

	result := loadScenario(t, env, "venue-clash")
	assert.Equal(t, 4, result.Events)
	assert.Equal(t, 1, result.Rejected, "second confirmation for the slot")

	events := listEvents(t, env, "")
	require.Len(t, events, 4)
	assert.Equal(t, campus.StatusConfirmed, events[0].Status)
	assert.Equal(t, campus.StatusPlanning, events[1].Status)

	rec := env.do(t, http.MethodPost, "/api/admin/audit/run", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	run := decode[campus.AuditRun](t, rec)
	require.Len(t, run.Collisions, 1)
	assert.Equal(t, "Robotics Expo", run.Collisions[0].Name)
	assert.Equal(t, int64(1), run.ClashCount)
}

func TestLoadScenario_BusySemester(t *testing.T) {
	env := newTestEnv(t)

	result := loadScenario(t, env, "busy-semester")
	assert.Equal(t, 6, result.Events)
	assert.Equal(t, 6, result.Registrations)
	assert.Equal(t, 2, result.Rejected, "one slot clash and one duplicate")

	assert.Len(t, listEvents(t, env, "?state=completed"), 2)
	assert.Len(t, listEvents(t, env, "?state=ongoing"), 1)
	assert.Len(t, listEvents(t, env, "?state=upcoming"), 3)

	rec := env.do(t, http.MethodGet, "/api/registrations", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	regs := decode[[]campus.Registration](t, rec)
	require.Len(t, regs, 6)

	// History is stamped before the event it belongs to.
	first := regs[0]
	assert.Equal(t, "Freshers Welcome", first.EventName)
	eventDay, ok := campus.ParseDate(first.Date)
	require.True(t, ok)
	assert.True(t, first.RegisteredAt.Before(eventDay.Time))
}

func TestResetScenario(t *testing.T) {
	env := newTestEnv(t)
	loadScenario(t, env, "campus-week")

	rec := env.do(t, http.MethodPost, "/api/scenarios/reset", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, listEvents(t, env, ""))

	rec = env.do(t, http.MethodGet, "/api/scenarios/current", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", trimNewline(rec.Body.String()))
}

func TestLoadScenario_Unknown(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/scenarios/load", env.adminToken, LoadScenarioRequest{ScenarioID: "finals-week"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_scenario", decode[ErrorResponse](t, rec).Code)
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		return s[:n-1]
	}
	return s
}
