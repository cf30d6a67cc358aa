package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/2beens/gymlog/internal/config"
	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/gymlog/stats"
	"github.com/2beens/gymlog/internal/gymlog/syncer"
	"github.com/2beens/gymlog/internal/gymlog/tracker"
	"github.com/2beens/gymlog/internal/remote"
	"github.com/2beens/gymlog/internal/storage"
	"github.com/2beens/gymlog/internal/telemetry/metrics"
	"github.com/2beens/gymlog/pkg"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const today = "2024-03-10"

type testServer struct {
	server *Server
	router *mux.Router
	host   *remote.MemoryHost
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	m := metrics.NewTestManager()
	store := storage.NewRecordStore(storage.NewMemoryStore())
	host := remote.NewMemoryHost()
	engine := syncer.NewEngine(store, m, syncer.Config{Debounce: time.Hour})

	tr, err := tracker.New(context.Background(), tracker.Params{
		Store:        store,
		Engine:       engine,
		Metrics:      m,
		RecordsHosts: func(remote.Account) remote.BlobHost { return host },
		PhasesHosts:  func(remote.Account) remote.BlobHost { return host },
		Location:     time.UTC,
		Now: func() time.Time {
			return time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC)
		},
	})
	require.NoError(t, err)
	t.Cleanup(tr.Close)

	s := &Server{
		config: &config.Config{
			AllowedOrigins:    []string{"http://localhost:3000"},
			MaxRequestBodyKiB: 64,
		},
		versionInfo:    "test-version",
		tracker:        tr,
		metricsManager: m,
	}
	return &testServer{server: s, router: s.routerSetup(), host: host}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", pkg.ContentType.JSON)
	}
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[pkg.ErrorResponse](t, rr).Error
}

func TestWorkouts_GetMaterializesToday(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, "GET", "/workouts/"+today, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, pkg.ContentType.JSON, rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	resp := decode[WorkoutResponse](t, rr)
	assert.Equal(t, records.Date(today), resp.Date)
	assert.Equal(t, "push", resp.Workout.RoutineType)
	assert.Len(t, resp.Workout.Exercises, 7)
	assert.False(t, resp.Workout.Committed)
	assert.Empty(t, resp.Records)

	rr = ts.do(t, "GET", "/workouts/2024-03-11", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, errorMessage(t, rr), "future")

	rr = ts.do(t, "GET", "/workouts/2024-03-01", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(t, "GET", "/workouts/yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, errorMessage(t, rr), "invalid date")
}

func TestWorkouts_SetTransitions(t *testing.T) {
	ts := newTestServer(t)
	setPath := "/workouts/" + today + "/exercises/0/sets/work/0"

	rr := ts.do(t, "PUT", setPath, `{"field":"weight","value":"80"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.do(t, "PUT", setPath, `{"field":"reps","value":"8"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, "POST", setPath+"/toggle", "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[WorkoutResponse](t, rr)
	set := resp.Workout.Exercises[0].WorkSets[0]
	assert.Equal(t, "80", set.Weight)
	assert.Equal(t, "8", set.Reps)
	assert.True(t, set.Committed())

	rr = ts.do(t, "POST", "/workouts/"+today+"/exercises/0/sets/work/1/copy-previous", "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp = decode[WorkoutResponse](t, rr)
	assert.Equal(t, "80", resp.Workout.Exercises[0].WorkSets[1].Weight)

	rr = ts.do(t, "POST", "/workouts/"+today+"/exercises/1/sets/work/0/adjust", `{"field":"reps","direction":1}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp = decode[WorkoutResponse](t, rr)
	assert.NotEmpty(t, resp.Workout.Exercises[1].WorkSets[0].Reps)

	rr = ts.do(t, "PUT", "/workouts/"+today+"/exercises/0/note", `{"note":"seat 4"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp = decode[WorkoutResponse](t, rr)
	assert.Equal(t, "seat 4", resp.Workout.Exercises[0].Note)

	assert.True(t, ts.server.tracker.SyncState().Dirty[syncer.ResourceWorkouts])
}

func TestWorkouts_BadRequests(t *testing.T) {
	ts := newTestServer(t)
	setPath := "/workouts/" + today + "/exercises/0/sets/work/0"

	cases := []struct {
		name, method, path, body string
		status                   int
	}{
		{"unknown field", "PUT", setPath, `{"field":"tempo","value":"3"}`, http.StatusBadRequest},
		{"unknown json key", "PUT", setPath, `{"field":"weight","value":"3","extra":1}`, http.StatusBadRequest},
		{"broken json", "PUT", setPath, `{"field":`, http.StatusBadRequest},
		{"unknown set kind", "POST", "/workouts/" + today + "/exercises/0/sets/cooldown/0/toggle", "", http.StatusBadRequest},
		{"exercise out of range", "POST", "/workouts/" + today + "/exercises/42/sets/work/0/toggle", "", http.StatusBadRequest},
		{"set out of range", "POST", "/workouts/" + today + "/exercises/0/sets/work/9/toggle", "", http.StatusNotFound},
		{"zero direction", "POST", setPath + "/adjust", `{"field":"weight","direction":0}`, http.StatusBadRequest},
		{"unknown routine", "POST", "/workouts/" + today + "/routine", `{"type":"legs"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := ts.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rr.Code, rr.Body.String())
			assert.NotEmpty(t, errorMessage(t, rr))
		})
	}
}

func TestWorkouts_FinishReopenDelete(t *testing.T) {
	ts := newTestServer(t)
	base := "/workouts/" + today

	rr := ts.do(t, "PUT", base+"/exercises/0/sets/work/0", `{"field":"weight","value":"80"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, "POST", base+"/routine", `{"type":"pull"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, errorMessage(t, rr), "confirmation required")

	rr = ts.do(t, "POST", base+"/finish", `{"exercise":0}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = ts.do(t, "POST", base+"/finish", `{"exercise":6}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[WorkoutResponse](t, rr).Workout.Committed)

	rr = ts.do(t, "POST", base+"/reopen", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[WorkoutResponse](t, rr).Workout.Committed)

	rr = ts.do(t, "POST", base+"/routine", `{"type":"pull","confirm":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pull", decode[WorkoutResponse](t, rr).Workout.RoutineType)

	rr = ts.do(t, "DELETE", base, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = ts.do(t, "DELETE", base, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRoutines(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, "GET", "/routines", "")
	require.Equal(t, http.StatusOK, rr.Code)
	routines := decode[records.Routines](t, rr)
	assert.ElementsMatch(t, []string{"push", "pull"}, routines.Types())

	rr = ts.do(t, "POST", "/routines/push/exercises", `{"name":"Dips","warmupSets":0,"workSets":3,"reps":"6-10","notes":""}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	added := decode[records.ExerciseDefinition](t, rr)
	assert.Equal(t, 8, added.ID)
	assert.Equal(t, "Dips", added.Name)

	rr = ts.do(t, "POST", "/routines/push/exercises/8/move", `{"delta":-1}`)
	require.Equal(t, http.StatusOK, rr.Code)
	routines = decode[records.Routines](t, rr)
	pushExercises := routines["push"].Exercises
	assert.Equal(t, "Dips", pushExercises[len(pushExercises)-2].Name)

	rr = ts.do(t, "PUT", "/routines/push/exercises/8", `{"name":"Weighted Dips","warmupSets":1,"workSets":3,"reps":"6-10","notes":"belt"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	def, ok := decode[records.Routines](t, rr).Definition("push", 8, "")
	require.True(t, ok)
	assert.Equal(t, "Weighted Dips", def.Name)

	rr = ts.do(t, "PUT", "/routines/push/exercises/8", `{"name":" ","workSets":3}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, "DELETE", "/routines/push/exercises/8", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.do(t, "DELETE", "/routines/push/exercises/8", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(t, "POST", "/routines/legs/exercises", `{"name":"Squat","workSets":3,"reps":"5"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)
	base := "/workouts/" + today

	for _, body := range []string{`{"field":"weight","value":"80"}`, `{"field":"reps","value":"10"}`} {
		rr := ts.do(t, "PUT", base+"/exercises/0/sets/work/0", body)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := ts.do(t, "POST", base+"/exercises/0/sets/work/0/toggle", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.do(t, "POST", base+"/finish", `{"exercise":6}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, "GET", "/stats/overview", "")
	require.Equal(t, http.StatusOK, rr.Code)
	overview := decode[stats.Overview](t, rr)
	assert.Equal(t, 1, overview.TotalSessions)
	assert.Equal(t, "pull", overview.NextRoutine)

	rr = ts.do(t, "GET", "/stats/day/"+today, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[stats.DaySummary](t, rr).Sets)

	rr = ts.do(t, "GET", "/stats/day/2024-03-09", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(t, "GET", "/stats/calendar/2024/3", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]stats.CalendarDay](t, rr), 1)

	rr = ts.do(t, "GET", "/stats/calendar/2024/2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = ts.do(t, "GET", "/stats/calendar/2024/13", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, "GET", "/stats/exercises/Incline%20Chest%20Press/record", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rec := decode[ExerciseRecordResponse](t, rr)
	assert.Equal(t, "Incline Chest Press", rec.Name)
	assert.True(t, rec.Record.Found)
	assert.Equal(t, 80.0, rec.Record.Weight)
	assert.Equal(t, 10, rec.Record.Reps)

	rr = ts.do(t, "GET", "/stats/exercises/Incline%20Chest%20Press/history", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[ExerciseHistoryResponse](t, rr).History, 1)

	rr = ts.do(t, "GET", "/stats/exercises/Squat/history", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[ExerciseHistoryResponse](t, rr).History)

	rr = ts.do(t, "GET", "/phases", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestSync_AccountLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, "GET", "/sync/status", "")
	require.Equal(t, http.StatusOK, rr.Code)
	status := decode[SyncStatusResponse](t, rr)
	assert.False(t, status.Connected)
	assert.Equal(t, syncer.StatusIdle, status.Status)

	rr = ts.do(t, "POST", "/sync", "")
	require.Equal(t, http.StatusOK, rr.Code)
	syncResp := decode[SyncResponse](t, rr)
	require.Len(t, syncResp.Results, 2)
	assert.Equal(t, syncer.FailureNotConnected, syncResp.Results[0].Failure)

	rr = ts.do(t, "PUT", "/sync/account", `{"token":"secret","owner":"serj"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, "PUT", "/sync/account", `{"token":"secret","owner":"serj","repo":"gym-data"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	connect := decode[ConnectResponse](t, rr)
	assert.True(t, connect.State.Connected)

	rr = ts.do(t, "GET", "/sync/status", "")
	status = decode[SyncStatusResponse](t, rr)
	assert.True(t, status.Connected)
	assert.Equal(t, "serj", status.Accounts.Records.Owner)
	assert.Empty(t, status.Accounts.Records.Token, "tokens never leave the service")

	rr = ts.do(t, "PUT", base(today)+"/exercises/0/sets/work/0", `{"field":"weight","value":"80"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, "POST", "/sync", "")
	require.Equal(t, http.StatusOK, rr.Code)
	syncResp = decode[SyncResponse](t, rr)
	require.Len(t, syncResp.Results, 2)
	assert.Equal(t, syncer.OutcomePushed, syncResp.Results[0].Outcome)
	content, ok := ts.host.Content(remote.WorkoutsPath)
	require.True(t, ok)
	assert.Contains(t, string(content), `"80"`)

	rr = ts.do(t, "POST", "/sync/background", "")
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, 0, decode[BackgroundResponse](t, rr).Scheduled)

	rr = ts.do(t, "DELETE", "/sync/account", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[SyncStatusResponse](t, rr).Connected)

	rr = ts.do(t, "DELETE", "/sync/phases-account", "")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestSync_PhasesAccount(t *testing.T) {
	ts := newTestServer(t)
	ts.host.Seed(remote.PhasesPath, []byte(`{"phases":[{"id":1,"name":"cut","start":"2024-03-01"}]}`))

	rr := ts.do(t, "PUT", "/sync/phases-account", `{"token":"t","owner":"serj","repo":"body"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, decode[ConnectResponse](t, rr).State.PhasesAlive)

	rr = ts.do(t, "GET", "/phases", "")
	require.Equal(t, http.StatusOK, rr.Code)
	phases := decode[[]records.Phase](t, rr)
	require.Len(t, phases, 1)
	assert.Equal(t, "cut", phases[0].Name)

	rr = ts.do(t, "DELETE", "/sync/phases-account", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.do(t, "GET", "/phases", "")
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestRouter_Middlewares(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, "GET", "/version", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"version":"test-version"}`, rr.Body.String())

	rr = ts.do(t, "GET", "/nothing-here", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req := httptest.NewRequest("OPTIONS", "/sync/status", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr = httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/sync/status", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	m := ts.server.metricsManager
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterRequests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterRequests.WithLabelValues("GET", "403")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterRequests.WithLabelValues("GET", "404")))
}

func base(date string) string {
	return "/workouts/" + date
}
