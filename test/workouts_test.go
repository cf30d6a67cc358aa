//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/gymlog/stats"
	"github.com/2beens/gymlog/internal/gymlog/syncer"
	"github.com/2beens/gymlog/internal/remote"
	"github.com/2beens/gymlog/internal/server"
	"github.com/2beens/gymlog/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const remoteWorkouts = `{
  "workouts": {
    "2024-01-15": {
      "routineType": "pull",
      "committed": true,
      "exercises": [
        {"id": 1, "name": "Lat Pulldown", "warmupSets": [], "workSets": [{"weight": 60, "reps": "10", "done": true}], "notes": ""}
      ]
    }
  },
  "notes": {"Lat Pulldown": "grip wide"}
}`

func (s *IntegrationTestSuite) doRequest(ctx context.Context, method, path string, body any) (int, []byte) {
	t := s.T()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reader)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) TestWorkoutLifecycle() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := s.T()
	today := records.DateOf(time.Now().UTC())
	s.github.seed(remote.WorkoutsPath, []byte(remoteWorkouts))

	// connecting loads the remote log
	status, body := s.doRequest(ctx, "PUT", "/sync/account", map[string]string{
		"token": "test-token",
		"owner": "serj",
		"repo":  "gym-data",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var connectResp server.ConnectResponse
	require.NoError(t, json.Unmarshal(body, &connectResp))
	assert.True(t, connectResp.State.Connected)
	assert.Equal(t, syncer.FailureNone, connectResp.Load.Workouts)

	status, body = s.doRequest(ctx, "GET", "/workouts/2024-01-15", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var loaded server.WorkoutResponse
	require.NoError(t, json.Unmarshal(body, &loaded))
	assert.Equal(t, "pull", loaded.Workout.RoutineType)
	assert.Equal(t, "60", loaded.Workout.Exercises[0].WorkSets[0].Weight)
	assert.True(t, loaded.Workout.Exercises[0].WorkSets[0].Committed())

	// today follows the last remote routine
	status, body = s.doRequest(ctx, "GET", "/workouts/"+today.String(), nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var todays server.WorkoutResponse
	require.NoError(t, json.Unmarshal(body, &todays))
	assert.Equal(t, "push", todays.Workout.RoutineType)
	lastExercise := len(todays.Workout.Exercises) - 1

	setPath := fmt.Sprintf("/workouts/%s/exercises/0/sets/work/0", today)
	status, _ = s.doRequest(ctx, "PUT", setPath, map[string]string{"field": "weight", "value": "100"})
	require.Equal(t, http.StatusOK, status)
	status, _ = s.doRequest(ctx, "PUT", setPath, map[string]string{"field": "reps", "value": "5"})
	require.Equal(t, http.StatusOK, status)
	status, body = s.doRequest(ctx, "POST", setPath+"/toggle", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &todays))
	// nothing logged before to beat
	assert.Empty(t, todays.Records)

	status, _ = s.doRequest(ctx, "POST", fmt.Sprintf("/workouts/%s/finish", today), map[string]int{"exercise": lastExercise})
	require.Equal(t, http.StatusOK, status)

	// finishing pushes right away, without waiting for the debounce
	require.Eventually(t, func() bool {
		status, body := s.doRequest(ctx, "GET", "/sync/status", nil)
		var st server.SyncStatusResponse
		return status == http.StatusOK && json.Unmarshal(body, &st) == nil && !st.Dirty[syncer.ResourceWorkouts]
	}, 5*time.Second, 50*time.Millisecond)

	status, body = s.doRequest(ctx, "POST", "/sync", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var syncResp server.SyncResponse
	require.NoError(t, json.Unmarshal(body, &syncResp))
	for _, res := range syncResp.Results {
		assert.Contains(t, []syncer.Outcome{syncer.OutcomePushed, syncer.OutcomeNoChanges}, res.Outcome, res.Resource)
	}

	pushed, ok := s.github.content(remote.WorkoutsPath)
	require.True(t, ok)
	var payload records.WorkoutPayload
	require.NoError(t, json.Unmarshal(pushed, &payload))
	assert.Contains(t, payload.Workouts, records.Date("2024-01-15"))
	require.Contains(t, payload.Workouts, today)
	assert.True(t, payload.Workouts[today].Committed)
	assert.Equal(t, "grip wide", payload.Notes["Lat Pulldown"])

	_, ok = s.github.content(remote.RoutinesPath)
	assert.True(t, ok)

	// the local store is postgres
	var stored []byte
	require.NoError(t, s.DB.QueryRow(ctx,
		`SELECT value FROM gymlog_kv WHERE log_id = $1 AND key = $2`,
		testLogID, storage.KeyWorkouts,
	).Scan(&stored))
	assert.Contains(t, string(stored), `"100"`)

	status, body = s.doRequest(ctx, "GET", "/stats/overview", nil)
	require.Equal(t, http.StatusOK, status)
	var overview stats.Overview
	require.NoError(t, json.Unmarshal(body, &overview))
	assert.Equal(t, 2, overview.TotalSessions)
	assert.Equal(t, "pull", overview.NextRoutine)

	status, body = s.doRequest(ctx, "GET", "/sync/status", nil)
	require.Equal(t, http.StatusOK, status)
	var syncStatus server.SyncStatusResponse
	require.NoError(t, json.Unmarshal(body, &syncStatus))
	assert.False(t, syncStatus.LastSync.IsZero())
	assert.False(t, syncStatus.Dirty[syncer.ResourceWorkouts])
	assert.Empty(t, syncStatus.Accounts.Records.Token)
}
