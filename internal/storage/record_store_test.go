package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/remote"
	"github.com/2beens/gymlog/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStore_EmptyStoreGivesDefaults(t *testing.T) {
	rs := storage.NewRecordStore(storage.NewMemoryStore())

	l, err := rs.LoadLog(context.Background(), records.DefaultRoutines())
	require.NoError(t, err)
	assert.Empty(t, l.Workouts)
	assert.NotNil(t, l.Workouts)
	assert.Empty(t, l.Notes)
	assert.Equal(t, []string{"push", "pull"}, l.Routines.Types())
}

func TestRecordStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	rs := storage.NewRecordStore(storage.NewMemoryStore())

	l := records.NewLog()
	w, _, err := l.EnsureWorkout("2024-01-10", "2024-01-10")
	require.NoError(t, err)
	w.Exercises[0].WorkSets[0] = records.Set{Weight: "60", Reps: "10", State: records.Committed}
	w.Exercises[0].WorkSets[1] = records.Set{Weight: "62.5", State: records.Draft}
	l.SetWorkout("2024-01-10", w)
	l.Notes["Butterfly"] = "seat 4"

	require.NoError(t, rs.SaveWorkouts(ctx, l.Payload()))
	routines := records.Routines{"full": {Name: "Full body", Exercises: []records.ExerciseDefinition{{ID: 1, Name: "Squat", WorkSets: 3, Reps: "5"}}}}
	require.NoError(t, rs.SaveRoutines(ctx, routines))

	loaded, err := rs.LoadLog(ctx, records.DefaultRoutines())
	require.NoError(t, err)
	assert.Equal(t, l.Workouts, loaded.Workouts)
	assert.Equal(t, l.Notes, loaded.Notes)
	assert.Equal(t, routines, loaded.Routines)
}

func TestRecordStore_CorruptValuesFallBackToEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storage.KeyWorkouts, []byte(`{"2024-01-01":`)))
	require.NoError(t, store.Set(ctx, storage.KeyNotes, []byte(`not json`)))
	require.NoError(t, store.Set(ctx, storage.KeyRoutines, []byte(`[]`)))
	require.NoError(t, store.Set(ctx, storage.KeyLastSync, []byte(`"yesterday"`)))

	rs := storage.NewRecordStore(store)
	l, err := rs.LoadLog(ctx, records.DefaultRoutines())
	require.NoError(t, err)
	assert.Empty(t, l.Workouts)
	assert.Empty(t, l.Notes)
	assert.Len(t, l.Routines, 2)

	ts, err := rs.LastSync(ctx)
	require.NoError(t, err)
	assert.True(t, ts.IsZero())
}

func TestRecordStore_PartlyValidValuesFallBackToEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storage.KeyWorkouts, []byte(`{
		"2024-01-01": {"routineType": "push", "committed": true, "exercises": []},
		"2024-01-02": {"routineType": 5}
	}`)))
	require.NoError(t, store.Set(ctx, storage.KeyNotes, []byte(`{"Butterfly": "slow", "Dips": 3}`)))

	rs := storage.NewRecordStore(store)
	l, err := rs.LoadLog(ctx, records.DefaultRoutines())
	require.NoError(t, err)
	assert.Empty(t, l.Workouts)
	assert.NotNil(t, l.Workouts)
	assert.Empty(t, l.Notes)
	assert.NotNil(t, l.Notes)
}

func TestRecordStore_LegacyPayload(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storage.KeyWorkouts, []byte(`{
		"2023-06-01": {
			"routineType": "push",
			"completed": true,
			"exercises": [{"id": 2, "name": "Butterfly", "warmupSets": [], "workSets": [
				{"weight": "40", "reps": "8", "done": true},
				{"weight": "42.5", "reps": "6"},
				{"weight": "", "reps": "", "done": true}
			], "notes": ""}]
		}
	}`)))

	l, err := storage.NewRecordStore(store).LoadLog(ctx, nil)
	require.NoError(t, err)
	w := l.Workouts["2023-06-01"]
	assert.True(t, w.Committed)
	sets := w.Exercises[0].WorkSets
	assert.Equal(t, records.Committed, sets[0].State)
	assert.Equal(t, records.Committed, sets[1].State)
	assert.Equal(t, records.Draft, sets[2].State)
}

func TestRecordStore_LastSyncAndCredentials(t *testing.T) {
	ctx := context.Background()
	rs := storage.NewRecordStore(storage.NewMemoryStore())

	ts := time.Date(2024, 1, 10, 18, 30, 0, 0, time.UTC)
	require.NoError(t, rs.SetLastSync(ctx, ts))
	got, err := rs.LastSync(ctx)
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))

	creds, err := rs.Credentials(ctx)
	require.NoError(t, err)
	assert.False(t, creds.Records.Connected())

	creds.Records = remote.Account{Token: "t", Owner: "o", Repo: "r"}
	require.NoError(t, rs.SaveCredentials(ctx, creds))
	creds, err = rs.Credentials(ctx)
	require.NoError(t, err)
	assert.True(t, creds.Records.Connected())
	assert.False(t, creds.Phases.Connected())

	require.NoError(t, rs.DeleteCredentials(ctx))
	creds, err = rs.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.Credentials{}, creds)
}
