//go:build integration_test || all_tests

package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/2beens/gymlog/internal/db"
	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/storage"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func testPostgresSetup(t *testing.T) storage.Store {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := envOr("POSTGRES_HOST", "localhost")
	t.Logf("using postres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         envOr("POSTGRES_PORT", "5432"),
		DBName:         "gymlog",
		TracingEnabled: false,
	})
	require.NoError(t, err)
	t.Cleanup(dbPool.Close)

	// every run gets its own log id, so runs never see each other's rows
	store, err := storage.Open(timeoutCtx, storage.OpenParams{
		Backend: storage.BackendPostgres,
		PgPool:  dbPool,
		LogID:   "it-" + uuid.NewString(),
	})
	require.NoError(t, err)
	return store
}

func testRedisSetup(t *testing.T) storage.Store {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: envOr("REDIS_HOST", "localhost") + ":" + envOr("REDIS_PORT", "6379"),
	})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })

	store, err := storage.Open(context.Background(), storage.OpenParams{
		Backend:        storage.BackendRedis,
		RedisClient:    client,
		RedisPrefix:    "gymlog-it-" + uuid.NewString() + ":",
		CacheSizeBytes: 512 * 1024,
	})
	require.NoError(t, err)
	return store
}

func recordStoreRoundTrip(t *testing.T, store storage.Store) {
	ctx := context.Background()
	rs := storage.NewRecordStore(store)
	defer func() {
		require.NoError(t, rs.Close())
	}()

	l, err := rs.LoadLog(ctx, records.DefaultRoutines())
	require.NoError(t, err)
	assert.Empty(t, l.Workouts)
	assert.Equal(t, []string{"push", "pull"}, l.Routines.Types())

	w, err := l.NewWorkout("push")
	require.NoError(t, err)
	w.Exercises[0].WorkSets[0] = records.Set{Weight: "80", Reps: "8", State: records.Committed}
	l.SetWorkout("2024-03-10", w)
	l.Notes["Incline Chest Press"] = "seat 4"
	require.NoError(t, rs.SaveWorkouts(ctx, l.Payload()))

	reloaded, err := rs.LoadLog(ctx, records.DefaultRoutines())
	require.NoError(t, err)
	got, ok := reloaded.Workout("2024-03-10")
	require.True(t, ok)
	assert.Equal(t, "80", got.Exercises[0].WorkSets[0].Weight)
	assert.True(t, got.Exercises[0].WorkSets[0].Committed())
	assert.Equal(t, "seat 4", reloaded.Notes["Incline Chest Press"])

	ts := time.Date(2024, 3, 10, 19, 0, 0, 0, time.UTC)
	require.NoError(t, rs.SetLastSync(ctx, ts))
	lastSync, err := rs.LastSync(ctx)
	require.NoError(t, err)
	assert.True(t, ts.Equal(lastSync))

	creds := storage.Credentials{}
	creds.Records.Token = "token"
	creds.Records.Owner = "serj"
	creds.Records.Repo = "gym-data"
	require.NoError(t, rs.SaveCredentials(ctx, creds))
	gotCreds, err := rs.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, creds, gotCreds)

	require.NoError(t, rs.DeleteCredentials(ctx))
	gotCreds, err = rs.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.Credentials{}, gotCreds)

	_, err = store.Get(ctx, storage.KeyRemoteCredentials)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPostgresStore_Integration(t *testing.T) {
	recordStoreRoundTrip(t, testPostgresSetup(t))
}

func TestRedisStore_Integration(t *testing.T) {
	recordStoreRoundTrip(t, testRedisSetup(t))
}
