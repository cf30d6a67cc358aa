package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/remote"

	log "github.com/sirupsen/logrus"
)

// Credentials are the user supplied accounts of the two remote data sets.
type Credentials struct {
	Records remote.Account `json:"records"`
	Phases  remote.Account `json:"phases"`
}

// RecordStore reads and writes the Record Log snapshots of a Store.
type RecordStore struct {
	store Store
}

func NewRecordStore(store Store) *RecordStore {
	return &RecordStore{store: store}
}

func (rs *RecordStore) Store() Store {
	return rs.store
}

// readJSON decodes key into v, a non-nil pointer. A missing key reports false; a corrupt value
// is logged and reported as missing, and v is left untouched, so damaged local data never keeps
// the log from opening nor leaks a partial decode into it.
func (rs *RecordStore) readJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := rs.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	target := reflect.ValueOf(v).Elem()
	decoded := reflect.New(target.Type())
	if err := json.Unmarshal(data, decoded.Interface()); err != nil {
		log.Warnf("record store: corrupt value under %s, treating as empty: %s", key, err)
		return false, nil
	}
	target.Set(decoded.Elem())
	return true, nil
}

func (rs *RecordStore) writeJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := rs.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// LoadLog assembles the Record Log from the workout, note and routine snapshots. Routines
// fall back to the given defaults when none are stored.
func (rs *RecordStore) LoadLog(ctx context.Context, defaults records.Routines) (*records.Log, error) {
	l := records.NewLog()

	if _, err := rs.readJSON(ctx, KeyWorkouts, &l.Workouts); err != nil {
		return nil, err
	}
	if _, err := rs.readJSON(ctx, KeyNotes, &l.Notes); err != nil {
		return nil, err
	}

	var routines records.Routines
	found, err := rs.readJSON(ctx, KeyRoutines, &routines)
	if err != nil {
		return nil, err
	}
	switch {
	case found && len(routines) > 0:
		l.Routines = routines
	case len(defaults) > 0:
		l.Routines = defaults.Clone()
	}

	if l.Workouts == nil {
		l.Workouts = make(map[records.Date]records.Workout)
	}
	if l.Notes == nil {
		l.Notes = make(map[string]string)
	}
	return l, nil
}

// SaveWorkouts writes the workout and note snapshots.
func (rs *RecordStore) SaveWorkouts(ctx context.Context, p records.WorkoutPayload) error {
	if err := rs.writeJSON(ctx, KeyWorkouts, p.Workouts); err != nil {
		return err
	}
	return rs.writeJSON(ctx, KeyNotes, p.Notes)
}

func (rs *RecordStore) SaveRoutines(ctx context.Context, routines records.Routines) error {
	return rs.writeJSON(ctx, KeyRoutines, routines)
}

// LastSync returns the time of the last successful push or load, zero if never.
func (rs *RecordStore) LastSync(ctx context.Context) (time.Time, error) {
	var ts time.Time
	if _, err := rs.readJSON(ctx, KeyLastSync, &ts); err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

func (rs *RecordStore) SetLastSync(ctx context.Context, ts time.Time) error {
	return rs.writeJSON(ctx, KeyLastSync, ts.UTC())
}

func (rs *RecordStore) Credentials(ctx context.Context) (Credentials, error) {
	var c Credentials
	if _, err := rs.readJSON(ctx, KeyRemoteCredentials, &c); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

func (rs *RecordStore) SaveCredentials(ctx context.Context, c Credentials) error {
	return rs.writeJSON(ctx, KeyRemoteCredentials, c)
}

func (rs *RecordStore) DeleteCredentials(ctx context.Context) error {
	if err := rs.store.Delete(ctx, KeyRemoteCredentials); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}

func (rs *RecordStore) Close() error {
	return rs.store.Close()
}
