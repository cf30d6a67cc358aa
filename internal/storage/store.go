// Package storage persists the Record Log as a handful of whole JSON snapshots under
// fixed keys. Backends only move bytes; RecordStore gives the keys their types.
package storage

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("key not found")

const (
	KeyWorkouts          = "gymlog_workouts"
	KeyNotes             = "gymlog_notes"
	KeyRoutines          = "gymlog_routines"
	KeyLastSync          = "gymlog_last_sync"
	KeyRemoteCredentials = "gymlog_remote"
)

// Store is a durable key/value store. Every value is written and read atomically as a whole.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendDisk     Backend = "disk"
	BackendSQLite   Backend = "sqlite"
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendMemory, BackendDisk, BackendSQLite, BackendRedis, BackendPostgres:
		return b, nil
	case "":
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("unknown storage backend: %q", s)
	}
}
