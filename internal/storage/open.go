package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type OpenParams struct {
	Backend        Backend
	Dir            string
	SQLitePath     string
	RedisClient    *redis.Client
	RedisPrefix    string
	PgPool         *pgxpool.Pool
	LogID          string
	CacheSizeBytes int
}

// Open creates the configured backend, cached when a cache size is given.
func Open(ctx context.Context, params OpenParams) (Store, error) {
	var store Store
	switch params.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendDisk:
		s, err := NewDiskStore(params.Dir)
		if err != nil {
			return nil, err
		}
		store = s
	case BackendSQLite:
		s, err := NewSQLiteStore(params.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = s
	case BackendRedis:
		if params.RedisClient == nil {
			return nil, errors.New("redis backend needs a redis client")
		}
		store = NewRedisStore(params.RedisClient, params.RedisPrefix)
	case BackendPostgres:
		if params.PgPool == nil {
			return nil, errors.New("postgres backend needs a db pool")
		}
		s := NewPostgresStore(params.PgPool, params.LogID)
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", params.Backend)
	}

	log.Debugf("storage: using %s backend", params.Backend)
	if params.CacheSizeBytes > 0 {
		return NewCachedStore(store, params.CacheSizeBytes), nil
	}
	return store, nil
}
