package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/gymlog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
)

var _ Store = (*PostgresStore)(nil)

// pgxPool is the part of *pgxpool.Pool the store uses.
type pgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps the snapshots of one log in the gymlog_kv table, scoped by log id.
type PostgresStore struct {
	db    pgxPool
	logID string
}

func NewPostgresStore(db pgxPool, logID string) *PostgresStore {
	return &PostgresStore{
		db:    db,
		logID: logID,
	}
}

// Migrate creates the kv table when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS gymlog_kv (
		log_id     TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (log_id, key)
	);`)
	if err != nil {
		return fmt.Errorf("create gymlog_kv: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (_ []byte, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.get")
	span.SetAttributes(attribute.String("key", key))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var value []byte
	err = s.db.QueryRow(
		ctx,
		`SELECT value FROM gymlog_kv WHERE log_id = $1 AND key = $2;`,
		s.logID, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.set")
	span.SetAttributes(attribute.String("key", key))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = s.db.Exec(
		ctx,
		`INSERT INTO gymlog_kv (log_id, key, value, updated_at) VALUES ($1, $2, $3, now())
			ON CONFLICT (log_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now();`,
		s.logID, key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM gymlog_kv WHERE log_id = $1 AND key = $2;`, s.logID, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close is a no-op: the pool is shared with the metrics collector and closed by its owner.
func (s *PostgresStore) Close() error {
	return nil
}
