package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

//go:embed schema.sql
var schema string

const (
	defaultPingTimeout = 5 * time.Second

	// uniqueViolation is the SQLSTATE for unique_violation.
	uniqueViolation = "23505"
)

// DB is the subset of pgxpool.Pool used by the store. pgxmock satisfies it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ driven.RecordStore = (*Store)(nil)

// Store is a PostgreSQL record store.
type Store struct {
	db    DB
	close func()
	now   func() time.Time
}

// NewStore connects to dsn, verifies the connection and creates the schema.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: creating schema: %w", err)
	}

	s := NewStoreWithDB(pool)
	s.close = pool.Close
	return s, nil
}

// NewStoreWithDB wraps an existing connection. The schema must already exist.
func NewStoreWithDB(db DB) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Close releases the pool if the store owns one.
func (s *Store) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

// Documents returns a DocumentStore backed by this store.
func (s *Store) Documents() driven.DocumentStore { return &documentStore{s} }

// Chunks returns a ChunkStore backed by this store.
func (s *Store) Chunks() driven.ChunkStore { return &chunkStore{s} }

// Conversations returns a ConversationStore backed by this store.
func (s *Store) Conversations() driven.ConversationStore { return &conversationStore{s} }

// Scheduler returns a SchedulerStore backed by this store.
func (s *Store) Scheduler() driven.SchedulerStore { return &schedulerStore{s} }

func (s *Store) withTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()
	return fn(tx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func fromNullableTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fromNullableString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
