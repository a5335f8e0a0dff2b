package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLiteStore keeps ids in a subscriptions table keyed by (env, key).
type SQLiteStore struct {
	db  *sql.DB
	env string
}

func NewSQLiteStore(file, env string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite3 database %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create migration driver %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create migration source %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to instantiate migrations %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations %w", err)
	}

	return &SQLiteStore{db: db, env: strings.ToUpper(env)}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, error) {
	var (
		entry     Entry
		name      sql.NullString
		idemKey   sql.NullString
		startedAt sql.NullString
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT subscription_id, pending_name, idempotency_key, pending_started_at, updated_at FROM subscriptions WHERE env = ? AND key = ?",
		s.env, key,
	).Scan(&entry.SubscriptionID, &name, &idemKey, &startedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to query subscription: %w", err)
	}

	entry.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if name.Valid {
		p := &Pending{Name: name.String, IdempotencyKey: idemKey.String}
		if startedAt.Valid {
			p.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt.String)
		}
		entry.Pending = p
	}
	return entry, nil
}

func (s *SQLiteStore) MarkPending(ctx context.Context, key string, p Pending) error {
	now := time.Now().UTC()
	if p.StartedAt.IsZero() {
		p.StartedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (env, key, pending_name, idempotency_key, pending_started_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (env, key) DO UPDATE SET
		   pending_name = excluded.pending_name,
		   idempotency_key = excluded.idempotency_key,
		   pending_started_at = excluded.pending_started_at,
		   updated_at = excluded.updated_at`,
		s.env, key, p.Name, p.IdempotencyKey, p.StartedAt.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to mark pending subscription: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, key, subscriptionID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (env, key, subscription_id, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (env, key) DO UPDATE SET
		   subscription_id = excluded.subscription_id,
		   pending_name = NULL,
		   idempotency_key = NULL,
		   pending_started_at = NULL,
		   updated_at = excluded.updated_at`,
		s.env, key, subscriptionID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM subscriptions WHERE env = ? AND key = ?", s.env, key); err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
