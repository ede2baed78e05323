package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hongminglow/anonboard/internal/tokenstore"
)

// Ensure Store satisfies the tokenstore.Store interface at compile time.
var _ tokenstore.Store = (*Store)(nil)

// Store provides Postgres-backed persistence for client tokens, scoped to a
// profile name so several clients can share one database.
type Store struct {
	pool    *pgxpool.Pool
	profile string
}

// NewTokenStore connects, runs migrations and returns a Store for profile.
func NewTokenStore(ctx context.Context, databaseURL, profile string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool, profile: profile}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS client_tokens (
			profile TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (profile, key)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// Get fetches the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM client_tokens WHERE profile = $1 AND key = $2;`
	var value string
	if err := s.pool.QueryRow(ctx, query, s.profile, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", tokenstore.ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set upserts the value stored under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	const query = `
	INSERT INTO client_tokens (profile, key, value, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW();
	`
	if _, err := s.pool.Exec(ctx, query, s.profile, key, value); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// Delete removes key; deleting a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM client_tokens WHERE profile = $1 AND key = $2;`
	if _, err := s.pool.Exec(ctx, query, s.profile, key); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
