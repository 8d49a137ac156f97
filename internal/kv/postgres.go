package kv

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresStore persists entries in the kv_entries table.
type PostgresStore struct {
	db            *sql.DB
	maxValueBytes int
}

// NewPostgresStore creates a store on an open connection. The kv_entries table
// is created by the database package migrations.
func NewPostgresStore(db *sql.DB, maxValueBytes int) *PostgresStore {
	return &PostgresStore{db: db, maxValueBytes: maxValueBytes}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_entries WHERE key = $1", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	if err := checkQuota(s.maxValueBytes, value); err != nil {
		return err
	}
	query := `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC())
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = $1", key)
	return err
}
