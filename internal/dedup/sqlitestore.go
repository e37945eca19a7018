package dedup

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLStore keeps seen keys in the archive database. Same append-only
// contract as the file store; the seen_loads table is created by the store
// package's migration.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Contains(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM seen_loads WHERE key = ? LIMIT 1;`, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("seen lookup: %w", err)
	}
	return true, nil
}

func (s *SQLStore) Add(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO seen_loads(key) VALUES(?);`, key)
	if err != nil {
		return fmt.Errorf("seen insert: %w", err)
	}
	return nil
}
