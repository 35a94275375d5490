package collectionmodel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStateStore implements StateStore on the collection_state table.
type SQLiteStateStore struct {
	db *sql.DB
}

var _ StateStore = (*SQLiteStateStore)(nil)

// NewSQLiteStateStore creates a store on db. The table is created by the
// embedded migrations.
func NewSQLiteStateStore(db *sql.DB) *SQLiteStateStore {
	return &SQLiteStateStore{db: db}
}

// LoadEnabled returns the saved enablement of the collection identified by
// its class id and name. found is false when nothing was saved.
func (s *SQLiteStateStore) LoadEnabled(ctx context.Context, id []byte, name string) (bool, bool, error) {
	var enabled bool
	err := s.db.QueryRowContext(ctx, `
		SELECT enabled FROM collection_state
		WHERE collection_id = ? AND name = ?
	`, string(id), name).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("querying collection state %s/%s: %w", id, name, err)
	}
	return enabled, true, nil
}

// SaveEnabled stores the enablement of a collection.
func (s *SQLiteStateStore) SaveEnabled(ctx context.Context, id []byte, name string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collection_state (collection_id, name, enabled, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection_id, name) DO UPDATE SET
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`, string(id), name, enabled, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storing collection state %s/%s: %w", id, name, err)
	}
	return nil
}
