package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parentcompanion/internal/database"
)

// StateRepository persists string-keyed local state rows
type StateRepository struct {
	db database.DBTX
}

// NewStateRepository creates a new state repository
func NewStateRepository(db database.DBTX) *StateRepository {
	return &StateRepository{db: db}
}

// Get retrieves a value by key. ok is false when the key is absent.
func (r *StateRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	query := "SELECT state_value FROM local_state WHERE state_key = ?"
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get state %s: %w", key, err)
	}
	return value, true, nil
}

// Set inserts or replaces a value
func (r *StateRepository) Set(ctx context.Context, key, value string) error {
	query := r.db.GetDialect().UpsertStateQuery()
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set state %s: %w", key, err)
	}
	return nil
}

// Delete removes a key; deleting a missing key is not an error
func (r *StateRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM local_state WHERE state_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete state %s: %w", key, err)
	}
	return nil
}
