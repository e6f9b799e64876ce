package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"fleet-admin/internal/model"
)

type SQLiteStateRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteStateRepository(db *sql.DB) *SQLiteStateRepository {
	return &SQLiteStateRepository{db: db}
}

func (r *SQLiteStateRepository) Initialize(ctx context.Context, defaults []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO app_state (id, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		model.AppStateRowID, string(defaults),
	)
	if err != nil {
		return fmt.Errorf("seed app_state: %w", err)
	}
	return nil
}

func (r *SQLiteStateRepository) Load(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM app_state WHERE id = ?`, model.AppStateRowID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("load app_state: %w", err)
	}
	return []byte(payload), nil
}

func (r *SQLiteStateRepository) Store(ctx context.Context, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO app_state (id, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`,
		model.AppStateRowID, string(payload),
	)
	if err != nil {
		return fmt.Errorf("store app_state: %w", err)
	}
	return nil
}
