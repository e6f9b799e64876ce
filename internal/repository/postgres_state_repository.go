package repository

import (
	"context"
	"errors"
	"sync"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fleet-admin/internal/model"
)

type PostgresStateRepository struct {
	db *gorm.DB
	mu sync.Mutex
}

func NewPostgresStateRepository(db *gorm.DB) *PostgresStateRepository {
	return &PostgresStateRepository{db: db}
}

func (r *PostgresStateRepository) Initialize(ctx context.Context, defaults []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := model.AppState{ID: model.AppStateRowID, Payload: datatypes.JSON(defaults)}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (r *PostgresStateRepository) Load(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var row model.AppState
	err := r.db.WithContext(ctx).Where("id = ?", model.AppStateRowID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStateNotFound
		}
		return nil, err
	}
	return []byte(row.Payload), nil
}

func (r *PostgresStateRepository) Store(ctx context.Context, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := model.AppState{ID: model.AppStateRowID, Payload: datatypes.JSON(payload)}
	return r.db.WithContext(ctx).Save(&row).Error
}
