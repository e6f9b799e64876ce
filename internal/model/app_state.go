package model

import (
	"time"

	"gorm.io/datatypes"
)

// AppStateRowID is the primary key of the only row in the app_state table.
const AppStateRowID = 1

type AppState struct {
	ID        int            `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AppState) TableName() string {
	return "app_state"
}
