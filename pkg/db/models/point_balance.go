package models

import (
	"time"

	"github.com/google/uuid"
)

// PointBalance holds a user's accumulated points within one region. Balances
// only grow through scan events in that region.
type PointBalance struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	RegionID  uuid.UUID `gorm:"column:region_id;type:uuid;primaryKey"`
	Balance   int       `gorm:"column:balance;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
