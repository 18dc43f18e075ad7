package models

import (
	"time"

	"github.com/google/uuid"
)

// Region groups places and users geographically. PlacesCount is denormalized
// and maintained through atomic increments on place create/delete.
type Region struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;type:text;not null;uniqueIndex"`
	PlacesCount int       `gorm:"column:places_count;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
