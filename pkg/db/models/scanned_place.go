package models

import (
	"time"

	"github.com/google/uuid"
)

// ScannedPlace records that a user redeemed a place's code. The composite
// primary key is the duplicate-visit guard: the row can only ever be inserted
// once per (user, place) pair.
type ScannedPlace struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	PlaceID   uuid.UUID `gorm:"column:place_id;type:uuid;primaryKey;index:scanned_places_place_id_idx"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
