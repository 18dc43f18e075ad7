package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is owned by the place it belongs to; the user reference is a
// non-owning back-reference for display. One review per user per place.
type Review struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PlaceID    uuid.UUID `gorm:"column:place_id;type:uuid;not null;index:reviews_place_id_idx;uniqueIndex:reviews_place_user_key"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:reviews_place_user_key"`
	Rating     int       `gorm:"column:rating;not null"`
	Comment    string    `gorm:"column:comment;type:text"`
	ReviewDate time.Time `gorm:"column:review_date;not null"`
}
