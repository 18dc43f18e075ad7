package models

import (
	"time"

	"github.com/google/uuid"
)

// Place is a point of interest with a redeemable secret code. Code is unique
// across all places and immutable after creation; ScanCount and AverageRating
// are denormalized aggregates.
type Place struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	RegionID      uuid.UUID `gorm:"column:region_id;type:uuid;not null;index"`
	Name          string    `gorm:"column:name;type:text;not null"`
	Description   string    `gorm:"column:description;type:text"`
	ImageURI      string    `gorm:"column:image_uri;type:text"`
	Lat           float64   `gorm:"column:lat;not null"`
	Lng           float64   `gorm:"column:lng;not null"`
	Points        int       `gorm:"column:points;not null;default:0"`
	Code          string    `gorm:"column:code;type:text;not null;uniqueIndex"`
	ScanCount     int       `gorm:"column:scan_count;not null;default:0"`
	AverageRating float64   `gorm:"column:average_rating;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
