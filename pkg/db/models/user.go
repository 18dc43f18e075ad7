package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the canonical identity entity. Phone is the login key.
// Refresh and reset tokens are stored hashed, never in the clear.
type User struct {
	ID                     uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Phone                  string    `gorm:"column:phone;type:text;not null;uniqueIndex"`
	Email                  string    `gorm:"column:email;type:text;not null"`
	PasswordHash           string    `gorm:"column:password_hash;not null"`
	RefreshTokenHash       *string   `gorm:"column:refresh_token_hash"`
	PasswordResetTokenHash *string   `gorm:"column:password_reset_token_hash"`
	RegionID               uuid.UUID `gorm:"column:region_id;type:uuid;not null;index"`
	CreatedAt              time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
