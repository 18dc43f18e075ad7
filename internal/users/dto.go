package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/scanningworld/scanningworld-backend/pkg/db/models"
)

// UserDTO is the transport shape that omits sensitive credentials. ScannedPlaces
// and Points are projections assembled from the visit and balance tables.
type UserDTO struct {
	ID            uuid.UUID      `json:"id"`
	Phone         string         `json:"phone"`
	Email         string         `json:"email"`
	RegionID      uuid.UUID      `json:"region_id"`
	ScannedPlaces []uuid.UUID    `json:"scanned_places"`
	Points        map[string]int `json:"points"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Phone        string
	Email        string
	PasswordHash string
	RegionID     uuid.UUID
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:            u.ID,
		Phone:         u.Phone,
		Email:         u.Email,
		RegionID:      u.RegionID,
		ScannedPlaces: []uuid.UUID{},
		Points:        map[string]int{},
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		ID:           uuid.New(),
		Phone:        c.Phone,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		RegionID:     c.RegionID,
	}
}
