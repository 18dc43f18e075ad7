package regions

import (
	"time"

	"github.com/google/uuid"

	"github.com/scanningworld/scanningworld-backend/pkg/db/models"
)

// RegionDTO is the transport shape for a region.
type RegionDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PlacesCount int       `json:"places_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRegionRequest captures the payload for creating a region.
type CreateRegionRequest struct {
	Name string `json:"name" validate:"required,min=2,max=120"`
}

func FromModel(r *models.Region) *RegionDTO {
	if r == nil {
		return nil
	}
	return &RegionDTO{
		ID:          r.ID,
		Name:        r.Name,
		PlacesCount: r.PlacesCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
