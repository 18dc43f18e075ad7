package places

import (
	"time"

	"github.com/google/uuid"

	"github.com/scanningworld/scanningworld-backend/pkg/db/models"
	"github.com/scanningworld/scanningworld-backend/pkg/types"
)

// PlaceDTO is the public transport shape. The redemption code is omitted;
// use PlaceAdminDTO for operator surfaces.
type PlaceDTO struct {
	ID            uuid.UUID    `json:"id"`
	RegionID      uuid.UUID    `json:"region_id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	ImageURI      string       `json:"image_uri"`
	Location      types.LatLng `json:"location"`
	Points        int          `json:"points"`
	ScanCount     int          `json:"scan_count"`
	AverageRating float64      `json:"average_rating"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// PlaceAdminDTO additionally exposes the redemption code.
type PlaceAdminDTO struct {
	PlaceDTO
	Code string `json:"code"`
}

// CreatePlaceRequest captures the payload for registering a place.
type CreatePlaceRequest struct {
	RegionID    uuid.UUID     `json:"region_id" validate:"required"`
	Name        string        `json:"name" validate:"required,min=2,max=200"`
	Description string        `json:"description" validate:"max=2000"`
	ImageURI    string        `json:"image_uri" validate:"omitempty,uri"`
	Location    *types.LatLng `json:"location" validate:"required"`
	Points      int           `json:"points" validate:"gte=0"`
}

// UpdatePlaceRequest carries partial updates. RegionID, when present, must
// match the stored region: places cannot move between regions.
type UpdatePlaceRequest struct {
	RegionID    *uuid.UUID    `json:"region_id" validate:"omitempty"`
	Name        *string       `json:"name" validate:"omitempty,min=2,max=200"`
	Description *string       `json:"description" validate:"omitempty,max=2000"`
	ImageURI    *string       `json:"image_uri" validate:"omitempty,uri"`
	Location    *types.LatLng `json:"location" validate:"omitempty"`
	Points      *int          `json:"points" validate:"omitempty,gte=0"`
}

// ReviewDTO is the transport shape for a place review.
type ReviewDTO struct {
	ID         uuid.UUID `json:"id"`
	PlaceID    uuid.UUID `json:"place_id"`
	UserID     uuid.UUID `json:"user_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	ReviewDate time.Time `json:"review_date"`
}

// AddReviewRequest captures a user's review submission.
type AddReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

func FromModel(p *models.Place) *PlaceDTO {
	if p == nil {
		return nil
	}
	return &PlaceDTO{
		ID:            p.ID,
		RegionID:      p.RegionID,
		Name:          p.Name,
		Description:   p.Description,
		ImageURI:      p.ImageURI,
		Location:      types.LatLng{Lat: p.Lat, Lng: p.Lng},
		Points:        p.Points,
		ScanCount:     p.ScanCount,
		AverageRating: p.AverageRating,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func AdminFromModel(p *models.Place) *PlaceAdminDTO {
	if p == nil {
		return nil
	}
	return &PlaceAdminDTO{
		PlaceDTO: *FromModel(p),
		Code:     p.Code,
	}
}

func reviewFromModel(r *models.Review) ReviewDTO {
	return ReviewDTO{
		ID:         r.ID,
		PlaceID:    r.PlaceID,
		UserID:     r.UserID,
		Rating:     r.Rating,
		Comment:    r.Comment,
		ReviewDate: r.ReviewDate,
	}
}
