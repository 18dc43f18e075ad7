package scan

import (
	"github.com/google/uuid"

	"github.com/scanningworld/scanningworld-backend/internal/users"
	"github.com/scanningworld/scanningworld-backend/pkg/types"
)

// RedeemRequest captures a code redemption attempt from the mobile client.
type RedeemRequest struct {
	Code     string        `json:"code" validate:"required"`
	Location *types.LatLng `json:"location" validate:"required"`
}

// RedeemResponse reports the awarded points and the refreshed user view after
// a successful redemption.
type RedeemResponse struct {
	User          *users.UserDTO `json:"user"`
	PlaceID       uuid.UUID      `json:"place_id"`
	RegionID      uuid.UUID      `json:"region_id"`
	PointsAwarded int            `json:"points_awarded"`
}
