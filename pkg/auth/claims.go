package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes the JWTs this service mints.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
	TokenKindReset   TokenKind = "reset"
)

// TokenPayload captures the data available when minting a JWT.
type TokenPayload struct {
	UserID   uuid.UUID
	RegionID uuid.UUID
	JTI      string
}

// Claims represents the typed JWT issued to clients.
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	RegionID uuid.UUID `json:"region_id,omitempty"`
	Kind     TokenKind `json:"kind"`
	jwt.RegisteredClaims
}
