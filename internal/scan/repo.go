package scan

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scanningworld/scanningworld-backend/pkg/db/models"
)

// Repository holds the scan-specific write primitives. Each method is a
// single statement so the redemption transaction stays free of read-modify-
// write races.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a scan repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repo to a transaction handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// HasVisited reports whether the user already redeemed the place.
func (r *Repository) HasVisited(ctx context.Context, userID, placeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ScannedPlace{}).
		Where("user_id = ? AND place_id = ?", userID, placeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertVisit records the redemption and reports whether this call won the
// insert. The composite primary key makes the insert idempotent: when two
// transactions race on the same (user, place) pair, exactly one sees
// inserted=true and the loser must roll back its side effects.
func (r *Repository) InsertVisit(ctx context.Context, userID, placeID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		INSERT INTO scanned_places (user_id, place_id, created_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, place_id) DO NOTHING
	`, userID, placeID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AddPoints upserts the user's balance for the region, adding points to
// whatever is already there.
func (r *Repository) AddPoints(ctx context.Context, userID, regionID uuid.UUID, points int) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO point_balances (user_id, region_id, balance, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, region_id) DO UPDATE SET
			balance = point_balances.balance + excluded.balance,
			updated_at = CURRENT_TIMESTAMP
	`, userID, regionID, points).Error
}
