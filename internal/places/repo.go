package places

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scanningworld/scanningworld-backend/pkg/db/models"
)

// Repository exposes place and review persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a places repo bound to the provided GORM DB.
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

// Insert persists a new place row.
func (r *Repository) Insert(ctx context.Context, place *models.Place) error {
	return r.db.WithContext(ctx).Create(place).Error
}

// FindByID loads a place by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Place, error) {
	var place models.Place
	if err := r.db.WithContext(ctx).First(&place, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &place, nil
}

// FindByCode loads the place owning the provided redemption code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Place, error) {
	var place models.Place
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&place).Error; err != nil {
		return nil, err
	}
	return &place, nil
}

// ListByRegion returns a region's places ordered by name.
func (r *Repository) ListByRegion(ctx context.Context, regionID uuid.UUID) ([]models.Place, error) {
	var rows []models.Place
	err := r.db.WithContext(ctx).
		Where("region_id = ?", regionID).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateColumns applies the provided column map to the place row.
func (r *Repository) UpdateColumns(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Place{}).
		Where("id = ?", id).
		UpdateColumns(columns).Error
}

// Delete removes the place row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Place{}, "id = ?", id).Error
}

// DeleteVisits removes every scan record that references the place. Used when
// a place is retired so user histories do not point at dead rows.
func (r *Repository) DeleteVisits(ctx context.Context, placeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.ScannedPlace{}, "place_id = ?", placeID).Error
}

// DeleteReviews removes every review attached to the place.
func (r *Repository) DeleteReviews(ctx context.Context, placeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.Review{}, "place_id = ?", placeID).Error
}

// IncrementScanCount bumps the scan counter in a single statement.
func (r *Repository) IncrementScanCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE places
		SET scan_count = scan_count + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id).Error
}

// InsertReview persists a review row. The (place_id, user_id) unique index
// rejects a second review from the same user.
func (r *Repository) InsertReview(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// ListReviews returns a place's reviews, newest first.
func (r *Repository) ListReviews(ctx context.Context, placeID uuid.UUID) ([]models.Review, error) {
	var rows []models.Review
	err := r.db.WithContext(ctx).
		Where("place_id = ?", placeID).
		Order("review_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RecomputeAverageRating rewrites the denormalized average from the
// authoritative review rows. Run inside the same transaction as the review
// write so the aggregate can never lag the rows it summarizes.
func (r *Repository) RecomputeAverageRating(ctx context.Context, placeID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE places
		SET average_rating = COALESCE((
			SELECT AVG(CAST(rating AS REAL)) FROM reviews WHERE reviews.place_id = places.id
		), 0),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, placeID).Error
}

// RecountAverageRatings rewrites every drifted average from the review rows
// and returns how many places were corrected.
func (r *Repository) RecountAverageRatings(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE places
		SET average_rating = COALESCE((
			SELECT AVG(CAST(rating AS REAL)) FROM reviews WHERE reviews.place_id = places.id
		), 0)
		WHERE average_rating <> COALESCE((
			SELECT AVG(CAST(rating AS REAL)) FROM reviews WHERE reviews.place_id = places.id
		), 0)
	`)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
