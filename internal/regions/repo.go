package regions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scanningworld/scanningworld-backend/pkg/db/models"
)

// Repository exposes region persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a regions repo bound to the provided GORM DB.
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

// Create inserts a new region.
func (r *Repository) Create(ctx context.Context, name string) (*models.Region, error) {
	region := &models.Region{ID: uuid.New(), Name: name}
	if err := r.db.WithContext(ctx).Create(region).Error; err != nil {
		return nil, err
	}
	return region, nil
}

// FindByID loads a region by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Region, error) {
	var region models.Region
	if err := r.db.WithContext(ctx).First(&region, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &region, nil
}

// FindByName retrieves the region matching the provided name.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.Region, error) {
	var region models.Region
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&region).Error; err != nil {
		return nil, err
	}
	return &region, nil
}

// List returns all regions ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Region, error) {
	var rows []models.Region
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateName renames a region.
func (r *Repository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	res := r.db.WithContext(ctx).Model(&models.Region{}).
		Where("id = ?", id).
		Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a region row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Region{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountPlaces returns the authoritative number of places in the region.
func (r *Repository) CountPlaces(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Place{}).
		Where("region_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// AdjustPlacesCount applies a relative delta to the region's place counter in a
// single statement. The counter never drops below zero. Rebind through WithTx
// when the adjustment must commit atomically with a place write.
func (r *Repository) AdjustPlacesCount(ctx context.Context, regionID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE regions
		SET places_count = places_count + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND places_count + ? >= 0
	`, delta, regionID, delta).Error
}

// RecountPlaces rewrites every drifted counter from the authoritative places
// table and returns how many regions were corrected.
func (r *Repository) RecountPlaces(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE regions
		SET places_count = (
			SELECT COUNT(*) FROM places WHERE places.region_id = regions.id
		)
		WHERE places_count <> (
			SELECT COUNT(*) FROM places WHERE places.region_id = regions.id
		)
	`)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
