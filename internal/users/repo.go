package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scanningworld/scanningworld-backend/pkg/db/models"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
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

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByPhone retrieves the user matching the provided phone number.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateRegion moves the user to a different region.
func (r *Repository) UpdateRegion(ctx context.Context, id, regionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("region_id", regionID).Error
}

// UpdateEmail replaces the user's contact email.
func (r *Repository) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("email", email).Error
}

// UpdateRefreshTokenHash stores the hash of the active refresh token, or clears
// it when hash is nil.
func (r *Repository) UpdateRefreshTokenHash(ctx context.Context, id uuid.UUID, hash *string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("refresh_token_hash", hash).Error
}

// UpdatePasswordResetTokenHash stores the hash of the outstanding reset token,
// or clears it when hash is nil.
func (r *Repository) UpdatePasswordResetTokenHash(ctx context.Context, id uuid.UUID, hash *string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("password_reset_token_hash", hash).Error
}

// UpdatePasswordHash replaces the stored password hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("password_hash", hash).Error
}

// ScannedPlaceIDs returns the IDs of every place the user has redeemed,
// oldest visit first.
func (r *Repository) ScannedPlaceIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.ScannedPlace{}).
		Where("user_id = ?", id).
		Order("created_at ASC").
		Pluck("place_id", &ids).Error
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

// PointBalances returns the user's balance per region, keyed by region ID.
func (r *Repository) PointBalances(ctx context.Context, id uuid.UUID) (map[string]int, error) {
	var rows []models.PointBalance
	err := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	balances := make(map[string]int, len(rows))
	for _, row := range rows {
		balances[row.RegionID.String()] = row.Balance
	}
	return balances, nil
}

// Projection assembles the full user view: identity plus visited place IDs and
// per-region point balances.
func (r *Repository) Projection(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(user)

	scanned, err := r.ScannedPlaceIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	dto.ScannedPlaces = scanned

	balances, err := r.PointBalances(ctx, id)
	if err != nil {
		return nil, err
	}
	dto.Points = balances

	return dto, nil
}
