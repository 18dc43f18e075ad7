package places

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scanningworld/scanningworld-backend/internal/regions"
	"github.com/scanningworld/scanningworld-backend/pkg/db"
	"github.com/scanningworld/scanningworld-backend/pkg/db/models"
	pkgerrors "github.com/scanningworld/scanningworld-backend/pkg/errors"
	"github.com/scanningworld/scanningworld-backend/pkg/logger"
	"github.com/scanningworld/scanningworld-backend/pkg/security"
)

const codeGenerationAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes business rules for place management and reviews.
type Service interface {
	Create(ctx context.Context, req CreatePlaceRequest) (*PlaceAdminDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*PlaceDTO, error)
	GetWithCode(ctx context.Context, id uuid.UUID) (*PlaceAdminDTO, error)
	ListByRegion(ctx context.Context, regionID uuid.UUID) ([]PlaceDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdatePlaceRequest) (*PlaceDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddReview(ctx context.Context, placeID, userID uuid.UUID, req AddReviewRequest) (*ReviewDTO, error)
	ListReviews(ctx context.Context, placeID uuid.UUID) ([]ReviewDTO, error)
}

// ServiceParams groups dependencies for the places service.
type ServiceParams struct {
	PlaceRepo  *Repository
	RegionRepo *regions.Repository
	Tx         txRunner
	Logger     *logger.Logger
}

type service struct {
	placeRepo  *Repository
	regionRepo *regions.Repository
	tx         txRunner
	logg       *logger.Logger
}

// NewService builds a places service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.PlaceRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "place repo is required")
	}
	if params.RegionRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region repo is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		placeRepo:  params.PlaceRepo,
		regionRepo: params.RegionRepo,
		tx:         params.Tx,
		logg:       params.Logger,
	}, nil
}

// Create registers a place with a freshly generated redemption code and bumps
// the owning region's counter in the same transaction.
func (s *service) Create(ctx context.Context, req CreatePlaceRequest) (*PlaceAdminDTO, error) {
	if req.RegionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region id is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "place name is required")
	}
	if req.Location == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location is required")
	}

	if _, err := s.regionRepo.FindByID(ctx, req.RegionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "region not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load region")
	}

	var place *models.Place
	for attempt := 0; attempt < codeGenerationAttempts; attempt++ {
		code, err := security.GenerateRedemptionCode()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate code")
		}
		candidate := &models.Place{
			ID:          uuid.New(),
			RegionID:    req.RegionID,
			Name:        name,
			Description: req.Description,
			ImageURI:    req.ImageURI,
			Lat:         req.Location.Lat,
			Lng:         req.Location.Lng,
			Points:      req.Points,
			Code:        code,
		}

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.placeRepo.WithTx(tx).Insert(ctx, candidate); err != nil {
				return err
			}
			return s.regionRepo.WithTx(tx).AdjustPlacesCount(ctx, req.RegionID, 1)
		})
		if err == nil {
			place = candidate
			break
		}
		if db.IsUniqueViolation(err, "") {
			// Code collision; a fresh code is drawn on the next attempt.
			continue
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create place")
	}
	if place == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique code")
	}

	s.logg.Info(s.logg.WithPlaceID(ctx, place.ID.String()), "place created")
	return AdminFromModel(place), nil
}

// Get returns the public view of a place.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*PlaceDTO, error) {
	place, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(place), nil
}

// GetWithCode returns the operator view including the redemption code.
func (s *service) GetWithCode(ctx context.Context, id uuid.UUID) (*PlaceAdminDTO, error) {
	place, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return AdminFromModel(place), nil
}

// ListByRegion returns the public views of a region's places.
func (s *service) ListByRegion(ctx context.Context, regionID uuid.UUID) ([]PlaceDTO, error) {
	if regionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region id is required")
	}
	rows, err := s.placeRepo.ListByRegion(ctx, regionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list places")
	}
	out := make([]PlaceDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// Update applies partial updates. The owning region is immutable; a request
// naming a different region is rejected.
func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdatePlaceRequest) (*PlaceDTO, error) {
	place, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.RegionID != nil && *req.RegionID != place.RegionID {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "place cannot change region")
	}

	columns := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "place name is required")
		}
		columns["name"] = name
	}
	if req.Description != nil {
		columns["description"] = *req.Description
	}
	if req.ImageURI != nil {
		columns["image_uri"] = *req.ImageURI
	}
	if req.Location != nil {
		columns["lat"] = req.Location.Lat
		columns["lng"] = req.Location.Lng
	}
	if req.Points != nil {
		if *req.Points < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must not be negative")
		}
		columns["points"] = *req.Points
	}
	if len(columns) == 0 {
		return FromModel(place), nil
	}
	columns["updated_at"] = time.Now().UTC()

	if err := s.placeRepo.UpdateColumns(ctx, id, columns); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update place")
	}
	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

// Delete retires a place: its reviews and scan records are removed and the
// region counter decremented, all in one transaction. Earned points are kept.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	place, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.placeRepo.WithTx(tx)
		if err := repo.DeleteReviews(ctx, id); err != nil {
			return err
		}
		if err := repo.DeleteVisits(ctx, id); err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.regionRepo.WithTx(tx).AdjustPlacesCount(ctx, place.RegionID, -1)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete place")
	}

	s.logg.Info(s.logg.WithPlaceID(ctx, id.String()), "place deleted")
	return nil
}

// AddReview stores a user's single review for a place and recomputes the
// denormalized average inside the same transaction.
func (s *service) AddReview(ctx context.Context, placeID, userID uuid.UUID, req AddReviewRequest) (*ReviewDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if _, err := s.load(ctx, placeID); err != nil {
		return nil, err
	}

	review := &models.Review{
		ID:         uuid.New(),
		PlaceID:    placeID,
		UserID:     userID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		ReviewDate: time.Now().UTC(),
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.placeRepo.WithTx(tx)
		if err := repo.InsertReview(ctx, review); err != nil {
			return err
		}
		return repo.RecomputeAverageRating(ctx, placeID)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidOperation, err, "place already reviewed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add review")
	}

	dto := reviewFromModel(review)
	return &dto, nil
}

// ListReviews returns a place's reviews, newest first.
func (s *service) ListReviews(ctx context.Context, placeID uuid.UUID) ([]ReviewDTO, error) {
	if _, err := s.load(ctx, placeID); err != nil {
		return nil, err
	}
	rows, err := s.placeRepo.ListReviews(ctx, placeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	out := make([]ReviewDTO, 0, len(rows))
	for i := range rows {
		out = append(out, reviewFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Place, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "place id is required")
	}
	place, err := s.placeRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "place not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load place")
	}
	return place, nil
}
