package regions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scanningworld/scanningworld-backend/pkg/db"
	pkgerrors "github.com/scanningworld/scanningworld-backend/pkg/errors"
	"github.com/scanningworld/scanningworld-backend/pkg/logger"
	"github.com/scanningworld/scanningworld-backend/pkg/metrics"
)

const reconcileJobName = "region-places-count"

// Service exposes business rules for region management, including the
// counter reconciliation job.
type Service interface {
	Create(ctx context.Context, req CreateRegionRequest) (*RegionDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*RegionDTO, error)
	List(ctx context.Context) ([]RegionDTO, error)
	Update(ctx context.Context, id uuid.UUID, req CreateRegionRequest) (*RegionDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Reconcile(ctx context.Context) (int64, error)
}

// ServiceParams groups dependencies for the regions service.
type ServiceParams struct {
	RegionRepo *Repository
	Logger     *logger.Logger
	Metrics    *metrics.ReconcileMetrics
}

type service struct {
	regionRepo *Repository
	logg       *logger.Logger
	metrics    *metrics.ReconcileMetrics
}

// NewService builds a regions service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.RegionRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region repo is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		regionRepo: params.RegionRepo,
		logg:       params.Logger,
		metrics:    params.Metrics,
	}, nil
}

// Create registers a new region with a zero place counter.
func (s *service) Create(ctx context.Context, req CreateRegionRequest) (*RegionDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region name is required")
	}

	region, err := s.regionRepo.Create(ctx, name)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "region name already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create region")
	}
	return FromModel(region), nil
}

// Get loads one region by ID.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*RegionDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region id is required")
	}
	region, err := s.regionRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "region not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load region")
	}
	return FromModel(region), nil
}

// List returns all regions.
func (s *service) List(ctx context.Context) ([]RegionDTO, error) {
	rows, err := s.regionRepo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list regions")
	}
	out := make([]RegionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// Update renames a region.
func (s *service) Update(ctx context.Context, id uuid.UUID, req CreateRegionRequest) (*RegionDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region id is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region name is required")
	}

	if err := s.regionRepo.UpdateName(ctx, id, name); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "region not found")
		}
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "region name already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rename region")
	}
	return s.Get(ctx, id)
}

// Delete removes an empty region. Regions that still contain places cannot be
// deleted.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "region id is required")
	}

	count, err := s.regionRepo.CountPlaces(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count region places")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidOperation, "region still has places")
	}

	if err := s.regionRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "region not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete region")
	}
	return nil
}

// Reconcile recounts places per region and rewrites any counter that has
// drifted from the authoritative places table. Returns the number of regions
// corrected.
func (s *service) Reconcile(ctx context.Context) (int64, error) {
	start := time.Now()
	corrected, err := s.regionRepo.RecountPlaces(ctx)
	s.metrics.ObserveDuration(reconcileJobName, time.Since(start))
	if err != nil {
		s.metrics.IncFailure(reconcileJobName)
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recount region places")
	}
	if corrected > 0 {
		s.metrics.AddDrift(reconcileJobName, int(corrected))
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"corrected": corrected}), "region place counters drifted")
	}
	return corrected, nil
}
