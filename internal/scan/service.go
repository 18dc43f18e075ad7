package scan

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scanningworld/scanningworld-backend/internal/places"
	"github.com/scanningworld/scanningworld-backend/internal/users"
	"github.com/scanningworld/scanningworld-backend/pkg/db/models"
	pkgerrors "github.com/scanningworld/scanningworld-backend/pkg/errors"
	"github.com/scanningworld/scanningworld-backend/pkg/geo"
	"github.com/scanningworld/scanningworld-backend/pkg/logger"
	"github.com/scanningworld/scanningworld-backend/pkg/metrics"
)

// DefaultMaxDistanceMeters is the redemption geofence radius.
const DefaultMaxDistanceMeters = 1000.0

const scanLockTTL = 10 * time.Second

const (
	rejectWrongCode      = "wrong_code"
	rejectRegionMismatch = "region_mismatch"
	rejectTooFar         = "too_far"
	rejectAlreadyScanned = "already_scanned"
	rejectInProgress     = "in_progress"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// locker serializes concurrent redemption attempts for the same (user, place)
// pair before they reach the database. The database insert guard remains the
// source of truth; the lock only sheds obviously duplicate requests early.
type locker interface {
	AcquireScanLock(ctx context.Context, userID, placeID string, ttl time.Duration) (bool, error)
	ReleaseScanLock(ctx context.Context, userID, placeID string) error
}

// Service coordinates a full code redemption: lookup, eligibility checks, and
// the atomic visit-points-counter commit.
type Service interface {
	RedeemCode(ctx context.Context, userID uuid.UUID, req RedeemRequest) (*RedeemResponse, error)
}

// ServiceParams groups dependencies for the scan coordinator.
type ServiceParams struct {
	PlaceRepo *places.Repository
	UserRepo  *users.Repository
	ScanRepo  *Repository
	Tx        txRunner
	Lock      locker
	Logger    *logger.Logger
	Metrics   *metrics.ScanMetrics

	// MaxDistanceMeters overrides the geofence radius; zero means default.
	MaxDistanceMeters float64
}

type service struct {
	placeRepo   *places.Repository
	userRepo    *users.Repository
	scanRepo    *Repository
	tx          txRunner
	lock        locker
	logg        *logger.Logger
	metrics     *metrics.ScanMetrics
	maxDistance float64
}

// NewService builds the scan coordinator with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.PlaceRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "place repo is required")
	}
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user repo is required")
	}
	if params.ScanRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scan repo is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	maxDistance := params.MaxDistanceMeters
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistanceMeters
	}
	return &service{
		placeRepo:   params.PlaceRepo,
		userRepo:    params.UserRepo,
		scanRepo:    params.ScanRepo,
		tx:          params.Tx,
		lock:        params.Lock,
		logg:        params.Logger,
		metrics:     params.Metrics,
		maxDistance: maxDistance,
	}, nil
}

// RedeemCode validates the scanned code against the user's region, position,
// and visit history, then commits the visit record, the place scan counter,
// and the point award in one transaction.
func (s *service) RedeemCode(ctx context.Context, userID uuid.UUID, req RedeemRequest) (*RedeemResponse, error) {
	start := time.Now()

	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if req.Location == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location is required")
	}

	place, err := s.placeRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.IncRejected(rejectWrongCode)
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "wrong code")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup code")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":  user.ID.String(),
		"place_id": place.ID.String(),
	})
	regionLabel := place.RegionID.String()

	if user.RegionID != place.RegionID {
		s.metrics.IncRejected(rejectRegionMismatch)
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "place is outside your region")
	}

	visited, err := s.scanRepo.HasVisited(ctx, user.ID, place.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check visit history")
	}
	if visited {
		s.metrics.IncRejected(rejectAlreadyScanned)
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "place already scanned")
	}

	distance := geo.Distance(req.Location.Lat, req.Location.Lng, place.Lat, place.Lng)
	if distance > s.maxDistance {
		s.metrics.IncRejected(rejectTooFar)
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "you are too far from the place")
	}

	if s.lock != nil {
		acquired, lockErr := s.lock.AcquireScanLock(ctx, user.ID.String(), place.ID.String(), scanLockTTL)
		if lockErr != nil {
			// The lock is an optimization; the insert guard below still
			// serializes correctly without it.
			s.logg.Warn(ctx, "scan lock unavailable, relying on insert guard")
		} else if !acquired {
			s.metrics.IncRejected(rejectInProgress)
			return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "scan already in progress")
		} else {
			defer func() {
				if releaseErr := s.lock.ReleaseScanLock(ctx, user.ID.String(), place.ID.String()); releaseErr != nil {
					s.logg.Warn(ctx, "failed to release scan lock")
				}
			}()
		}
	}

	err = s.commitRedemption(ctx, user, place)
	s.metrics.ObserveDuration(regionLabel, time.Since(start))
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInvalidOperation {
			s.metrics.IncRejected(rejectAlreadyScanned)
		} else {
			s.metrics.IncFailure(regionLabel)
		}
		return nil, err
	}
	s.metrics.IncSuccess(regionLabel)

	projection, err := s.userRepo.Projection(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user projection")
	}

	s.logg.Info(ctx, "code redeemed")
	return &RedeemResponse{
		User:          projection,
		PlaceID:       place.ID,
		RegionID:      place.RegionID,
		PointsAwarded: place.Points,
	}, nil
}

// commitRedemption runs the atomic write: the conditional visit insert is the
// race guard, so the counter bump and point award only apply when this
// transaction won the insert.
func (s *service) commitRedemption(ctx context.Context, user *models.User, place *models.Place) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		scanRepo := s.scanRepo.WithTx(tx)

		inserted, err := scanRepo.InsertVisit(ctx, user.ID, place.ID)
		if err != nil {
			return err
		}
		if !inserted {
			return pkgerrors.New(pkgerrors.CodeInvalidOperation, "place already scanned")
		}

		if err := s.placeRepo.WithTx(tx).IncrementScanCount(ctx, place.ID); err != nil {
			return err
		}
		return scanRepo.AddPoints(ctx, user.ID, place.RegionID, place.Points)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit redemption")
	}
	return nil
}
