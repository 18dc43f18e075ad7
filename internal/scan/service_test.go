package scan

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/scanningworld/scanningworld-backend/internal/places"
	"github.com/scanningworld/scanningworld-backend/internal/users"
	"github.com/scanningworld/scanningworld-backend/pkg/db/models"
	pkgerrors "github.com/scanningworld/scanningworld-backend/pkg/errors"
	"github.com/scanningworld/scanningworld-backend/pkg/geo"
	"github.com/scanningworld/scanningworld-backend/pkg/logger"
	"github.com/scanningworld/scanningworld-backend/pkg/types"
)

const (
	placeLat    = 52.2297
	placeLng    = 21.0122
	placePoints = 15
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type testEnv struct {
	db       *gorm.DB
	svc      Service
	userRepo *users.Repository
	regionID uuid.UUID
	place    *models.Place
	user     *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:scan_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.Region{}, &models.User{}, &models.Place{},
		&models.ScannedPlace{}, &models.PointBalance{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	regionID := uuid.New()
	if err := db.Create(&models.Region{ID: regionID, Name: "region_" + uuid.NewString()}).Error; err != nil {
		t.Fatalf("seed region: %v", err)
	}
	place := &models.Place{
		ID:       uuid.New(),
		RegionID: regionID,
		Name:     "Old Town Gate",
		Lat:      placeLat,
		Lng:      placeLng,
		Points:   placePoints,
		Code:     "gatecode" + uuid.NewString()[:8],
	}
	if err := db.Create(place).Error; err != nil {
		t.Fatalf("seed place: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Phone:        "+48555" + uuid.NewString()[:6],
		Email:        "scan@example.com",
		PasswordHash: "hash",
		RegionID:     regionID,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	userRepo := users.NewRepository(db)
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(ServiceParams{
		PlaceRepo: places.NewRepository(db),
		UserRepo:  userRepo,
		ScanRepo:  NewRepository(db),
		Tx:        gormTxRunner{db: db},
		Logger:    logg,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	return &testEnv{
		db:       db,
		svc:      svc,
		userRepo: userRepo,
		regionID: regionID,
		place:    place,
		user:     user,
	}
}

func (e *testEnv) redeemAt(lat, lng float64) (*RedeemResponse, error) {
	return e.svc.RedeemCode(context.Background(), e.user.ID, RedeemRequest{
		Code:     e.place.Code,
		Location: &types.LatLng{Lat: lat, Lng: lng},
	})
}

func (e *testEnv) placeState(t *testing.T) *models.Place {
	t.Helper()
	var place models.Place
	if err := e.db.First(&place, "id = ?", e.place.ID).Error; err != nil {
		t.Fatalf("reload place: %v", err)
	}
	return &place
}

func TestRedeemAwardsPointsOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	res, err := env.redeemAt(placeLat, placeLng)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if res.PointsAwarded != placePoints {
		t.Fatalf("expected %d points awarded, got %d", placePoints, res.PointsAwarded)
	}
	if res.User.Points[env.regionID.String()] != placePoints {
		t.Fatalf("expected balance %d, got %v", placePoints, res.User.Points)
	}
	if len(res.User.ScannedPlaces) != 1 || res.User.ScannedPlaces[0] != env.place.ID {
		t.Fatalf("expected place in scan history, got %v", res.User.ScannedPlaces)
	}
	if got := env.placeState(t).ScanCount; got != 1 {
		t.Fatalf("expected scan count 1, got %d", got)
	}

	// Second attempt is rejected without touching balances or counters.
	_, err = env.redeemAt(placeLat, placeLng)
	if err == nil {
		t.Fatal("expected second redemption to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInvalidOperation {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := env.placeState(t).ScanCount; got != 1 {
		t.Fatalf("scan count moved after rejected redemption: %d", got)
	}
	projection, err := env.userRepo.Projection(context.Background(), env.user.ID)
	if err != nil {
		t.Fatalf("load projection: %v", err)
	}
	if projection.Points[env.regionID.String()] != placePoints {
		t.Fatalf("balance moved after rejected redemption: %v", projection.Points)
	}
}

func TestRedeemWrongCode(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.svc.RedeemCode(context.Background(), env.user.ID, RedeemRequest{
		Code:     "nosuchcode",
		Location: &types.LatLng{Lat: placeLat, Lng: placeLng},
	})
	if err == nil {
		t.Fatal("expected wrong code rejection")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRedeemRegionMismatch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	otherRegion := uuid.New()
	if err := env.db.Create(&models.Region{ID: otherRegion, Name: "other_" + uuid.NewString()}).Error; err != nil {
		t.Fatalf("seed region: %v", err)
	}
	if err := env.db.Model(&models.User{}).Where("id = ?", env.user.ID).
		UpdateColumn("region_id", otherRegion).Error; err != nil {
		t.Fatalf("move user: %v", err)
	}

	_, err := env.redeemAt(placeLat, placeLng)
	if err == nil {
		t.Fatal("expected region mismatch rejection")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInvalidOperation {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := env.placeState(t).ScanCount; got != 0 {
		t.Fatalf("scan count moved after rejected redemption: %d", got)
	}
}

func TestRedeemGeofenceBoundary(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	// A hair inside the fence succeeds against the stock radius.
	nearLat, nearLng := geo.PointAtDistanceNorth(placeLat, placeLng, DefaultMaxDistanceMeters-0.001)
	if _, err := env.redeemAt(nearLat, nearLng); err != nil {
		t.Fatalf("redeem inside fence: %v", err)
	}
}

func TestRedeemAtExactFenceDistance(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	edgeLat, edgeLng := geo.PointAtDistanceNorth(placeLat, placeLng, DefaultMaxDistanceMeters)
	// Pin the fence to the measured distance of the edge fixture so the
	// comparison runs at exact float equality rather than a round-trip
	// hair to either side of the radius. Standing on the line is allowed;
	// only strictly beyond it is rejected.
	fence := geo.Distance(edgeLat, edgeLng, placeLat, placeLng)

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(ServiceParams{
		PlaceRepo:         places.NewRepository(env.db),
		UserRepo:          env.userRepo,
		ScanRepo:          NewRepository(env.db),
		Tx:                gormTxRunner{db: env.db},
		Logger:            logg,
		MaxDistanceMeters: fence,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	if _, err := svc.RedeemCode(context.Background(), env.user.ID, RedeemRequest{
		Code:     env.place.Code,
		Location: &types.LatLng{Lat: edgeLat, Lng: edgeLng},
	}); err != nil {
		t.Fatalf("redeem at exact fence distance: %v", err)
	}
}

func TestRedeemOneMeterBeyondFence(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	farLat, farLng := geo.PointAtDistanceNorth(placeLat, placeLng, DefaultMaxDistanceMeters+1)
	_, err := env.redeemAt(farLat, farLng)
	if err == nil {
		t.Fatal("expected distance rejection")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInvalidOperation {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := env.placeState(t).ScanCount; got != 0 {
		t.Fatalf("scan count moved after rejected redemption: %d", got)
	}
}

func TestRedeemAtPrimeMeridian(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	// A zero longitude is a real position, not an absent one.
	meridianPlace := &models.Place{
		ID:       uuid.New(),
		RegionID: env.regionID,
		Name:     "Royal Observatory",
		Lat:      51.4772,
		Lng:      0,
		Points:   25,
		Code:     "obscode" + uuid.NewString()[:8],
	}
	if err := env.db.Create(meridianPlace).Error; err != nil {
		t.Fatalf("seed place: %v", err)
	}

	res, err := env.svc.RedeemCode(context.Background(), env.user.ID, RedeemRequest{
		Code:     meridianPlace.Code,
		Location: &types.LatLng{Lat: 51.4772, Lng: 0},
	})
	if err != nil {
		t.Fatalf("redeem at prime meridian: %v", err)
	}
	if res.PointsAwarded != 25 {
		t.Fatalf("expected 25 points awarded, got %d", res.PointsAwarded)
	}
}

func TestRedeemMissingLocation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.svc.RedeemCode(context.Background(), env.user.ID, RedeemRequest{Code: env.place.Code})
	if err == nil {
		t.Fatal("expected missing location rejection")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRedeemAccruesPerRegion(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.redeemAt(placeLat, placeLng); err != nil {
		t.Fatalf("redeem in first region: %v", err)
	}

	// The user moves to another region and redeems a place there.
	secondRegion := uuid.New()
	if err := env.db.Create(&models.Region{ID: secondRegion, Name: "second_" + uuid.NewString()}).Error; err != nil {
		t.Fatalf("seed region: %v", err)
	}
	secondPlace := &models.Place{
		ID:       uuid.New(),
		RegionID: secondRegion,
		Name:     "Cloth Hall",
		Lat:      50.0617,
		Lng:      19.9373,
		Points:   40,
		Code:     "hallcode" + uuid.NewString()[:8],
	}
	if err := env.db.Create(secondPlace).Error; err != nil {
		t.Fatalf("seed place: %v", err)
	}
	if err := env.userRepo.UpdateRegion(ctx, env.user.ID, secondRegion); err != nil {
		t.Fatalf("move user: %v", err)
	}

	res, err := env.svc.RedeemCode(ctx, env.user.ID, RedeemRequest{
		Code:     secondPlace.Code,
		Location: &types.LatLng{Lat: secondPlace.Lat, Lng: secondPlace.Lng},
	})
	if err != nil {
		t.Fatalf("redeem in second region: %v", err)
	}

	points := res.User.Points
	if points[env.regionID.String()] != placePoints {
		t.Fatalf("first region balance wrong: %v", points)
	}
	if points[secondRegion.String()] != 40 {
		t.Fatalf("second region balance wrong: %v", points)
	}
	if len(res.User.ScannedPlaces) != 2 {
		t.Fatalf("expected 2 scanned places, got %v", res.User.ScannedPlaces)
	}
}

func TestRedeemConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = env.redeemAt(placeLat, placeLng)
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeInvalidOperation {
			t.Fatalf("unexpected concurrent error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one winner, got %d", successes)
	}

	if got := env.placeState(t).ScanCount; got != 1 {
		t.Fatalf("expected scan count 1 after race, got %d", got)
	}
	projection, err := env.userRepo.Projection(context.Background(), env.user.ID)
	if err != nil {
		t.Fatalf("load projection: %v", err)
	}
	if projection.Points[env.regionID.String()] != placePoints {
		t.Fatalf("expected single point award, got %v", projection.Points)
	}
	if len(projection.ScannedPlaces) != 1 {
		t.Fatalf("expected single visit row, got %v", projection.ScannedPlaces)
	}
}
