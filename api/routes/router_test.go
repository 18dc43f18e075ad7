package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/scanningworld/scanningworld-backend/internal/auth"
	"github.com/scanningworld/scanningworld-backend/internal/places"
	"github.com/scanningworld/scanningworld-backend/internal/regions"
	"github.com/scanningworld/scanningworld-backend/internal/scan"
	"github.com/scanningworld/scanningworld-backend/internal/users"
	pkgAuth "github.com/scanningworld/scanningworld-backend/pkg/auth"
	"github.com/scanningworld/scanningworld-backend/pkg/config"
	"github.com/scanningworld/scanningworld-backend/pkg/db/models"
	"github.com/scanningworld/scanningworld-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Refresh(ctx context.Context, refreshToken string) (*auth.AuthResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (stubAuthService) RequestPasswordReset(ctx context.Context, req auth.PasswordResetRequest) error {
	return nil
}

func (stubAuthService) ResetPassword(ctx context.Context, req auth.PasswordResetConfirm) error {
	return nil
}

type stubRegionsService struct {
	created *regions.CreateRegionRequest
}

func (s *stubRegionsService) Create(ctx context.Context, req regions.CreateRegionRequest) (*regions.RegionDTO, error) {
	s.created = &req
	return &regions.RegionDTO{ID: uuid.New(), Name: req.Name}, nil
}

func (s *stubRegionsService) Get(ctx context.Context, id uuid.UUID) (*regions.RegionDTO, error) {
	return &regions.RegionDTO{ID: id}, nil
}

func (s *stubRegionsService) List(ctx context.Context) ([]regions.RegionDTO, error) {
	return []regions.RegionDTO{}, nil
}

func (s *stubRegionsService) Update(ctx context.Context, id uuid.UUID, req regions.CreateRegionRequest) (*regions.RegionDTO, error) {
	return &regions.RegionDTO{ID: id, Name: req.Name}, nil
}

func (s *stubRegionsService) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (s *stubRegionsService) Reconcile(ctx context.Context) (int64, error) {
	return 0, nil
}

type stubPlacesService struct{}

func (stubPlacesService) Create(ctx context.Context, req places.CreatePlaceRequest) (*places.PlaceAdminDTO, error) {
	panic("unimplemented")
}

func (stubPlacesService) Get(ctx context.Context, id uuid.UUID) (*places.PlaceDTO, error) {
	panic("unimplemented")
}

func (stubPlacesService) GetWithCode(ctx context.Context, id uuid.UUID) (*places.PlaceAdminDTO, error) {
	panic("unimplemented")
}

func (stubPlacesService) ListByRegion(ctx context.Context, regionID uuid.UUID) ([]places.PlaceDTO, error) {
	return []places.PlaceDTO{}, nil
}

func (stubPlacesService) Update(ctx context.Context, id uuid.UUID, req places.UpdatePlaceRequest) (*places.PlaceDTO, error) {
	panic("unimplemented")
}

func (stubPlacesService) Delete(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func (stubPlacesService) AddReview(ctx context.Context, placeID, userID uuid.UUID, req places.AddReviewRequest) (*places.ReviewDTO, error) {
	panic("unimplemented")
}

func (stubPlacesService) ListReviews(ctx context.Context, placeID uuid.UUID) ([]places.ReviewDTO, error) {
	return []places.ReviewDTO{}, nil
}

type stubScanService struct {
	lastUser uuid.UUID
	lastReq  scan.RedeemRequest
}

func (s *stubScanService) RedeemCode(ctx context.Context, userID uuid.UUID, req scan.RedeemRequest) (*scan.RedeemResponse, error) {
	s.lastUser = userID
	s.lastReq = req
	return &scan.RedeemResponse{PointsAwarded: 10}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "router-test-secret",
			Issuer:                 "scanningworld-test",
			ExpirationMinutes:      15,
			RefreshTokenTTLMinutes: 60,
			ResetTokenTTLMinutes:   30,
		},
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Region{}, &models.User{}, &models.Place{}, &models.ScannedPlace{}, &models.PointBalance{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

type testRouter struct {
	handler http.Handler
	regions *stubRegionsService
	scan    *stubScanService
	users   *users.Repository
}

func newTestRouter(t *testing.T, cfg *config.Config) *testRouter {
	t.Helper()
	regionsSvc := &stubRegionsService{}
	scanSvc := &stubScanService{}
	userRepo := users.NewRepository(newTestDB(t))

	handler := NewRouter(RouterParams{
		Config:      cfg,
		Logger:      nil,
		DB:          stubPinger{},
		AuthService: stubAuthService{},
		RegionsSvc:  regionsSvc,
		PlacesSvc:   stubPlacesService{},
		ScanSvc:     scanSvc,
		UserRepo:    userRepo,
	})
	return &testRouter{handler: handler, regions: regionsSvc, scan: scanSvc, users: userRepo}
}

func mintToken(t *testing.T, cfg *config.Config, userID, regionID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.TokenPayload{
		UserID:   userID,
		RegionID: regionID,
		JTI:      uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if env := resp.Header().Get("X-ScanningWorld-Env"); env != "test" {
		t.Fatalf("unexpected env header %q", env)
	}
}

func TestProtectedGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}
}

func TestProtectedGroupRejectsGarbageToken(t *testing.T) {
	router := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestUserMeWithValidJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)
	ctx := context.Background()

	regionID := uuid.New()
	created, err := router.users.Create(ctx, users.CreateUserDTO{
		Phone:        "+48123123123",
		Email:        "me@scanningworld.app",
		PasswordHash: "x",
		RegionID:     regionID,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, created.ID, regionID))
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data users.UserDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != created.ID {
		t.Fatalf("expected user %s, got %s", created.ID, envelope.Data.ID)
	}
	if envelope.Data.Phone != "+48123123123" {
		t.Fatalf("unexpected phone %q", envelope.Data.Phone)
	}
}

func TestScanRedeemPassesAuthenticatedUser(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	userID := uuid.New()
	body := `{"code":"abc123","location":{"lat":52.2297,"lng":21.0122}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, userID, uuid.New()))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if router.scan.lastUser != userID {
		t.Fatalf("expected user %s, got %s", userID, router.scan.lastUser)
	}
	if router.scan.lastReq.Code != "abc123" {
		t.Fatalf("unexpected code %q", router.scan.lastReq.Code)
	}
}

func TestScanRedeemAllowsZeroLongitude(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	// Greenwich sits on the prime meridian; lng 0 must survive validation.
	body := `{"code":"abc123","location":{"lat":51.4772,"lng":0}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, uuid.New(), uuid.New()))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	loc := router.scan.lastReq.Location
	if loc == nil || loc.Lat != 51.4772 || loc.Lng != 0 {
		t.Fatalf("unexpected location %+v", loc)
	}
}

func TestScanRedeemRejectsMissingLocation(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", strings.NewReader(`{"code":"abc123"}`))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, uuid.New(), uuid.New()))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}
}

func TestScanRedeemValidatesBody(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", strings.NewReader(`{"code":""}`))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, uuid.New(), uuid.New()))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}
}

func TestAdminRegionCreateRequiresJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	body := strings.NewReader(`{"name":"podkarpackie"}`)
	anon := httptest.NewRequest(http.MethodPost, "/api/admin/v1/regions/", body)
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, anon)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodPost, "/api/admin/v1/regions/", strings.NewReader(`{"name":"podkarpackie"}`))
	authed.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, uuid.New(), uuid.New()))
	resp = httptest.NewRecorder()
	router.handler.ServeHTTP(resp, authed)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if router.regions.created == nil || router.regions.created.Name != "podkarpackie" {
		t.Fatalf("region create not forwarded: %+v", router.regions.created)
	}
}
