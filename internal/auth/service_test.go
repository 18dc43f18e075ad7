package auth

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/scanningworld/scanningworld-backend/internal/regions"
	"github.com/scanningworld/scanningworld-backend/internal/users"
	pkgauth "github.com/scanningworld/scanningworld-backend/pkg/auth"
	"github.com/scanningworld/scanningworld-backend/pkg/config"
	"github.com/scanningworld/scanningworld-backend/pkg/db/models"
	pkgerrors "github.com/scanningworld/scanningworld-backend/pkg/errors"
	"github.com/scanningworld/scanningworld-backend/pkg/logger"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "auth-test-secret",
		Issuer:                 "scanningworld-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
		ResetTokenTTLMinutes:   30,
	}
}

// Low-cost argon parameters keep the hashing in tests fast.
func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
}

type recordingMailSender struct {
	emails []string
	tokens []string
}

func (m *recordingMailSender) SendPasswordReset(ctx context.Context, email, token string) error {
	m.emails = append(m.emails, email)
	m.tokens = append(m.tokens, token)
	return nil
}

type testEnv struct {
	svc      Service
	userRepo *users.Repository
	mail     *recordingMailSender
	regionID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Region{}, &models.User{},
		&models.ScannedPlace{}, &models.PointBalance{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	regionRepo := regions.NewRepository(db)
	region, err := regionRepo.Create(context.Background(), "region_"+uuid.NewString())
	if err != nil {
		t.Fatalf("seed region: %v", err)
	}

	userRepo := users.NewRepository(db)
	mail := &recordingMailSender{}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(ServiceParams{
		UserRepo:       userRepo,
		RegionRepo:     regionRepo,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
		Mail:           mail,
		Logger:         logg,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	return &testEnv{svc: svc, userRepo: userRepo, mail: mail, regionID: region.ID}
}

func (e *testEnv) register(t *testing.T, phone string) *AuthResponse {
	t.Helper()
	res, err := e.svc.Register(context.Background(), RegisterRequest{
		Phone:    phone,
		Email:    "user@example.com",
		Password: "correct horse",
		RegionID: e.regionID,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return res
}

func TestRegisterIssuesSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	res := env.register(t, "+48555100100")

	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatal("expected minted token pair")
	}
	if res.User.RegionID != env.regionID {
		t.Fatalf("unexpected region %s", res.User.RegionID)
	}

	claims, err := pkgauth.ParseTokenOfKind(testJWTConfig(), res.Tokens.AccessToken, pkgauth.TokenKindAccess)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != res.User.ID {
		t.Fatalf("token user mismatch: %s vs %s", claims.UserID, res.User.ID)
	}
}

func TestRegisterDuplicatePhone(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t, "+48555100101")

	_, err := env.svc.Register(context.Background(), RegisterRequest{
		Phone:    "+48555100101",
		Email:    "other@example.com",
		Password: "correct horse",
		RegionID: env.regionID,
	})
	if err == nil {
		t.Fatal("expected conflict for duplicate phone")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegisterUnknownRegion(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.svc.Register(context.Background(), RegisterRequest{
		Phone:    "+48555100102",
		Email:    "user@example.com",
		Password: "correct horse",
		RegionID: uuid.New(),
	})
	if err == nil {
		t.Fatal("expected not found for unknown region")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoginRoundTrip(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t, "+48555100103")
	ctx := context.Background()

	res, err := env.svc.Login(ctx, LoginRequest{Phone: "+48555100103", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Tokens.AccessToken == "" {
		t.Fatal("expected access token")
	}

	_, err = env.svc.Login(ctx, LoginRequest{Phone: "+48555100103", Password: "wrong"})
	if err == nil {
		t.Fatal("expected rejection for wrong password")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = env.svc.Login(ctx, LoginRequest{Phone: "+48999999999", Password: "correct horse"})
	if err == nil {
		t.Fatal("expected rejection for unknown phone")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	first := env.register(t, "+48555100104")
	ctx := context.Background()

	second, err := env.svc.Refresh(ctx, first.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.Tokens.RefreshToken == first.Tokens.RefreshToken {
		t.Fatal("expected rotated refresh token")
	}

	// The consumed token no longer matches the stored hash.
	if _, err := env.svc.Refresh(ctx, first.Tokens.RefreshToken); err == nil {
		t.Fatal("expected stale refresh token rejection")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	res := env.register(t, "+48555100105")

	_, err := env.svc.Refresh(context.Background(), res.Tokens.AccessToken)
	if err == nil {
		t.Fatal("expected access token to be rejected as refresh")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLogoutInvalidatesRefresh(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	res := env.register(t, "+48555100106")
	ctx := context.Background()

	if err := env.svc.Logout(ctx, res.User.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := env.svc.Refresh(ctx, res.Tokens.RefreshToken); err == nil {
		t.Fatal("expected refresh to fail after logout")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t, "+48555100107")
	ctx := context.Background()

	if err := env.svc.RequestPasswordReset(ctx, PasswordResetRequest{Phone: "+48555100107"}); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if len(env.mail.tokens) != 1 {
		t.Fatalf("expected one reset email, got %d", len(env.mail.tokens))
	}

	token := env.mail.tokens[0]
	if err := env.svc.ResetPassword(ctx, PasswordResetConfirm{Token: token, NewPassword: "new password 1"}); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	// Old password no longer works, new one does.
	if _, err := env.svc.Login(ctx, LoginRequest{Phone: "+48555100107", Password: "correct horse"}); err == nil {
		t.Fatal("expected old password to be rejected")
	}
	if _, err := env.svc.Login(ctx, LoginRequest{Phone: "+48555100107", Password: "new password 1"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	// The token is single use.
	if err := env.svc.ResetPassword(ctx, PasswordResetConfirm{Token: token, NewPassword: "another pass"}); err == nil {
		t.Fatal("expected consumed reset token to be rejected")
	}
}

func TestPasswordResetUnknownPhoneSilent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	if err := env.svc.RequestPasswordReset(context.Background(), PasswordResetRequest{Phone: "+48000000000"}); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if len(env.mail.emails) != 0 {
		t.Fatalf("expected no email for unknown phone, got %d", len(env.mail.emails))
	}
}
