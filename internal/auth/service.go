package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scanningworld/scanningworld-backend/internal/regions"
	"github.com/scanningworld/scanningworld-backend/internal/users"
	pkgauth "github.com/scanningworld/scanningworld-backend/pkg/auth"
	"github.com/scanningworld/scanningworld-backend/pkg/config"
	"github.com/scanningworld/scanningworld-backend/pkg/db"
	pkgerrors "github.com/scanningworld/scanningworld-backend/pkg/errors"
	"github.com/scanningworld/scanningworld-backend/pkg/logger"
	"github.com/scanningworld/scanningworld-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// MailSender delivers password-reset tokens out of band.
type MailSender interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error
	ResetPassword(ctx context.Context, req PasswordResetConfirm) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       *users.Repository
	RegionRepo     *regions.Repository
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Mail           MailSender
	Logger         *logger.Logger
}

type service struct {
	userRepo   *users.Repository
	regionRepo *regions.Repository
	jwtCfg     config.JWTConfig
	pwCfg      config.PasswordConfig
	mail       MailSender
	logg       *logger.Logger
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user repo is required")
	}
	if params.RegionRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region repo is required")
	}
	if params.Mail == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mail sender is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		userRepo:   params.UserRepo,
		regionRepo: params.RegionRepo,
		jwtCfg:     params.JWTConfig,
		pwCfg:      params.PasswordConfig,
		mail:       params.Mail,
		logg:       params.Logger,
	}, nil
}

// Register creates the account and signs the user in.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	phone := strings.TrimSpace(req.Phone)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if phone == "" || email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone, email, and password are required")
	}
	if req.RegionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region id is required")
	}
	if _, err := s.regionRepo.FindByID(ctx, req.RegionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "region not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load region")
	}

	passwordHash, err := security.HashPassword(req.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.userRepo.Create(ctx, users.CreateUserDTO{
		Phone:        phone,
		Email:        email,
		PasswordHash: passwordHash,
		RegionID:     req.RegionID,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "phone already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	return s.issueSession(ctx, user.ID, user.RegionID)
}

// Login verifies the phone and password pair and signs the user in.
func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	phone := strings.TrimSpace(req.Phone)
	if phone == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	user, err := s.userRepo.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	valid, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	return s.issueSession(ctx, user.ID, user.RegionID)
}

// Refresh rotates the session: the presented refresh token is checked against
// the stored hash, then replaced so each refresh token works exactly once.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := pkgauth.ParseTokenOfKind(s.jwtCfg, refreshToken, pkgauth.TokenKindRefresh)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, invalidCredentialsMessage)
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user.RefreshTokenHash == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	match, err := security.VerifyPassword(refreshToken, *user.RefreshTokenHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify refresh token")
	}
	if !match {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	return s.issueSession(ctx, user.ID, user.RegionID)
}

// Logout invalidates the stored refresh token.
func (s *service) Logout(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.userRepo.UpdateRefreshTokenHash(ctx, userID, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear refresh token")
	}
	return nil
}

// RequestPasswordReset mints a reset token and mails it to the account's
// address. Unknown phones return success so the endpoint does not leak which
// numbers exist.
func (s *service) RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error {
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}

	user, err := s.userRepo.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	token, err := pkgauth.MintResetToken(s.jwtCfg, time.Now().UTC(), pkgauth.TokenPayload{
		UserID:   user.ID,
		RegionID: user.RegionID,
		JTI:      uuid.NewString(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint reset token")
	}
	tokenHash, err := security.HashPassword(token, s.pwCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash reset token")
	}
	if err := s.userRepo.UpdatePasswordResetTokenHash(ctx, user.ID, &tokenHash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reset token")
	}

	if err := s.mail.SendPasswordReset(ctx, user.Email, token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send reset email")
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "password reset requested")
	return nil
}

// ResetPassword consumes a reset token and replaces the password. All
// outstanding sessions are invalidated.
func (s *service) ResetPassword(ctx context.Context, req PasswordResetConfirm) error {
	if req.NewPassword == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password is required")
	}
	claims, err := pkgauth.ParseTokenOfKind(s.jwtCfg, req.Token, pkgauth.TokenKindReset)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid reset token")
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid reset token")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user.PasswordResetTokenHash == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid reset token")
	}
	match, err := security.VerifyPassword(req.Token, *user.PasswordResetTokenHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify reset token")
	}
	if !match {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid reset token")
	}

	passwordHash, err := security.HashPassword(req.NewPassword, s.pwCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, passwordHash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store password")
	}
	if err := s.userRepo.UpdatePasswordResetTokenHash(ctx, user.ID, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear reset token")
	}
	if err := s.userRepo.UpdateRefreshTokenHash(ctx, user.ID, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalidate sessions")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "password reset completed")
	return nil
}

// issueSession mints a fresh token pair and stores the refresh token hash.
func (s *service) issueSession(ctx context.Context, userID, regionID uuid.UUID) (*AuthResponse, error) {
	now := time.Now().UTC()
	payload := pkgauth.TokenPayload{
		UserID:   userID,
		RegionID: regionID,
		JTI:      uuid.NewString(),
	}

	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, now, payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	refreshToken, err := pkgauth.MintRefreshToken(s.jwtCfg, now, payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint refresh token")
	}

	refreshHash, err := security.HashPassword(refreshToken, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash refresh token")
	}
	if err := s.userRepo.UpdateRefreshTokenHash(ctx, userID, &refreshHash); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}

	projection, err := s.userRepo.Projection(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user projection")
	}

	return &AuthResponse{
		Tokens: TokenPair{AccessToken: accessToken, RefreshToken: refreshToken},
		User:   projection,
	}, nil
}
