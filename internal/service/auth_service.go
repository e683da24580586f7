package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked due to multiple failed login attempts")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const maxFailedAttempts = 5

const lockDuration = 15 * time.Minute

type AuthService struct {
	userRepo   UserRepository
	jwtManager *auth.JWTManager
	auditSvc   *AuditService
	metrics    *metrics.Collector
	log        *zap.Logger
}

func NewAuthService(userRepo UserRepository, jwtManager *auth.JWTManager, auditSvc *AuditService, m *metrics.Collector, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, jwtManager: jwtManager, auditSvc: auditSvc, metrics: m, log: log}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("looking up user: %w", err)
		}
		// Same bcrypt cost as a real check so timing does not reveal unknown emails.
		auth.EqualizeTiming(password)
		s.metrics.LoginFailuresTotal.Inc()
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if user.IsLocked() {
		return nil, ErrAccountLocked
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		s.log.Error("stored password hash is unreadable", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, ErrInvalidCredentials
	}
	if !ok {
		s.metrics.LoginFailuresTotal.Inc()
		locked, err := s.userRepo.RecordLoginFailure(ctx, user.ID, maxFailedAttempts, lockDuration)
		if err != nil {
			s.log.Error("failed to record login failure", zap.Error(err))
		}
		s.log.Warn("failed login attempt", zap.String("user_id", user.ID.String()), zap.Bool("locked", locked))
		if locked {
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.userRepo.RecordLoginSuccess(ctx, user.ID, time.Now().UTC()); err != nil {
		s.log.Error("failed to record login success", zap.Error(err))
	}

	pair, err := s.jwtManager.GenerateTokenPair(claimsFor(user))
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	actorCtx := domain.WithActor(ctx, withUser(ctx, user))
	s.auditSvc.Record(actorCtx, domain.ActionLogin, "user", user.ID.String(), nil)
	s.log.Info("user logged in", zap.String("user_id", user.ID.String()))

	return pair, nil
}

// Refresh issues a new token pair from a valid refresh token. The user must
// still exist and be active, and a password change revokes every refresh
// token issued before it.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	rc, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, rc.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	// iat has second precision.
	if rc.IssuedAt.Before(user.PasswordChangedAt.Truncate(time.Second)) {
		return nil, ErrInvalidToken
	}

	return s.jwtManager.GenerateTokenPair(claimsFor(user))
}

// Authenticate resolves an access token to its claims.
func (s *AuthService) Authenticate(accessToken string) (*domain.Claims, error) {
	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	return user, nil
}

// ChangePassword updates a user's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := auth.CheckPassword(user.PasswordHash, currentPassword)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	if err := auth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, hash, time.Now().UTC()); err != nil {
		return err
	}

	s.auditSvc.Record(ctx, domain.ActionUpdate, "user", userID.String(), map[string]any{"password": "changed"})
	return nil
}

func claimsFor(u *domain.User) *domain.Claims {
	return &domain.Claims{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// withUser keeps the request metadata of any actor already on ctx and sets
// the identity to u.
func withUser(ctx context.Context, u *domain.User) domain.Actor {
	a, _ := domain.ActorFromContext(ctx)
	a.UserID = u.ID
	a.Role = u.Role
	return a
}
