package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Access and refresh tokens are told apart by audience. A token presented
// to the wrong validator fails the audience check.
const (
	accessAudience  = "carepoint-api"
	refreshAudience = "carepoint-refresh"
)

// clockSkew is backdated into nbf so a token is usable on a peer whose clock runs slightly behind.
const clockSkew = 10 * time.Second

var (
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenInvalid      = errors.New("token is invalid")
	ErrTokenTypeMismatch = errors.New("wrong token type")
)

type accessClaims struct {
	jwt.RegisteredClaims
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// RefreshClaims identify the account only. Email and role are reloaded from
// the user record when the pair is reissued.
type RefreshClaims struct {
	UserID   uuid.UUID
	IssuedAt time.Time
}

type JWTManager struct {
	key        []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewJWTManager(cfg config.JWTConfig) *JWTManager {
	return &JWTManager{
		key:        []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
	}
}

func (m *JWTManager) GenerateTokenPair(claims *domain.Claims) (*domain.TokenPair, error) {
	access := accessClaims{
		RegisteredClaims: m.registered(claims.UserID, accessAudience, m.accessTTL),
		Email:            claims.Email,
		Role:             claims.Role,
	}
	accessToken, err := m.sign(access)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	refreshToken, err := m.sign(m.registered(claims.UserID, refreshAudience, m.refreshTTL))
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    access.ExpiresAt.Time,
		TokenType:    "Bearer",
	}, nil
}

func (m *JWTManager) ValidateAccessToken(raw string) (*domain.Claims, error) {
	var c accessClaims
	if err := m.parse(raw, accessAudience, &c); err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil || !c.Role.IsValid() {
		return nil, ErrTokenInvalid
	}
	return &domain.Claims{UserID: userID, Email: c.Email, Role: c.Role}, nil
}

func (m *JWTManager) ValidateRefreshToken(raw string) (*RefreshClaims, error) {
	var c jwt.RegisteredClaims
	if err := m.parse(raw, refreshAudience, &c); err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil || c.IssuedAt == nil {
		return nil, ErrTokenInvalid
	}
	return &RefreshClaims{UserID: userID, IssuedAt: c.IssuedAt.Time}, nil
}

func (m *JWTManager) registered(subject uuid.UUID, audience string, ttl time.Duration) jwt.RegisteredClaims {
	now := m.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    m.issuer,
		Subject:   subject.String(),
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-clockSkew)),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (m *JWTManager) sign(c jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.key)
}

// parse verifies signature, issuer, audience and lifetime into dst and folds
// the library's errors into this package's three.
func (m *JWTManager) parse(raw, audience string, dst jwt.Claims) error {
	token, err := jwt.ParseWithClaims(raw, dst,
		func(*jwt.Token) (any, error) { return m.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrTokenTypeMismatch
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case err != nil, !token.Valid:
		return ErrTokenInvalid
	}
	return nil
}
