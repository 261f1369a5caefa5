package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmailAndRole(ctx context.Context, email string, role models.Role) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type revocationLedger interface {
	Revoke(ctx context.Context, jti string, now time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type revocationCache interface {
	MarkRevoked(ctx context.Context, jti string, ttl time.Duration)
	IsRevoked(ctx context.Context, jti string) (revoked bool, ok bool)
}

// AuthConfig defines configuration for token issuance.
type AuthConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AuthService issues, verifies and revokes access tokens, and serves the
// login/current-user/logout flows.
type AuthService struct {
	users     authUserRepository
	ledger    revocationLedger
	cache     revocationCache
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, ledger revocationLedger, cache revocationCache, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Expiration <= 0 {
		config.Expiration = time.Hour
	}
	return &AuthService{users: users, ledger: ledger, cache: cache, validator: validate, logger: logger, config: config}
}

// Login authenticates a user and returns an issued token. The role is part
// of the credential tuple: a matching email with a different role is treated
// as unknown.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "email, password, and role are required")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := models.Role(strings.ToLower(strings.TrimSpace(req.Role)))

	user, err := s.users.FindByEmailAndRole(ctx, email, role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "no user found with this email and role")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "incorrect password")
	}

	token, _, err := s.IssueToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.Expiration.Seconds()),
		User:        user.ToProfile(),
	}, nil
}

// CurrentUser returns the caller's profile. A valid token whose account has
// vanished reports not-found, matching the profile endpoint contract.
func (s *AuthService) CurrentUser(ctx context.Context, userID int64) (*models.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	profile := user.ToProfile()
	return &profile, nil
}

// Logout revokes the presented token by recording its jti in the blocklist.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims) error {
	now := time.Now().UTC()
	if err := s.ledger.Revoke(ctx, claims.ID, now); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke token")
	}
	if s.cache != nil && claims.ExpiresAt != nil {
		s.cache.MarkRevoked(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
	}
	s.logger.Info("token revoked", zap.Int64("user_id", claims.UserID), zap.String("jti", claims.ID))
	return nil
}

// IssueToken mints a signed token bound to the user with a fresh jti.
// Issuance is stateless; only revocation leaves a durable trace.
func (s *AuthService) IssueToken(user *models.User) (string, *models.JWTClaims, error) {
	issuedAt := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   fmt.Sprintf("%d", user.ID),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.Expiration)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ValidateToken parses and validates an access token returning the claims.
// Expiry and malformed tokens both map to unauthorized, with distinct
// messages.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrTokenExpired.Code, appErrors.ErrTokenExpired.Status, appErrors.ErrTokenExpired.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token missing jti")
	}

	return claims, nil
}

// IsRevoked reports whether the token identifier has been revoked. The Redis
// fast path only answers affirmatively; any miss falls through to the ledger.
func (s *AuthService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s.cache != nil {
		if revoked, ok := s.cache.IsRevoked(ctx, jti); ok {
			return revoked, nil
		}
	}
	revoked, err := s.ledger.IsRevoked(ctx, jti)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check token revocation")
	}
	return revoked, nil
}
