package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ecom-api/internal/models"
	appErrors "github.com/noah-isme/ecom-api/pkg/errors"
)

// genericAuthFailure is the single message returned for every
// authentication-outcome failure on the refresh path. Revoked, expired,
// reused and unknown credentials are indistinguishable to a caller.
const genericAuthFailure = "invalid or expired refresh token"

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) (bool, error)
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
}

// AuthService issues, rotates and revokes access/refresh credential
// pairs. Rotation is the only path that mutates an existing refresh
// record, and it does so through the store's conditional revoke.
type AuthService struct {
	repo      authUserRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, validator: validate, logger: logger, config: config}
}

// IssuedPair couples a fresh access token with the client refresh
// credential minted alongside it.
type IssuedPair struct {
	AccessToken       string
	ClientCredential  string
	AccessTokenExpiry time.Duration
}

// Login authenticates a user and issues a new credential pair.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*IssuedPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	pair, err := s.issuePair(ctx, user, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return pair, nil
}

// Refresh validates the presented credential and rotates it: the old
// record is revoked and a new pair issued as one logical transition.
// No step before the atomic revoke has any observable side effect, so
// an abandoned attempt can only leave "revoked but not reissued", which
// is safe for the client to retry with a fresh login.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshRequest) (*IssuedPair, error) {
	_, signedToken, err := splitCredential(req.RefreshToken)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMalformedCredential.Code, appErrors.ErrMalformedCredential.Status, appErrors.ErrMalformedCredential.Message)
	}

	if _, err := s.decodeToken(signedToken); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, genericAuthFailure)
	}

	hash := fingerprintCredential(req.RefreshToken)
	stored, err := s.repo.FindRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(ErrTokenNotFound, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, genericAuthFailure)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch refresh token")
	}

	now := time.Now().UTC()
	if now.After(stored.ExpiresAt) {
		// Expiry wins even over an unrevoked record; no mutation needed.
		return nil, appErrors.Wrap(ErrTokenExpired, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, genericAuthFailure)
	}
	if stored.Revoked {
		return nil, appErrors.Wrap(ErrTokenRevoked, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, genericAuthFailure)
	}

	revoked, err := s.repo.RevokeRefreshToken(ctx, stored.ID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh token")
	}
	if !revoked {
		// Lost the race against a concurrent rotation of the same
		// credential. The winner already issued a replacement.
		return nil, appErrors.Wrap(ErrTokenReused, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, genericAuthFailure)
	}

	user, err := s.repo.FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(ErrTokenNotFound, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, genericAuthFailure)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	pair, err := s.issuePair(ctx, user, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	s.logger.Info("refresh token rotated", zap.String("user_id", user.ID))
	return pair, nil
}

// Logout revokes the record matching the presented credential. A
// credential with no matching record reports revoked=false rather than
// an error, so logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, rawCredential string) (bool, error) {
	hash := fingerprintCredential(rawCredential)
	stored, err := s.repo.FindRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch refresh token")
	}

	revoked, err := s.repo.RevokeRefreshToken(ctx, stored.ID, time.Now().UTC())
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh token")
	}
	return revoked, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims, err := s.decodeToken(tokenString)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	return claims, nil
}

// issuePair mints an access token, a signed refresh token and an opaque
// secret, persists the fingerprint of the composed credential, and
// returns the pair. Used by both login and rotation.
func (s *AuthService) issuePair(ctx context.Context, user *models.User, ip, userAgent string) (*IssuedPair, error) {
	accessToken, err := s.signToken(user, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	refreshToken, err := s.signToken(user, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	opaque, err := newOpaqueSecret()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh secret")
	}

	credential := composeCredential(opaque, refreshToken)
	record := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: fingerprintCredential(credential),
		ExpiresAt: time.Now().UTC().Add(s.config.RefreshTokenExpiry),
		CreatedAt: time.Now().UTC(),
		IPAddress: ip,
		UserAgent: userAgent,
	}

	if err := s.repo.CreateRefreshToken(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}

	return &IssuedPair{
		AccessToken:       accessToken,
		ClientCredential:  credential,
		AccessTokenExpiry: s.config.AccessTokenExpiry,
	}, nil
}

func (s *AuthService) signToken(user *models.User, access bool) (string, error) {
	issuedAt := time.Now().UTC()
	ttl := s.config.RefreshTokenExpiry
	claims := &models.JWTClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	if access {
		ttl = s.config.AccessTokenExpiry
		claims.Email = user.Email
	}
	claims.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

// decodeToken verifies signature, structure and expiry in one step.
// Every failure mode collapses into the same pair of sentinels so the
// response gives no oracle about which check failed.
func (s *AuthService) decodeToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
