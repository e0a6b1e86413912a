package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecom-api/internal/models"
	"github.com/noah-isme/ecom-api/internal/service"
)

type noopAuthRepo struct{}

func (noopAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, sql.ErrNoRows
}
func (noopAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return nil, sql.ErrNoRows
}
func (noopAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return nil
}
func (noopAuthRepo) FindRefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	return nil, sql.ErrNoRows
}
func (noopAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) (bool, error) {
	return false, nil
}
func (noopAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func newGuardedRouter(t *testing.T) (*gin.Engine, *service.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authSvc := service.NewAuthService(noopAuthRepo{}, nil, nil, service.AuthConfig{
		Secret:            "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "ecom-api",
	})

	router := gin.New()
	router.GET("/protected", JWT(authSvc), func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.String(http.StatusOK, claims.UserID)
	})
	return router, authSvc
}

func TestJWTMissingHeader(t *testing.T) {
	router, _ := newGuardedRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMalformedHeader(t *testing.T) {
	router, _ := newGuardedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTInvalidToken(t *testing.T) {
	router, _ := newGuardedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTValidTokenPasses(t *testing.T) {
	router, _ := newGuardedRouter(t)

	claims := &models.JWTClaims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())
}
