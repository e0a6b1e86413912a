package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecom-api/internal/service"
	"github.com/noah-isme/ecom-api/pkg/config"
	appErrors "github.com/noah-isme/ecom-api/pkg/errors"
	"github.com/noah-isme/ecom-api/pkg/ratelimit"
)

func newThrottledRouter(max int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	limiter := ratelimit.New(ratelimit.NewMemoryCounter(), config.RateLimitConfig{
		Window: time.Minute,
		Max:    max,
	}, nil)

	router := gin.New()
	router.GET("/ping", RateLimit(limiter, service.NewMetricsService(), nil), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return router
}

func TestRateLimitAllowsWithinBudget(t *testing.T) {
	router := newThrottledRouter(3)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
}

func TestRateLimitRejectsOverBudget(t *testing.T) {
	router := newThrottledRouter(2)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, appErrors.ErrRateLimited.Code, body.Error.Code)
}
