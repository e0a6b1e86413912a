package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/ecom-api/internal/service"
	appErrors "github.com/noah-isme/ecom-api/pkg/errors"
	"github.com/noah-isme/ecom-api/pkg/ratelimit"
	"github.com/noah-isme/ecom-api/pkg/response"
)

// RateLimit gates a route group with a fixed-window budget per client
// network address. Exhausted budget answers 429; an unreachable backend
// without local fallback fails closed with a server error.
func RateLimit(limiter *ratelimit.Limiter, metrics *service.MetricsService, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		err := limiter.Check(c.Request.Context(), c.ClientIP())
		if err == nil {
			c.Next()
			return
		}

		if errors.Is(err, ratelimit.ErrLimited) {
			metrics.RecordRateLimited()
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}

		logger.Error("rate limit check failed", zap.Error(err))
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message))
		c.Abort()
	}
}
