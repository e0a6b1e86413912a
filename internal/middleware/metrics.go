package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ecom-api/internal/service"
)

// Metrics records per-request duration and count. The route template is
// used as the path label so /orders/:id stays one series instead of one
// per order; unmatched requests fall back to the raw path.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
