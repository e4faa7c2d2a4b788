package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/imageboard/board"
	"github.com/use-agent/imageboard/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Pings the CMS and degrades status when it does not answer.
func Health(b *board.Service, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status, cms := "healthy", "reachable"
		if err := b.Ping(ctx); err != nil {
			status, cms = "degraded", "unreachable"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:     status,
			Uptime:     time.Since(startTime).Round(time.Second).String(),
			CMS:        cms,
			CacheStats: b.CacheStats(),
			Version:    Version,
		})
	}
}
