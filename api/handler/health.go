package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pricewatch/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Status degrades when the job queue is more than 80% full.
func Health(q *Quotes, engineName string, providers []string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		queued := q.Queued()

		status := "healthy"
		if capacity := q.Capacity(); capacity > 0 && queued > int(float64(capacity)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			Engine:    engineName,
			Providers: providers,
			Queued:    queued,
			Version:   Version,
		})
	}
}
