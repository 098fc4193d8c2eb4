package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PoolStats reports occupancy of the automation worker pool.
type PoolStats interface {
	Capacity() int64
	ActiveJobs() int64
}

type HealthController struct {
	pool PoolStats
}

func NewHealthController(pool PoolStats) *HealthController {
	return &HealthController{pool: pool}
}

// Health handles GET /health.
func (hc *HealthController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"active_jobs": hc.pool.ActiveJobs(),
		"capacity":    hc.pool.Capacity(),
	})
}
