package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/archive-api/internal/models"
	"github.com/noah-isme/archive-api/internal/service"
	"github.com/noah-isme/archive-api/pkg/jobs"
	"github.com/noah-isme/archive-api/pkg/response"
)

type queueStats interface {
	Stats() jobs.Stats
}

type metricsSummary struct {
	models.SystemMetrics
	Jobs *jobs.Stats `json:"jobs,omitempty"`
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	queue   queueStats
}

// NewMetricsHandler constructs a metrics handler. queue may be nil.
func NewMetricsHandler(metrics *service.MetricsService, queue queueStats) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, queue: queue}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Snapshot godoc
// @Summary Archive counters, uptime and background job stats
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /metrics/summary [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	if h.metrics == nil {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	summary := metricsSummary{SystemMetrics: h.metrics.Snapshot()}
	if h.queue != nil {
		stats := h.queue.Stats()
		summary.Jobs = &stats
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Health responds with a generic OK payload for readiness/liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
