// Package health exposes liveness and readiness probes for the signaling core.
package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fathomrtc/signalcore/internal/signaling"
)

// Dispatcher is satisfied by *signaling.Dispatcher.
type Dispatcher interface {
	Stats() signaling.Stats
}

// Handler manages health check endpoints
type Handler struct {
	dispatcher    Dispatcher
	queueCapacity int
}

// NewHandler creates a new health check handler. queueCapacity is the
// ingress queue capacity the dispatcher was configured with; a queue at or
// above it is treated as backpressured rather than ready.
func NewHandler(dispatcher Dispatcher, queueCapacity int) *Handler {
	return &Handler{dispatcher: dispatcher, queueCapacity: queueCapacity}
}

// LivenessResponse represents the liveness probe response
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Liveness handles the liveness probe endpoint
// GET /health/live
// Returns 200 if the process is alive (no dependency checks)
func (h *Handler) Liveness(c *gin.Context) {
	response := LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, response)
}

// Readiness handles the readiness probe endpoint
// GET /health/ready
// Returns 200 only if the dispatcher loop is running and the ingress queue
// has headroom. Returns 503 otherwise.
func (h *Handler) Readiness(c *gin.Context) {
	checks := make(map[string]string)
	allHealthy := true

	dispatcherStatus := "healthy"
	queueStatus := "healthy"

	if h.dispatcher == nil {
		dispatcherStatus = "unhealthy"
		allHealthy = false
	} else {
		stats := h.dispatcher.Stats()
		if !stats.Running {
			dispatcherStatus = "unhealthy"
			allHealthy = false
		}
		if h.queueCapacity > 0 && stats.QueueDepth >= h.queueCapacity {
			queueStatus = "backpressured"
			allHealthy = false
		}
	}

	checks["dispatcher"] = dispatcherStatus
	checks["ingress_queue"] = queueStatus

	status := "ready"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadinessResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(statusCode, response)
}

// MarshalJSON implements custom JSON marshaling for better formatting
func (r ReadinessResponse) MarshalJSON() ([]byte, error) {
	type Alias ReadinessResponse
	return json.Marshal(&struct {
		*Alias
	}{
		Alias: (*Alias)(&r),
	})
}
