package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathomrtc/signalcore/internal/signaling"
)

type fakeDispatcher struct {
	stats signaling.Stats
}

func (f fakeDispatcher) Stats() signaling.Stats { return f.stats }

func TestLiveness(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewHandler(nil, 0)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/health/live", nil)

	handler.Liveness(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alive")
	assert.Contains(t, w.Body.String(), "timestamp")
}

func TestReadiness_NilDispatcherIsUnhealthy(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewHandler(nil, 1024)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/health/ready", nil)

	handler.Readiness(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unavailable")
}

func TestReadiness_RunningDispatcherWithHeadroom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewHandler(fakeDispatcher{stats: signaling.Stats{Running: true, QueueDepth: 3}}, 1024)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/health/ready", nil)

	handler.Readiness(c)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "ready")
	assert.Contains(t, body, "dispatcher")
	assert.Contains(t, body, "ingress_queue")
}

func TestReadiness_StoppedDispatcherIsUnhealthy(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewHandler(fakeDispatcher{stats: signaling.Stats{Running: false}}, 1024)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/health/ready", nil)

	handler.Readiness(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadiness_QueueAtCapacityIsBackpressured(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewHandler(fakeDispatcher{stats: signaling.Stats{Running: true, QueueDepth: 1024}}, 1024)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/health/ready", nil)

	handler.Readiness(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "backpressured")
}

func TestLivenessEndpoint_AlwaysSucceedsRegardlessOfDispatcher(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewHandler(fakeDispatcher{stats: signaling.Stats{Running: false}}, 1024)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/health/live", nil)

	handler.Liveness(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alive")
}
