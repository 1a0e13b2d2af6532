package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(m *Monitor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(m.Middleware())
	m.RegisterRoutes(router)
	router.GET("/tasks/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestMonitor_MiddlewareCountsByRoute(t *testing.T) {
	m := NewMonitor()
	router := newTestRouter(m)

	get(router, "/tasks/1")
	get(router, "/tasks/2")
	get(router, "/nowhere")

	snapshot := m.Snapshot()
	assert.Equal(t, int64(3), snapshot.RequestCount)
	assert.Equal(t, int64(3), snapshot.ErrorCount)
	assert.Equal(t, int64(0), snapshot.ActiveRequests)
	assert.Equal(t, int64(2), snapshot.Endpoints["GET /tasks/:id"])
	assert.Equal(t, int64(1), snapshot.Endpoints["GET unmatched"])
	assert.Equal(t, int64(3), snapshot.StatusCodes["404"])
}

func TestMonitor_HealthChecksRunOnEveryRequest(t *testing.T) {
	m := NewMonitor()
	var calls atomic.Int32
	m.RegisterHealthCheck("database", true, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	router := newTestRouter(m)

	assert.Equal(t, http.StatusOK, get(router, "/health").Code)
	assert.Equal(t, http.StatusOK, get(router, "/health/ready").Code)
	assert.Equal(t, int32(2), calls.Load())
}

func TestMonitor_CriticalFailureIsUnhealthy(t *testing.T) {
	m := NewMonitor()
	m.RegisterHealthCheck("database", true, func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	router := newTestRouter(m)

	w := get(router, "/health")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status string        `json:"status"`
		Checks []HealthCheck `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, StatusUnhealthy, body.Status)
	require.Len(t, body.Checks, 1)
	assert.Equal(t, "connection refused", body.Checks[0].Message)

	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/health/ready").Code)
	assert.Equal(t, http.StatusOK, get(router, "/health/live").Code)
}

func TestMonitor_NonCriticalFailureDegrades(t *testing.T) {
	m := NewMonitor()
	m.RegisterHealthCheck("database", true, func(ctx context.Context) error { return nil })
	m.RegisterHealthCheck("cache", false, func(ctx context.Context) error { return errors.New("down") })

	overall, checks := m.RunHealthChecks(context.Background())
	assert.Equal(t, StatusDegraded, overall)
	require.Len(t, checks, 2)
	assert.Equal(t, "cache", checks[0].Name)
	assert.Equal(t, "database", checks[1].Name)

	router := newTestRouter(m)
	assert.Equal(t, http.StatusOK, get(router, "/health/ready").Code)
}

func TestMonitor_MetricsIncludesRegisteredStats(t *testing.T) {
	m := NewMonitor()
	m.RegisterStats("cache", func() map[string]interface{} {
		return map[string]interface{}{"hits": 7}
	})
	router := newTestRouter(m)

	w := get(router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "application")
	assert.Contains(t, body, "system")
	assert.JSONEq(t, `{"hits":7}`, string(body["cache"]))
}
