package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:        "127.0.0.1",
			Port:        "0",
			Environment: "test",
			LogLevel:    "info",
		},
		Database: config.DatabaseConfig{
			Driver:       config.DriverSQLite,
			URL:          ":memory:",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Redis: config.RedisConfig{
			PoolSize: 2,
			CacheTTL: time.Minute,
		},
		RateLimit: config.RateLimitConfig{
			RequestsPerMin:  6000,
			BurstSize:       100,
			CleanupInterval: time.Minute,
		},
	}
}

func startApp(t *testing.T, cfg *config.Config) (*app, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()

	a, err := newApp(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = a.shutdown(ctx)
	})
	return a, hook
}

func call(t *testing.T, a *app, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(w, req)
	return w
}

func TestApp_TaskLifecycle(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	a, _ := startApp(t, cfg)

	w := call(t, a, http.MethodPost, "/tasks",
		`{"title":"Ship release","description":"v1","status":"InProgress","priority":"High","tags":["release","ops"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, []string{"ops", "release"}, created.Tags)
	id := created.ID.String()

	w = call(t, a, http.MethodPost, "/tasks",
		`{"title":"Water plants","description":"home","status":"Todo","priority":"Low"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = call(t, a, http.MethodGet, "/tasks?tag=release&status=inprogress", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	w = call(t, a, http.MethodPut, "/tasks/"+id, `{"status":"Done","tags":["x"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, models.StatusDone, updated.Status)
	assert.Equal(t, []string{"ops", "release"}, updated.Tags)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	w = call(t, a, http.MethodPost, "/tasks/"+id+"/tags", `{"tag":"urgent"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = call(t, a, http.MethodDelete, "/tasks/"+id+"/tags/ops", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = call(t, a, http.MethodGet, "/tasks/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{"release", "urgent"}, got.Tags)

	w = call(t, a, http.MethodGet, "/tasks?sortBy=title&sortOrder=asc", "")
	require.Equal(t, http.StatusOK, w.Code)
	listed = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "Ship release", listed[0].Title)
	assert.Equal(t, "Water plants", listed[1].Title)

	w = call(t, a, http.MethodDelete, "/tasks/"+id, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	w = call(t, a, http.MethodGet, "/tasks/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = call(t, a, http.MethodDelete, "/tasks/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestApp_ValidationErrors(t *testing.T) {
	a, _ := startApp(t, testConfig())

	w := call(t, a, http.MethodPost, "/tasks", `{"title":"  ","description":"","status":"Todo","priority":"Low"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"title"`)
	assert.Contains(t, w.Body.String(), `"description"`)

	w = call(t, a, http.MethodPost, "/tasks", `{"title":"","description":"d","status":"bogus","priority":"Low"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Fields []models.FieldError `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Fields, 2)
	assert.Equal(t, "title", body.Fields[0].Field)
	assert.Equal(t, "status", body.Fields[1].Field)

	w = call(t, a, http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestApp_WithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis.Enabled = true
	host, port, _ := strings.Cut(mr.Addr(), ":")
	cfg.Redis.Host = host
	cfg.Redis.Port = port
	a, _ := startApp(t, cfg)

	w := call(t, a, http.MethodPost, "/tasks",
		`{"title":"Cached","description":"d","status":"Todo","priority":"Medium"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, mr.Exists("task:"+created.ID.String()))

	w = call(t, a, http.MethodPut, "/tasks/"+created.ID.String(), `{"title":"Renamed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, mr.Exists("task:"+created.ID.String()))

	w = call(t, a, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health struct {
		Status string `json:"status"`
		Checks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Len(t, health.Checks, 2)
}

func TestApp_RedisOutageDegrades(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.MaxRetries = -1
	host, port, _ := strings.Cut(mr.Addr(), ":")
	cfg.Redis.Host = host
	cfg.Redis.Port = port
	a, hook := startApp(t, cfg)
	mr.Close()

	w := call(t, a, http.MethodPost, "/tasks",
		`{"title":"Still works","description":"d","status":"Todo","priority":"Medium"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = call(t, a, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)

	w = call(t, a, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == log.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestApp_InvalidDatabaseConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Database.MaxIdleConns = 5

	logger, _ := test.NewNullLogger()
	_, err := newApp(context.Background(), cfg, logger)
	assert.Error(t, err)
}

func TestApp_ShutdownClosesPool(t *testing.T) {
	logger, _ := test.NewNullLogger()
	a, err := newApp(context.Background(), testConfig(), logger)
	require.NoError(t, err)

	require.NoError(t, a.shutdown(context.Background()))
	assert.Error(t, a.pool.Health())
}
