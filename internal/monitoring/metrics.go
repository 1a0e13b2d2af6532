package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"

	defaultCheckTimeout = 5 * time.Second
)

// RequestMetrics is a point-in-time copy of the request counters.
type RequestMetrics struct {
	RequestCount       int64            `json:"request_count"`
	AvgRequestDuration string           `json:"avg_request_duration"`
	ActiveRequests     int64            `json:"active_requests"`
	ErrorCount         int64            `json:"error_count"`
	StatusCodes        map[string]int64 `json:"status_codes"`
	Endpoints          map[string]int64 `json:"endpoint_calls"`
	StartTime          time.Time        `json:"start_time"`
	LastRequest        time.Time        `json:"last_request"`
}

type HealthCheck struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Critical bool          `json:"critical"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	LastRun  time.Time     `json:"last_run"`
}

type HealthCheckFunc func(ctx context.Context) error

// StatsFunc contributes a named section to the metrics endpoint.
type StatsFunc func() map[string]interface{}

type registeredCheck struct {
	fn       HealthCheckFunc
	critical bool
}

// Monitor collects request metrics and runs registered health checks on
// every health or readiness request.
type Monitor struct {
	mu            sync.Mutex
	requestCount  int64
	activeCount   int64
	errorCount    int64
	totalDuration time.Duration
	statusCodes   map[string]int64
	endpoints     map[string]int64
	startTime     time.Time
	lastRequest   time.Time

	checksMu     sync.RWMutex
	checks       map[string]registeredCheck
	stats        map[string]StatsFunc
	checkTimeout time.Duration
}

func NewMonitor() *Monitor {
	return &Monitor{
		statusCodes:  make(map[string]int64),
		endpoints:    make(map[string]int64),
		startTime:    time.Now(),
		checks:       make(map[string]registeredCheck),
		stats:        make(map[string]StatsFunc),
		checkTimeout: defaultCheckTimeout,
	}
}

// RegisterHealthCheck adds a check. A failing critical check makes the
// service unhealthy and not ready; a failing non-critical one only degrades it.
func (m *Monitor) RegisterHealthCheck(name string, critical bool, fn HealthCheckFunc) {
	m.checksMu.Lock()
	defer m.checksMu.Unlock()
	m.checks[name] = registeredCheck{fn: fn, critical: critical}
}

func (m *Monitor) RegisterStats(name string, fn StatsFunc) {
	m.checksMu.Lock()
	defer m.checksMu.Unlock()
	m.stats[name] = fn
}

func (m *Monitor) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		m.mu.Lock()
		m.activeCount++
		m.mu.Unlock()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		endpoint := c.Request.Method + " " + route

		m.mu.Lock()
		defer m.mu.Unlock()
		m.requestCount++
		m.activeCount--
		m.totalDuration += duration
		m.lastRequest = time.Now()
		if statusCode >= 400 {
			m.errorCount++
		}
		m.statusCodes[strconv.Itoa(statusCode)]++
		m.endpoints[endpoint]++
	}
}

func (m *Monitor) Snapshot() RequestMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	var avg time.Duration
	if m.requestCount > 0 {
		avg = m.totalDuration / time.Duration(m.requestCount)
	}

	snapshot := RequestMetrics{
		RequestCount:       m.requestCount,
		AvgRequestDuration: avg.String(),
		ActiveRequests:     m.activeCount,
		ErrorCount:         m.errorCount,
		StatusCodes:        make(map[string]int64, len(m.statusCodes)),
		Endpoints:          make(map[string]int64, len(m.endpoints)),
		StartTime:          m.startTime,
		LastRequest:        m.lastRequest,
	}
	for k, v := range m.statusCodes {
		snapshot.StatusCodes[k] = v
	}
	for k, v := range m.endpoints {
		snapshot.Endpoints[k] = v
	}
	return snapshot
}

type SystemMetrics struct {
	Uptime         string      `json:"uptime"`
	MemoryUsage    MemoryStats `json:"memory"`
	GoroutineCount int         `json:"goroutine_count"`
	CPUCount       int         `json:"cpu_count"`
	GoVersion      string      `json:"go_version"`
}

type MemoryStats struct {
	Alloc        uint64 `json:"alloc_mb"`
	TotalAlloc   uint64 `json:"total_alloc_mb"`
	Sys          uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
	GCPauseTotal string `json:"gc_pause_total"`
}

func (m *Monitor) SystemMetrics() SystemMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return SystemMetrics{
		Uptime: time.Since(m.startTime).String(),
		MemoryUsage: MemoryStats{
			Alloc:        bToMb(ms.Alloc),
			TotalAlloc:   bToMb(ms.TotalAlloc),
			Sys:          bToMb(ms.Sys),
			NumGC:        ms.NumGC,
			GCPauseTotal: time.Duration(ms.PauseTotalNs).String(),
		},
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

// RunHealthChecks runs every registered check concurrently, each under its
// own timeout, and returns the results with the overall status.
func (m *Monitor) RunHealthChecks(ctx context.Context) (string, []HealthCheck) {
	m.checksMu.RLock()
	names := make([]string, 0, len(m.checks))
	checks := make(map[string]registeredCheck, len(m.checks))
	for name, check := range m.checks {
		names = append(names, name)
		checks[name] = check
	}
	m.checksMu.RUnlock()
	sort.Strings(names)

	results := make([]HealthCheck, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string, check registeredCheck) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, m.checkTimeout)
			defer cancel()

			start := time.Now()
			err := check.fn(checkCtx)
			result := HealthCheck{
				Name:     name,
				Status:   StatusHealthy,
				Critical: check.critical,
				Duration: time.Since(start),
				LastRun:  start,
			}
			if err != nil {
				result.Status = StatusUnhealthy
				result.Message = err.Error()
			}
			results[i] = result
		}(i, name, checks[name])
	}
	wg.Wait()

	overall := StatusHealthy
	for _, r := range results {
		if r.Status == StatusHealthy {
			continue
		}
		if r.Critical {
			overall = StatusUnhealthy
			break
		}
		overall = StatusDegraded
	}
	return overall, results
}

func (m *Monitor) MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := gin.H{
			"application": m.Snapshot(),
			"system":      m.SystemMetrics(),
			"timestamp":   time.Now().UTC(),
		}

		m.checksMu.RLock()
		for name, fn := range m.stats {
			response[name] = fn()
		}
		m.checksMu.RUnlock()

		c.JSON(http.StatusOK, response)
	}
}

func (m *Monitor) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		overall, checks := m.RunHealthChecks(c.Request.Context())

		status := http.StatusOK
		if overall == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"status":    overall,
			"timestamp": time.Now().UTC(),
			"checks":    checks,
			"uptime":    time.Since(m.startTime).String(),
		})
	}
}

func (m *Monitor) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		overall, _ := m.RunHealthChecks(c.Request.Context())

		if overall == StatusUnhealthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "not ready",
				"timestamp": time.Now().UTC(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
		})
	}
}

func (m *Monitor) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"timestamp": time.Now().UTC(),
			"uptime":    time.Since(m.startTime).String(),
		})
	}
}

// RegisterRoutes mounts /health, /health/ready, /health/live and /metrics.
func (m *Monitor) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", m.HealthHandler())
	r.GET("/health/ready", m.ReadinessHandler())
	r.GET("/health/live", m.LivenessHandler())
	r.GET("/metrics", m.MetricsHandler())
}
