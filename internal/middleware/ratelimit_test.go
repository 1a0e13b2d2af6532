package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClockedLimiter(rps float64, burst int) (*IPRateLimiter, *testClock) {
	clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewIPRateLimiter(rps, burst, time.Minute)
	l.now = clock.Now
	return l, clock
}

func TestIPRateLimiter_BurstPerIP(t *testing.T) {
	l, clock := newClockedLimiter(1, 2)

	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatal("Expected the burst to be allowed")
	}
	if l.Allow("10.0.0.1") {
		t.Error("Expected request beyond burst to be rejected")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("Expected a different IP to have its own bucket")
	}

	clock.Advance(time.Second)
	if !l.Allow("10.0.0.1") {
		t.Error("Expected a token to be refilled after one second")
	}
}

func TestIPRateLimiter_Cleanup(t *testing.T) {
	l, clock := newClockedLimiter(1, 1)

	l.Allow("10.0.0.1")
	clock.Advance(30 * time.Second)
	l.Allow("10.0.0.2")

	if removed := l.Cleanup(); removed != 0 {
		t.Errorf("Expected nothing removed yet, got %d", removed)
	}

	clock.Advance(45 * time.Second)
	if removed := l.Cleanup(); removed != 1 {
		t.Errorf("Expected 1 idle visitor removed, got %d", removed)
	}
	if _, ok := l.visitors["10.0.0.2"]; !ok {
		t.Error("Expected recently seen visitor to be kept")
	}
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewIPRateLimiter(0.001, 1, time.Minute)

	router := gin.New()
	router.Use(l.Middleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest("GET", "/", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("Expected first request to pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest("GET", "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}
}
