package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newLimitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MutationRateLimit(rl))
	router.GET("/resource", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/resource", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestAllow_WindowBudget(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), "request %d", i)
	}
	assert.False(t, rl.Allow("10.0.0.1"))

	// Another IP has its own budget.
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestAllow_WindowResets(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestMutationRateLimit_ThrottlesWrites(t *testing.T) {
	router := newLimitedRouter(NewRateLimiter(2, time.Minute))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/resource", nil))
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/resource", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestMutationRateLimit_ReadsBypass(t *testing.T) {
	router := newLimitedRouter(NewRateLimiter(1, time.Minute))

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource", nil))
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}
}
