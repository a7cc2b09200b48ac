package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// attemptWindow tracks mutation requests from one IP
type attemptWindow struct {
	Count   int
	FirstAt time.Time
}

// RateLimiter throttles watch-list mutations per client IP
type RateLimiter struct {
	mu           sync.Mutex
	attempts     map[string]*attemptWindow
	maxAttempts  int
	windowPeriod time.Duration
}

// NewRateLimiter creates a rate limiter allowing maxAttempts requests per
// windowPeriod for each IP.
func NewRateLimiter(maxAttempts int, windowPeriod time.Duration) *RateLimiter {
	rl := &RateLimiter{
		attempts:     make(map[string]*attemptWindow),
		maxAttempts:  maxAttempts,
		windowPeriod: windowPeriod,
	}
	go rl.startCleanup()
	return rl
}

// startCleanup periodically drops expired windows
func (rl *RateLimiter) startCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, window := range rl.attempts {
			if now.Sub(window.FirstAt) > rl.windowPeriod {
				delete(rl.attempts, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Allow records one request from an IP and reports whether it is within
// the window budget.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	window, exists := rl.attempts[ip]
	if !exists || now.Sub(window.FirstAt) > rl.windowPeriod {
		rl.attempts[ip] = &attemptWindow{Count: 1, FirstAt: now}
		return true
	}

	window.Count++
	return window.Count <= rl.maxAttempts
}

// MutationRateLimit returns a middleware throttling state-changing
// requests per client IP. Reads pass through untouched.
func MutationRateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		if !rl.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, slow down",
			})
			return
		}

		c.Next()
	}
}
