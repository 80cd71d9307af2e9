package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
	"github.com/pantrykit/pantry-api/pkg/metrics"
	"golang.org/x/time/rate"
)

// RateLimiter is a per-client token bucket used for the general API surface
// and the link request endpoint
type RateLimiter struct {
	name     string
	visitors map[string]*rate.Limiter
	mu       sync.Mutex
	r        rate.Limit // requests per second
	b        int        // burst size
}

// NewRateLimiter creates a new rate limiter.
// r: requests per second, b: burst size.
// Call Run to evict idle clients.
func NewRateLimiter(name string, r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		name:     name,
		visitors: make(map[string]*rate.Limiter),
		r:        r,
		b:        b,
	}
}

// getVisitor returns the bucket for a given client key
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.visitors[key]
	if !exists {
		limiter = rate.NewLimiter(rl.r, rl.b)
		rl.visitors[key] = limiter
	}

	return limiter
}

// Allow consumes one token for key
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getVisitor(key).Allow()
}

// Run evicts clients whose bucket has refilled until ctx is cancelled
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, limiter := range rl.visitors {
		// A full bucket means no requests for a while
		if limiter.Tokens() >= float64(rl.b) {
			delete(rl.visitors, key)
			removed++
		}
	}
	metrics.RateLimitTrackedIdentifiers.WithLabelValues(rl.name).Set(float64(len(rl.visitors)))
	return removed
}

// Middleware returns a Gin middleware function for rate limiting by client IP
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			metrics.RateLimitRejections.WithLabelValues(rl.name).Inc()
			_ = c.Error(apperrors.ErrRateLimited) //nolint:errcheck
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"message": "Rate limit exceeded. Please try again later.",
					"code":    apperrors.CodeRateLimit,
				},
			})
			return
		}

		c.Next()
	}
}
