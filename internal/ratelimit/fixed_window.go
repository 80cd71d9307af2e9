package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
	"github.com/pantrykit/pantry-api/pkg/logger"
	"github.com/pantrykit/pantry-api/pkg/metrics"
	"go.uber.org/zap"
)

// Defaults for the magic link poll endpoint
const (
	DefaultLimit         = 30
	DefaultWindow        = 10 * time.Second
	DefaultStaleAfter    = time.Minute
	DefaultSweepInterval = 5 * time.Minute
)

// record tracks one identifier's current window
type record struct {
	count       int
	windowStart time.Time
}

// FixedWindow admits at most Limit calls per identifier within each Window.
// State is process-local: N instances behind a balancer allow N*Limit.
type FixedWindow struct {
	name       string
	limit      int
	window     time.Duration
	staleAfter time.Duration
	now        func() time.Time

	mu      sync.Mutex
	records map[string]*record
}

// Option customizes a FixedWindow
type Option func(*FixedWindow)

// WithClock replaces time.Now, used by tests
func WithClock(now func() time.Time) Option {
	return func(fw *FixedWindow) { fw.now = now }
}

// WithStaleAfter sets how long an idle record survives a sweep
func WithStaleAfter(d time.Duration) Option {
	return func(fw *FixedWindow) { fw.staleAfter = d }
}

// NewFixedWindow creates a limiter. name labels its metrics and logs.
func NewFixedWindow(name string, limit int, window time.Duration, opts ...Option) *FixedWindow {
	fw := &FixedWindow{
		name:       name,
		limit:      limit,
		window:     window,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
		records:    make(map[string]*record),
	}
	for _, opt := range opts {
		opt(fw)
	}
	return fw
}

// NewPollLimiter returns the limiter guarding the magic link poll endpoint
func NewPollLimiter(opts ...Option) *FixedWindow {
	return NewFixedWindow("magic_link_poll", DefaultLimit, DefaultWindow, opts...)
}

// Admit records a call for id at the current time
func (fw *FixedWindow) Admit(id string) bool {
	return fw.AdmitAt(id, fw.now())
}

// AdmitAt records a call for id at now and reports whether it is within the limit.
// Rejected calls still count toward the window.
func (fw *FixedWindow) AdmitAt(id string, now time.Time) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	rec, ok := fw.records[id]
	if !ok {
		fw.records[id] = &record{count: 1, windowStart: now}
		metrics.RateLimitTrackedIdentifiers.WithLabelValues(fw.name).Set(float64(len(fw.records)))
		return true
	}

	if now.Sub(rec.windowStart) > fw.window {
		rec.count = 1
		rec.windowStart = now
		return true
	}

	rec.count++
	return rec.count <= fw.limit
}

// Sweep drops records whose window started more than staleAfter before now.
// Returns the number removed.
func (fw *FixedWindow) Sweep(now time.Time) int {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	removed := 0
	for id, rec := range fw.records {
		if now.Sub(rec.windowStart) > fw.staleAfter {
			delete(fw.records, id)
			removed++
		}
	}

	metrics.RateLimitTrackedIdentifiers.WithLabelValues(fw.name).Set(float64(len(fw.records)))
	return removed
}

// Len returns the number of tracked identifiers
func (fw *FixedWindow) Len() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return len(fw.records)
}

// Run sweeps every interval until ctx is cancelled
func (fw *FixedWindow) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := fw.Sweep(fw.now()); removed > 0 {
				logger.Debug("Rate limit records swept",
					zap.String("limiter", fw.name),
					zap.Int("removed", removed))
			}
		}
	}
}

// KeyFunc extracts the identifier to limit on
type KeyFunc func(c *gin.Context) string

// ClientIP keys requests by the client address gin resolves
func ClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// Middleware rejects requests over the limit with a 429 error envelope
func (fw *FixedWindow) Middleware(keyFn KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if fw.Admit(keyFn(c)) {
			c.Next()
			return
		}

		metrics.RateLimitRejections.WithLabelValues(fw.name).Inc()
		_ = c.Error(apperrors.ErrRateLimited) //nolint:errcheck
		c.Header("Retry-After", retryAfterSeconds(fw.window))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"error": gin.H{
				"message": "Too many requests. Please slow down.",
				"code":    apperrors.CodeRateLimit,
			},
		})
	}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
