package background

import (
	"context"
	"time"
)

// Runner is a component with its own context-bound loop
type Runner interface {
	Run(ctx context.Context, interval time.Duration)
}

// RateLimitSweeper drives the periodic cleanup of in-memory limiters
type RateLimitSweeper struct {
	limiters []Runner
	interval time.Duration
}

// NewRateLimitSweeper sweeps every limiter on the same interval
func NewRateLimitSweeper(interval time.Duration, limiters ...Runner) *RateLimitSweeper {
	return &RateLimitSweeper{limiters: limiters, interval: interval}
}

// Start launches one loop per limiter; all stop when ctx is cancelled
func (s *RateLimitSweeper) Start(ctx context.Context) {
	for _, l := range s.limiters {
		go l.Run(ctx, s.interval)
	}
}
