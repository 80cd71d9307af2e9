package background

import (
	"context"
	"time"

	"github.com/pantrykit/pantry-api/pkg/logger"
	"github.com/pantrykit/pantry-api/pkg/metrics"
	"go.uber.org/zap"
)

// StaleTokenDeleter removes login tokens that expired or were used before cutoff
type StaleTokenDeleter interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// LoginTokenJanitor periodically purges login tokens older than the retention period
type LoginTokenJanitor struct {
	tokens    StaleTokenDeleter
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewLoginTokenJanitor creates a janitor that runs every interval
func NewLoginTokenJanitor(tokens StaleTokenDeleter, retention, interval time.Duration) *LoginTokenJanitor {
	return &LoginTokenJanitor{
		tokens:    tokens,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// Start purges once immediately, then on every tick until ctx is cancelled
func (j *LoginTokenJanitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-ctx.Done():
			logger.Info("Login token janitor stopped")
			return
		}
	}
}

// RunOnce deletes everything that went stale before now - retention
func (j *LoginTokenJanitor) RunOnce(ctx context.Context) int64 {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := j.now().Add(-j.retention)
	deleted, err := j.tokens.DeleteStale(runCtx, cutoff)
	if err != nil {
		logger.Error("Failed to purge stale login tokens", zap.Error(err))
		return 0
	}

	if deleted > 0 {
		metrics.LoginTokensPurged.Add(float64(deleted))
		logger.Info("Purged stale login tokens",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
	return deleted
}
