package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/urbispulse/internal/repository"
)

// DraftJanitor periodically removes drafts nobody has touched within the TTL.
type DraftJanitor struct {
	drafts   repository.DraftRepository
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewDraftJanitor builds a janitor. Non-positive durations fall back to an hour TTL and a minute tick.
func NewDraftJanitor(drafts repository.DraftRepository, ttl, interval time.Duration, logger *zap.Logger) *DraftJanitor {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftJanitor{drafts: drafts, ttl: ttl, interval: interval, logger: logger, now: time.Now}
}

// Start sweeps on every tick until ctx is cancelled.
func (j *DraftJanitor) Start(ctx context.Context) {
	j.logger.Info("draft janitor starting", zap.Duration("ttl", j.ttl), zap.Duration("interval", j.interval))
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("draft janitor stopping")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs a single pass and returns how many drafts were removed.
func (j *DraftJanitor) Sweep(ctx context.Context) int {
	removed, err := j.drafts.DeleteStale(ctx, j.now().Add(-j.ttl))
	if err != nil {
		j.logger.Warn("draft sweep failed", zap.Error(err))
		return 0
	}
	if removed > 0 {
		j.logger.Debug("stale drafts removed", zap.Int("count", removed))
	}
	return removed
}
