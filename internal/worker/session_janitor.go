package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lqviet45/light-novel-BE/internal/observability"
	"github.com/lqviet45/light-novel-BE/internal/repository"
)

// SweepResult summarizes one janitor pass.
type SweepResult struct {
	Owners  int
	Pruned  int
	Failed  int
	Elapsed time.Duration
}

// SessionJanitor removes session-set members whose refresh token mapping
// has expired, restoring token/set consistency.
type SessionJanitor struct {
	sessions repository.SessionRepository
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewSessionJanitor constructs the janitor. A non-positive interval disables Run.
func NewSessionJanitor(sessions repository.SessionRepository, interval time.Duration, logger *zap.Logger, metrics *observability.Metrics) *SessionJanitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionJanitor{sessions: sessions, interval: interval, logger: logger, metrics: metrics}
}

// Run sweeps every interval until ctx is cancelled.
func (j *SessionJanitor) Run(ctx context.Context) {
	if j.interval <= 0 {
		j.logger.Info("session janitor disabled")
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("session janitor started", zap.Duration("interval", j.interval))
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("session janitor stopped")
			return
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil {
				j.logger.Warn("session sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep performs a single pass. Per-owner failures are counted and skipped.
func (j *SessionJanitor) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	owners, err := j.sessions.SessionOwners(ctx)
	if err != nil {
		j.metrics.RecordAuthOutcome("session_sweep", observability.OutcomeFailure)
		return SweepResult{}, err
	}

	result := SweepResult{Owners: len(owners)}
	for _, owner := range owners {
		if ctx.Err() != nil {
			break
		}
		n, err := j.sessions.PruneOrphans(ctx, owner)
		if err != nil {
			result.Failed++
			j.logger.Debug("session prune failed", zap.String("email", owner), zap.Error(err))
			continue
		}
		result.Pruned += n
	}
	result.Elapsed = time.Since(start)

	j.metrics.RecordAuthOutcome("session_sweep", observability.OutcomeSuccess)
	j.logger.Info("session sweep completed",
		zap.Int("owners", result.Owners),
		zap.Int("pruned", result.Pruned),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, ctx.Err()
}
