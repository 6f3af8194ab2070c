package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AttemptPurger removes failed-login rows whose window and block have both lapsed
type AttemptPurger interface {
	PurgeStale(ctx context.Context) (int64, error)
}

// PurgeObserver is told how many rows each run removed
type PurgeObserver func(n int64)

// CleanupManager periodically purges stale failed-login attempts so the
// table stays bounded even without login traffic
type CleanupManager struct {
	purger   AttemptPurger
	observe  PurgeObserver
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager. observe may be nil.
func NewCleanupManager(purger AttemptPurger, observe PurgeObserver, logger *slog.Logger, interval time.Duration) *CleanupManager {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if observe == nil {
		observe = func(int64) {}
	}
	return &CleanupManager{
		purger:   purger,
		observe:  observe,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the purge immediately and then on every tick. It blocks until
// Stop is called or ctx is cancelled.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := cm.purger.PurgeStale(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to purge stale login attempts", slog.Any("error", err))
		return
	}

	cm.observe(n)
	if n > 0 {
		cm.logger.Info("stale login attempts purged", slog.Int64("rows_deleted", n))
	}
}

// Stop signals the cleanup manager to stop. It is safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
