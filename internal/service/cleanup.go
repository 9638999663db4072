package service

import (
	"context"
	"time"

	"github.com/yuki-disu/PPD-back/pkg/logger"
)

// RunRecoveryCleanup deletes expired recovery codes every interval until ctx
// is done. Lookups already ignore expired codes; this only reclaims rows.
func RunRecoveryCleanup(ctx context.Context, recovery RecoveryService, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := recovery.CleanupExpired(ctx)
			if err != nil {
				logger.Warn("Recovery code cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("Deleted expired recovery codes", "count", n)
			}
		}
	}
}
