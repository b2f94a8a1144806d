package job

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Every executes sup on a fixed interval until ctx is done, then returns ctx.Err().
// With runAtStart the first run happens immediately. Ticks that arrive
// while a run is in progress are dropped by the ticker.
func Every(ctx context.Context, sup *Supervisor, interval time.Duration, runAtStart bool) error {
	sup.logger.Info("scheduler started",
		zap.Duration("interval", interval),
		zap.Bool("run_at_start", runAtStart),
	)

	if runAtStart {
		sup.Execute(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sup.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			sup.Execute(ctx)
		}
	}
}

// Trigger starts an out-of-band run in the background. It returns false
// without starting anything when a run is already in flight.
func Trigger(ctx context.Context, sup *Supervisor) bool {
	if sup.Status().State == StateRunning {
		return false
	}
	go sup.Execute(ctx)
	return true
}
