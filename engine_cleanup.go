package credrot

import (
	"context"
	"time"
)

const sweepTimeout = 30 * time.Second

// SweepExpired deletes refresh rows whose expiry has passed and returns the
// number removed. Deletion is an optimization — expired rows are already
// invalid — so callers that disable the background sweep can run this on
// their own schedule.
func (e *Engine) SweepExpired(ctx context.Context) (int64, error) {
	n, err := e.store.DeleteExpired(ctx, e.now())
	if err != nil {
		return 0, err
	}
	e.metrics.Inc(MetricCleanupRuns)
	return n, nil
}

// Close stops the background cleanup goroutine, if one was started, and
// waits for it to exit. Safe to call more than once.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		if e.cleanupStop != nil {
			close(e.cleanupStop)
			<-e.cleanupDone
		}
	})
}

func (e *Engine) runCleanup(interval time.Duration) {
	defer close(e.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.cleanupStop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			n, err := e.SweepExpired(ctx)
			cancel()
			if err != nil {
				e.logger.Warn("credrot: expired credential sweep failed", "error", err)
				continue
			}
			if n > 0 {
				e.logger.Debug("credrot: expired credentials deleted", "count", n)
			}
		}
	}
}
