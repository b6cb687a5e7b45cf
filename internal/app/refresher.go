package app

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ludexapp/ludex/internal/paging"
)

const maxBackoff = 30 * time.Second

// StartRefresher launches a background goroutine that reloads sources every
// interval, keeping visible rows in place. Consecutive failures stretch the
// wait exponentially up to maxBackoff. The returned channel closes when the
// goroutine exits.
func StartRefresher(ctx context.Context, sources []paging.Source, interval time.Duration, logger *log.Logger) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		failures := 0
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			if err := refresh(ctx, sources, logger); err != nil {
				failures++
			} else {
				failures = 0
			}
			timer.Reset(calculateBackoff(failures, interval))
		}
	}()
	return done
}

func refresh(ctx context.Context, sources []paging.Source, logger *log.Logger) error {
	var firstErr error
	for _, src := range sources {
		if err := src.Reload(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if logger != nil {
				logger.Warn("background refresh failed", "endpoint", src.Endpoint(), "err", err)
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// calculateBackoff returns base * 2^failures, capped at maxBackoff. A base
// already at or above the cap is returned unchanged.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 || base >= maxBackoff {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}
