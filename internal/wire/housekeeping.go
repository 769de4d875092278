package wire

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// idempotencyPruneInterval is how often expired idempotency keys are deleted.
const idempotencyPruneInterval = time.Hour

// startHousekeeping schedules the periodic stale-worker sweep and, when the store
// keeps idempotency keys durably, their expiry.
func startHousekeeping(ctx context.Context, reaper *workerReaper, keys pruner, ttl time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	sweepEvery := reaper.grace / 2
	if sweepEvery < time.Second {
		sweepEvery = time.Second
	}
	if _, err := s.NewJob(
		gocron.DurationJob(sweepEvery),
		gocron.NewTask(func() {
			if n, err := reaper.sweepStale(ctx); err != nil {
				slog.ErrorContext(ctx, "stale worker sweep failed", "error", err)
			} else if n > 0 {
				slog.InfoContext(ctx, "stale worker sweep scheduled timers", "count", n)
			}
		}),
		gocron.WithName("worker-stale-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, fmt.Errorf("schedule worker sweep: %w", err)
	}

	if keys != nil {
		if _, err := s.NewJob(
			gocron.DurationJob(idempotencyPruneInterval),
			gocron.NewTask(func() {
				n, err := keys.Prune(ctx, time.Now().UTC().Add(-ttl))
				if err != nil {
					slog.ErrorContext(ctx, "idempotency prune failed", "error", err)
					return
				}
				slog.DebugContext(ctx, "pruned idempotency keys", "count", n)
			}),
			gocron.WithName("idempotency-prune"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, fmt.Errorf("schedule idempotency prune: %w", err)
		}
	}

	s.Start()
	return s, nil
}
