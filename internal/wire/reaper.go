package wire

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyang/build-mesh/internal/domain/event"
	domainworker "github.com/alanyang/build-mesh/internal/domain/worker"
	porteventbus "github.com/alanyang/build-mesh/internal/port/eventbus"
	wshandler "github.com/alanyang/build-mesh/internal/transport/ws"
)

// workerDisconnector is the slice of the worker service the reaper drives.
type workerDisconnector interface {
	Disconnect(ctx context.Context, id uuid.UUID) error
	ListStale(ctx context.Context, timeout time.Duration) ([]domainworker.Worker, error)
}

// workerReaper schedules a grace-period timer whenever a worker's session closes. If
// the worker reconnects within the grace period the timer is cancelled. If it expires,
// the worker is disconnected and the builds it was running are re-queued.
type workerReaper struct {
	workers      workerDisconnector
	live         func(uuid.UUID) bool
	grace        time.Duration
	startupGrace time.Duration

	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
}

func newWorkerReaper(workers workerDisconnector, live func(uuid.UUID) bool, grace, startupGrace time.Duration) *workerReaper {
	return &workerReaper{
		workers:      workers,
		live:         live,
		grace:        grace,
		startupGrace: startupGrace,
		timers:       make(map[uuid.UUID]*time.Timer),
	}
}

// hooks wires session transitions from the websocket and MCP transports.
func (r *workerReaper) hooks() wshandler.SessionHooks {
	return wshandler.SessionHooks{
		Opened:   func(_ context.Context, id uuid.UUID) { r.cancel(id) },
		Closed:   func(_ context.Context, id uuid.UUID) { r.schedule(id, r.grace) },
		Activity: func(_ context.Context, id uuid.UUID) { r.cancel(id) },
	}
}

// schedule (re)starts the worker's timer with the given grace.
func (r *workerReaper) schedule(id uuid.UUID, grace time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[id]; ok {
		t.Stop()
	}
	r.timers[id] = time.AfterFunc(grace, func() { r.expire(id) })
}

func (r *workerReaper) cancel(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[id]; ok {
		t.Stop()
		delete(r.timers, id)
	}
}

func (r *workerReaper) pending(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[id]
	return ok
}

func (r *workerReaper) expire(id uuid.UUID) {
	r.mu.Lock()
	delete(r.timers, id)
	r.mu.Unlock()

	if r.live != nil && r.live(id) {
		return
	}
	if err := r.workers.Disconnect(context.Background(), id); err != nil {
		if errors.Is(err, domainworker.ErrNotFound) {
			return
		}
		slog.Error("reaper: disconnect worker failed", "worker_id", id, "error", err)
		return
	}
	slog.Info("reaper: worker disconnected after grace period", "worker_id", id)
}

// start subscribes to the worker channel so that a worker seen by any coordinator
// cancels its timer here, then runs the startup orphan scan.
func (r *workerReaper) start(ctx context.Context, bus porteventbus.EventBus) {
	if _, err := bus.Subscribe(ctx, event.ChannelWorker, func(_ context.Context, e event.Event) {
		switch e.Type {
		case event.TypeWorkerAvailable, event.TypeWorkerHeartbeat, event.TypeWorkerLost:
			if id, err := uuid.Parse(e.EntityID); err == nil {
				r.cancel(id)
			}
		}
	}); err != nil {
		slog.Error("reaper: failed to subscribe to worker channel", "error", err)
	}

	// Workers whose sessions closed while no coordinator was running missed their
	// live-disconnect timer. A shorter grace applies to them.
	n, err := r.sweepStale(ctx)
	if err != nil {
		slog.Error("reaper: startup scan failed", "error", err)
	}
	if n > 0 {
		slog.Info("reaper: startup scan scheduled timers for orphaned workers", "count", n)
	}
}

// sweepStale schedules a startup-grace timer for every connected worker that has not
// heartbeated within the grace period and holds no session here.
func (r *workerReaper) sweepStale(ctx context.Context) (int, error) {
	stale, err := r.workers.ListStale(ctx, r.grace)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, w := range stale {
		if r.pending(w.ID) || (r.live != nil && r.live(w.ID)) {
			continue
		}
		r.schedule(w.ID, r.startupGrace)
		n++
	}
	return n, nil
}

// stop cancels every pending timer.
func (r *workerReaper) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}
