package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	domainworker "github.com/alanyang/build-mesh/internal/domain/worker"
	portworker "github.com/alanyang/build-mesh/internal/port/worker"
)

var _ portworker.Repository = (*WorkerRepository)(nil)

type WorkerRepository struct {
	db *DB
}

func NewWorkerRepository(db *DB) *WorkerRepository {
	return &WorkerRepository{db: db}
}

// liveWorker re-reads the shared state on every IsAvailable call, so a slot taken by a
// concurrent build start is visible to the distributor mid-pass.
type liveWorker struct {
	db   *DB
	snap domainworker.Worker
}

func (w liveWorker) Worker() domainworker.Worker { return w.snap }

func (w liveWorker) IsAvailable() bool {
	w.db.mu.Lock()
	defer w.db.mu.Unlock()
	cur, ok := w.db.workers[w.snap.ID]
	return ok && cur.IsAvailable()
}

// AvailableWorkers implements port/worker.WorkerPool. Workers are returned by name.
func (r *WorkerRepository) AvailableWorkers(_ context.Context, builder string) ([]portworker.WorkerRef, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var avail []domainworker.Worker
	for _, w := range r.db.workers {
		if w.ServesBuilder(builder) && w.IsAvailable() {
			avail = append(avail, w)
		}
	}
	sort.Slice(avail, func(i, j int) bool { return avail[i].Name < avail[j].Name })

	refs := make([]portworker.WorkerRef, len(avail))
	for i, w := range avail {
		refs[i] = liveWorker{db: r.db, snap: w}
	}
	return refs, nil
}

// Upsert inserts a worker or updates the one with the same name, keeping its id and
// running count.
func (r *WorkerRepository) Upsert(_ context.Context, w domainworker.Worker) (domainworker.Worker, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, existing := range r.db.workers {
		if existing.Name != w.Name {
			continue
		}
		w.ID, w.CreatedAt, w.RunningBuilds = id, existing.CreatedAt, existing.RunningBuilds
		if w.Status == domainworker.StatusIdle {
			w.Status = domainworker.StatusFor(w.RunningBuilds)
		}
		break
	}
	w.Builders = slices.Clone(w.Builders)
	w.Tags = slices.Clone(w.Tags)
	r.db.workers[w.ID] = w
	return w, nil
}

func (r *WorkerRepository) GetByID(_ context.Context, id uuid.UUID) (domainworker.Worker, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	w, ok := r.db.workers[id]
	if !ok {
		return domainworker.Worker{}, fmt.Errorf("worker %s: %w", id, domainworker.ErrNotFound)
	}
	return w, nil
}

func (r *WorkerRepository) List(_ context.Context, filters domainworker.ListFilters) ([]domainworker.Worker, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domainworker.Worker
	for _, w := range r.db.workers {
		if filters.Builder != nil && !w.ServesBuilder(*filters.Builder) {
			continue
		}
		if filters.Status != nil && w.Status != *filters.Status {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *WorkerRepository) UpdateStatus(_ context.Context, id uuid.UUID, status domainworker.Status) error {
	return r.update(id, func(w *domainworker.Worker) error {
		w.Status = status
		return nil
	})
}

func (r *WorkerRepository) Heartbeat(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(w *domainworker.Worker) error {
		now := time.Now().UTC()
		w.LastHeartbeatAt = &now
		return nil
	})
}

// ReserveSlot implements the CAS slot reservation of port/worker.Repository.
func (r *WorkerRepository) ReserveSlot(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(w *domainworker.Worker) error {
		if !w.IsAvailable() {
			return domainworker.ErrNoSlot
		}
		w.RunningBuilds++
		w.Status = domainworker.StatusFor(w.RunningBuilds)
		return nil
	})
}

func (r *WorkerRepository) FreeSlot(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(w *domainworker.Worker) error {
		if w.RunningBuilds > 0 {
			w.RunningBuilds--
		}
		if w.Status == domainworker.StatusBuilding || w.Status == domainworker.StatusIdle {
			w.Status = domainworker.StatusFor(w.RunningBuilds)
		}
		return nil
	})
}

func (r *WorkerRepository) update(id uuid.UUID, fn func(w *domainworker.Worker) error) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	w, ok := r.db.workers[id]
	if !ok {
		return fmt.Errorf("worker %s: %w", id, domainworker.ErrNotFound)
	}
	if err := fn(&w); err != nil {
		return err
	}
	r.db.workers[id] = w
	return nil
}
