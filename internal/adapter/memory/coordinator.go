package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	domaincoord "github.com/alanyang/build-mesh/internal/domain/coordinator"
	portcoord "github.com/alanyang/build-mesh/internal/port/coordinator"
)

var _ portcoord.Repository = (*CoordinatorRepository)(nil)

type CoordinatorRepository struct {
	db *DB
}

func NewCoordinatorRepository(db *DB) *CoordinatorRepository {
	return &CoordinatorRepository{db: db}
}

func (r *CoordinatorRepository) Register(_ context.Context, c domaincoord.Coordinator) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.coordinators[c.ID] = c
	return nil
}

func (r *CoordinatorRepository) Heartbeat(_ context.Context, id uuid.UUID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.coordinators[id]
	if !ok {
		return fmt.Errorf("coordinator %s not found", id)
	}
	c.LastSeenAt, c.Active = at, true
	r.db.coordinators[id] = c
	return nil
}

func (r *CoordinatorRepository) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.coordinators[id]
	if !ok {
		return fmt.Errorf("coordinator %s not found", id)
	}
	c.Active = active
	r.db.coordinators[id] = c
	return nil
}

func (r *CoordinatorRepository) ListStale(_ context.Context, cutoff time.Time) ([]domaincoord.Coordinator, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domaincoord.Coordinator
	for _, c := range r.db.coordinators {
		if c.Active && c.LastSeenAt.Before(cutoff) {
			out = append(out, c)
		}
	}
	return out, nil
}
