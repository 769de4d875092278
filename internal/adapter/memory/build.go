package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	domainbuild "github.com/alanyang/build-mesh/internal/domain/build"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	portbuild "github.com/alanyang/build-mesh/internal/port/build"
)

var _ portbuild.Repository = (*BuildRepository)(nil)

type BuildRepository struct {
	db *DB
}

func NewBuildRepository(db *DB) *BuildRepository {
	return &BuildRepository{db: db}
}

func (r *BuildRepository) Create(_ context.Context, b domainbuild.Build) (domainbuild.Build, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.builds[b.ID] = b
	return b, nil
}

func (r *BuildRepository) GetByID(_ context.Context, id uuid.UUID) (domainbuild.Build, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	b, ok := r.db.builds[id]
	if !ok {
		return domainbuild.Build{}, fmt.Errorf("build %s: %w", id, domainbuild.ErrNotFound)
	}
	return b, nil
}

func (r *BuildRepository) Finish(_ context.Context, id uuid.UUID, result domainbr.Result) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	b, ok := r.db.builds[id]
	if !ok {
		return fmt.Errorf("build %s: %w", id, domainbuild.ErrNotFound)
	}
	if b.Finished() {
		return fmt.Errorf("build %s: %w", id, domainbuild.ErrAlreadyFinished)
	}
	now := time.Now().UTC()
	res := result
	b.FinishedAt, b.Results = &now, &res
	r.db.builds[id] = b
	return nil
}

func (r *BuildRepository) ListRunningByWorker(_ context.Context, workerID uuid.UUID) ([]domainbuild.Build, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domainbuild.Build
	for _, b := range r.db.builds {
		if b.WorkerID == workerID && !b.Finished() {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}
