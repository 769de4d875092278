package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	portbr "github.com/alanyang/build-mesh/internal/port/buildrequest"
)

var _ portbr.Repository = (*BuildRequestRepository)(nil)

type BuildRequestRepository struct {
	db *DB
}

func NewBuildRequestRepository(db *DB) *BuildRequestRepository {
	return &BuildRequestRepository{db: db}
}

func (r *BuildRequestRepository) Create(_ context.Context, req domainbr.BuildRequest) (domainbr.BuildRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.nextID++
	req.ID = r.db.nextID
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = time.Now().UTC()
	}
	req.RequiredTags = slices.Clone(req.RequiredTags)
	r.db.requests[req.ID] = req
	return req, nil
}

func (r *BuildRequestRepository) GetByID(_ context.Context, id int64) (domainbr.BuildRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	req, ok := r.db.requests[id]
	if !ok {
		return domainbr.BuildRequest{}, fmt.Errorf("build request %d: %w", id, domainbr.ErrNotFound)
	}
	return req, nil
}

func (r *BuildRequestRepository) List(_ context.Context, filters domainbr.ListFilters) ([]domainbr.BuildRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domainbr.BuildRequest
	for _, req := range r.db.requests {
		claim, claimed := r.db.claims[req.ID]
		if filters.Builder != nil && req.Builder != *filters.Builder {
			continue
		}
		if filters.Claimed != nil && claimed != *filters.Claimed {
			continue
		}
		if filters.Complete != nil && req.Complete != *filters.Complete {
			continue
		}
		if filters.ClaimedBy != nil && (!claimed || claim.CoordinatorID != *filters.ClaimedBy) {
			continue
		}
		out = append(out, req)
	}
	domainbr.SortOldestFirst(out)
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

// ListUnclaimed implements port/buildrequest.ClaimStore.
func (r *BuildRequestRepository) ListUnclaimed(_ context.Context, builder string) ([]domainbr.BuildRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domainbr.BuildRequest
	for _, req := range r.db.requests {
		if req.Builder != builder || req.Complete {
			continue
		}
		if _, claimed := r.db.claims[req.ID]; claimed {
			continue
		}
		out = append(out, req)
	}
	domainbr.SortOldestFirst(out)
	return out, nil
}

// Claim implements port/buildrequest.ClaimStore. Ids that are unknown, complete or
// already claimed are reported as conflicted; the rest are claimed together.
func (r *BuildRequestRepository) Claim(_ context.Context, ids []int64, coordinatorID uuid.UUID) (domainbr.ClaimResult, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var res domainbr.ClaimResult
	now := time.Now().UTC()
	for _, id := range ids {
		req, ok := r.db.requests[id]
		_, claimed := r.db.claims[id]
		if !ok || req.Complete || claimed {
			res.Conflicted = append(res.Conflicted, id)
			continue
		}
		r.db.claims[id] = domainbr.Claim{RequestID: id, CoordinatorID: coordinatorID, ClaimedAt: now}
		res.Claimed = append(res.Claimed, id)
	}
	return res, nil
}

// Release implements port/buildrequest.ClaimStore.
func (r *BuildRequestRepository) Release(_ context.Context, ids []int64, coordinatorID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, id := range ids {
		if req, ok := r.db.requests[id]; ok && req.Complete {
			continue
		}
		if c, ok := r.db.claims[id]; !ok || c.CoordinatorID != coordinatorID {
			continue
		}
		delete(r.db.claims, id)
	}
	return nil
}

func (r *BuildRequestRepository) Complete(_ context.Context, ids []int64, result domainbr.Result) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := time.Now().UTC()
	for _, id := range ids {
		req, ok := r.db.requests[id]
		if !ok {
			return fmt.Errorf("build request %d: %w", id, domainbr.ErrNotFound)
		}
		if req.Complete {
			continue
		}
		res := result
		req.Complete, req.Results, req.CompletedAt = true, &res, &now
		r.db.requests[id] = req
	}
	return nil
}

func (r *BuildRequestRepository) CompleteUnclaimed(_ context.Context, id int64, result domainbr.Result) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	req, ok := r.db.requests[id]
	if !ok {
		return fmt.Errorf("build request %d: %w", id, domainbr.ErrNotFound)
	}
	if req.Complete {
		return fmt.Errorf("build request %d: %w", id, domainbr.ErrAlreadyComplete)
	}
	if _, claimed := r.db.claims[id]; claimed {
		return fmt.Errorf("build request %d: %w", id, domainbr.ErrClaimed)
	}
	now := time.Now().UTC()
	res := result
	req.Complete, req.Results, req.CompletedAt = true, &res, &now
	r.db.requests[id] = req
	return nil
}

func (r *BuildRequestRepository) ReleaseByCoordinator(_ context.Context, coordinatorID uuid.UUID) ([]domainbr.BuildRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var released []domainbr.BuildRequest
	for id, c := range r.db.claims {
		if c.CoordinatorID != coordinatorID {
			continue
		}
		req := r.db.requests[id]
		if req.Complete || r.db.hasRunningBuild(id) {
			continue
		}
		delete(r.db.claims, id)
		released = append(released, req)
	}
	domainbr.SortOldestFirst(released)
	return released, nil
}
