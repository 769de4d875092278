package buildrequest

import (
	"context"

	"github.com/google/uuid"

	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
)

//go:generate mockgen -destination=../../mocks/buildrequest.go -package=mocks -mock_names=ClaimStore=MockClaimStore,Repository=MockBuildRequestRepository . ClaimStore,Repository

// ClaimStore is the narrow interface the distributor needs.
// Claim must be atomic per id and must partition the batch into claimed and conflicted
// ids; a conflict on one id never fails the others.
type ClaimStore interface {
	ListUnclaimed(ctx context.Context, builder string) ([]domainbr.BuildRequest, error)
	Claim(ctx context.Context, ids []int64, coordinatorID uuid.UUID) (domainbr.ClaimResult, error)
	// Release drops the claims coordinatorID holds on the given ids. A claim held by
	// another coordinator is left in place.
	Release(ctx context.Context, ids []int64, coordinatorID uuid.UUID) error
}

// Repository manages build request records outside the claim path.
type Repository interface {
	ClaimStore

	Create(ctx context.Context, r domainbr.BuildRequest) (domainbr.BuildRequest, error)
	GetByID(ctx context.Context, id int64) (domainbr.BuildRequest, error)
	List(ctx context.Context, filters domainbr.ListFilters) ([]domainbr.BuildRequest, error)

	// Complete marks requests complete with the given result. Already-complete ids are
	// left untouched.
	Complete(ctx context.Context, ids []int64, result domainbr.Result) error

	// CompleteUnclaimed completes a request only if nobody holds a claim on it.
	// Returns ErrClaimed when a claim exists.
	CompleteUnclaimed(ctx context.Context, id int64, result domainbr.Result) error

	// ReleaseByCoordinator drops claims held by coordinatorID on incomplete requests that
	// have no running build, returning the released requests.
	ReleaseByCoordinator(ctx context.Context, coordinatorID uuid.UUID) ([]domainbr.BuildRequest, error)
}
