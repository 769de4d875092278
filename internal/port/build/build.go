package build

import (
	"context"

	"github.com/google/uuid"

	domainbuild "github.com/alanyang/build-mesh/internal/domain/build"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	portworker "github.com/alanyang/build-mesh/internal/port/worker"
)

//go:generate mockgen -destination=../../mocks/build.go -package=mocks -mock_names=Starter=MockBuildStarter,Repository=MockBuildRepository . Starter,Repository

// Starter is the build-start side effect a builder exposes to the distributor.
// started=false means "could not start, release the claim", not a system fault.
type Starter interface {
	StartBuild(ctx context.Context, w portworker.WorkerRef, req domainbr.BuildRequest) (started bool, err error)
}

type Repository interface {
	Create(ctx context.Context, b domainbuild.Build) (domainbuild.Build, error)
	GetByID(ctx context.Context, id uuid.UUID) (domainbuild.Build, error)
	Finish(ctx context.Context, id uuid.UUID, result domainbr.Result) error
	ListRunningByWorker(ctx context.Context, workerID uuid.UUID) ([]domainbuild.Build, error)
}
