package policy

import (
	"context"

	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	portworker "github.com/alanyang/build-mesh/internal/port/worker"
)

func AlwaysCompatible(context.Context, portworker.WorkerRef, domainbr.BuildRequest) (bool, error) {
	return true, nil
}

// TagsCompatible accepts a worker only if it carries every tag the request requires.
func TagsCompatible(_ context.Context, w portworker.WorkerRef, req domainbr.BuildRequest) (bool, error) {
	return w.Worker().HasAllTags(req.RequiredTags), nil
}
