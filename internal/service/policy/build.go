package policy

import (
	"context"

	domainbuilder "github.com/alanyang/build-mesh/internal/domain/builder"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
)

// OldestFirst selects the earliest submitted request, ties broken by id.
func OldestFirst(_ context.Context, _ domainbuilder.Builder, requests []domainbr.BuildRequest) (domainbr.BuildRequest, bool, error) {
	if len(requests) == 0 {
		return domainbr.BuildRequest{}, false, nil
	}
	best := requests[0]
	for _, r := range requests[1:] {
		if r.Older(best) {
			best = r
		}
	}
	return best, true, nil
}

// HighestPriority selects the request with the largest priority, then the oldest.
func HighestPriority(_ context.Context, _ domainbuilder.Builder, requests []domainbr.BuildRequest) (domainbr.BuildRequest, bool, error) {
	if len(requests) == 0 {
		return domainbr.BuildRequest{}, false, nil
	}
	best := requests[0]
	for _, r := range requests[1:] {
		if r.Priority > best.Priority || (r.Priority == best.Priority && r.Older(best)) {
			best = r
		}
	}
	return best, true, nil
}

// Hold never selects a request. Used to park a builder without removing it.
func Hold(context.Context, domainbuilder.Builder, []domainbr.BuildRequest) (domainbr.BuildRequest, bool, error) {
	return domainbr.BuildRequest{}, false, nil
}
