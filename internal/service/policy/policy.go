// Package policy holds the pluggable decisions of the distribution engine: the order in
// which builders get a turn, which request a builder tries next, which worker it pairs
// with that request, and whether the pair is compatible.
//
// Every decision is a plain function taking a context and returning a value or an error.
// A policy that needs to wait (a remote call, a database lookup) simply blocks; callers
// treat every policy as a potential suspension point.
package policy

import (
	"context"
	"errors"
	"fmt"

	domainbuilder "github.com/alanyang/build-mesh/internal/domain/builder"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	portbr "github.com/alanyang/build-mesh/internal/port/buildrequest"
	portworker "github.com/alanyang/build-mesh/internal/port/worker"
)

var ErrUnknownPolicy = errors.New("unknown policy")

// QueueOrderer orders the builders of one pass. The result must be a permutation of the
// input; the distributor falls back to the input order when it is not.
type QueueOrderer func(ctx context.Context, builders []string) ([]string, error)

// NextBuildFunc picks the next request to try. ok=false means "no build now".
type NextBuildFunc func(ctx context.Context, b domainbuilder.Builder, requests []domainbr.BuildRequest) (req domainbr.BuildRequest, ok bool, err error)

// NextWorkerFunc picks a worker for req among candidates. ok=false means "no worker".
type NextWorkerFunc func(ctx context.Context, b domainbuilder.Builder, workers []portworker.WorkerRef, req domainbr.BuildRequest) (w portworker.WorkerRef, ok bool, err error)

// CanStartBuildFunc reports whether the worker may run the request.
type CanStartBuildFunc func(ctx context.Context, w portworker.WorkerRef, req domainbr.BuildRequest) (bool, error)

// Set is the resolved policy triple of one builder.
type Set struct {
	NextBuild     NextBuildFunc
	NextWorker    NextWorkerFunc
	CanStartBuild CanStartBuildFunc
}

// Defaults returns oldest-first, uniform random, always compatible.
func Defaults() Set {
	return Set{
		NextBuild:     OldestFirst,
		NextWorker:    RandomWorker,
		CanStartBuild: AlwaysCompatible,
	}
}

const (
	NextBuildOldest   = "oldest"
	NextBuildPriority = "priority"
	NextBuildHold     = "hold"

	NextWorkerRandom      = "random"
	NextWorkerRoundRobin  = "round_robin"
	NextWorkerLeastLoaded = "least_loaded"

	CanStartAlways = "always"
	CanStartTags   = "tags"

	QueueOrderLexicographic = "lexicographic"
	QueueOrderOldest        = "oldest"
)

// Resolve maps the policy names of a builder to functions. Stateful policies
// (round robin) get a fresh instance per call.
func Resolve(b domainbuilder.Builder) (Set, error) {
	set := Defaults()

	switch b.NextBuild {
	case "", NextBuildOldest:
	case NextBuildPriority:
		set.NextBuild = HighestPriority
	case NextBuildHold:
		set.NextBuild = Hold
	default:
		return Set{}, fmt.Errorf("builder %q next_build %q: %w", b.Name, b.NextBuild, ErrUnknownPolicy)
	}

	switch b.NextWorker {
	case "", NextWorkerRandom:
	case NextWorkerRoundRobin:
		set.NextWorker = NewRoundRobin().Next
	case NextWorkerLeastLoaded:
		set.NextWorker = LeastLoaded
	default:
		return Set{}, fmt.Errorf("builder %q next_worker %q: %w", b.Name, b.NextWorker, ErrUnknownPolicy)
	}

	switch b.CanStartBuild {
	case "", CanStartAlways:
	case CanStartTags:
		set.CanStartBuild = TagsCompatible
	default:
		return Set{}, fmt.Errorf("builder %q can_start_build %q: %w", b.Name, b.CanStartBuild, ErrUnknownPolicy)
	}

	return set, nil
}

// ResolveQueueOrder maps a queue-order name to an orderer. store is only used by the
// oldest-request orderer.
func ResolveQueueOrder(name string, store portbr.ClaimStore) (QueueOrderer, error) {
	switch name {
	case "", QueueOrderLexicographic:
		return Lexicographic, nil
	case QueueOrderOldest:
		if store == nil {
			return nil, fmt.Errorf("queue order %q needs a claim store", name)
		}
		return OldestRequestFirst(store), nil
	default:
		return nil, fmt.Errorf("queue order %q: %w", name, ErrUnknownPolicy)
	}
}
