package distributor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	"github.com/alanyang/build-mesh/internal/metrics"
	portbuild "github.com/alanyang/build-mesh/internal/port/build"
	portworker "github.com/alanyang/build-mesh/internal/port/worker"
)

// assignQueue pairs the unclaimed requests of one builder with its available workers
// and returns how many builds were started. An error means the claim store or the
// worker pool could not be reached; policy failures are logged and absorbed.
func (s *Service) assignQueue(ctx context.Context, name string) (int, error) {
	q, ok := s.queues.Queue(name)
	if !ok {
		slog.DebugContext(ctx, "distributor: builder not configured", "builder", name)
		return 0, nil
	}

	requests, err := s.store.ListUnclaimed(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("list unclaimed requests for %q: %w", name, err)
	}
	if len(requests) == 0 {
		return 0, nil
	}

	workers, err := s.pool.AvailableWorkers(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("list available workers for %q: %w", name, err)
	}

	started := 0
	for {
		workers = stillAvailable(workers)
		if len(requests) == 0 || len(workers) == 0 {
			return started, nil
		}

		req, ok, err := callNextBuild(ctx, q, slices.Clone(requests))
		if err != nil {
			slog.ErrorContext(ctx, "distributor: next build policy failed", "builder", name, "error", err)
			s.recorder.IncPolicyError(name, "next_build")
			return started, nil
		}
		if !ok {
			return started, nil
		}
		idx := slices.IndexFunc(requests, func(r domainbr.BuildRequest) bool { return r.ID == req.ID })
		if idx < 0 {
			slog.ErrorContext(ctx, "distributor: next build policy chose an unknown request",
				"builder", name, "request_id", req.ID)
			s.recorder.IncPolicyError(name, "next_build")
			return started, nil
		}
		// Each request is tried at most once per pass, whatever happens below.
		req = requests[idx]
		requests = slices.Delete(requests, idx, idx+1)

		w, ok := s.pickWorker(ctx, q, workers, req)
		if !ok {
			continue
		}

		res, err := s.store.Claim(ctx, []int64{req.ID}, s.coordinatorID)
		if err != nil {
			return started, fmt.Errorf("claim request %d: %w", req.ID, err)
		}
		if !res.IsClaimed(req.ID) {
			slog.DebugContext(ctx, "distributor: request claimed elsewhere", "builder", name, "request_id", req.ID)
			s.recorder.IncAssignment(name, metrics.ResultConflict)
			continue
		}

		if s.startClaimed(ctx, q, w, req) {
			started++
		}
		// A worker is offered at most one build per pass, started or not.
		workers = withoutWorker(workers, w)
	}
}

// pickWorker asks the worker policy for a candidate until one is compatible with req.
// Rejected candidates are removed, so the search ends after at most len(workers) rounds.
func (s *Service) pickWorker(ctx context.Context, q Queue, workers []portworker.WorkerRef, req domainbr.BuildRequest) (portworker.WorkerRef, bool) {
	name := q.Builder.Name
	candidates := slices.Clone(workers)

	for len(candidates) > 0 {
		w, ok, err := callNextWorker(ctx, q, slices.Clone(candidates), req)
		if err != nil {
			slog.ErrorContext(ctx, "distributor: next worker policy failed",
				"builder", name, "request_id", req.ID, "error", err)
			s.recorder.IncPolicyError(name, "next_worker")
			return nil, false
		}
		if !ok {
			s.recorder.IncAssignment(name, metrics.ResultNoWorker)
			return nil, false
		}
		idx := indexOfWorker(candidates, w)
		if idx < 0 {
			slog.ErrorContext(ctx, "distributor: next worker policy chose an unknown worker",
				"builder", name, "request_id", req.ID, "worker", w.Worker().Name)
			s.recorder.IncPolicyError(name, "next_worker")
			return nil, false
		}
		w = candidates[idx]
		candidates = slices.Delete(candidates, idx, idx+1)

		if !w.IsAvailable() {
			continue
		}
		compatible, err := callCanStartBuild(ctx, q, w, req)
		if err != nil {
			slog.ErrorContext(ctx, "distributor: compatibility policy failed",
				"builder", name, "request_id", req.ID, "worker", w.Worker().Name, "error", err)
			s.recorder.IncPolicyError(name, "can_start_build")
			return nil, false
		}
		// The policy may have waited; availability is checked again.
		if compatible && w.IsAvailable() {
			return w, true
		}
	}

	s.recorder.IncAssignment(name, metrics.ResultIncompatible)
	return nil, false
}

// startClaimed hands a claimed request to the starter. A claim that does not turn into
// a running build is released so another pass can retry it.
func (s *Service) startClaimed(ctx context.Context, q Queue, w portworker.WorkerRef, req domainbr.BuildRequest) bool {
	name := q.Builder.Name
	worker := w.Worker()

	started, err := callStarter(ctx, q.Starter, w, req)
	if err == nil && started {
		s.recorder.IncAssignment(name, metrics.ResultStarted)
		slog.InfoContext(ctx, "distributor: build started",
			"builder", name, "request_id", req.ID, "worker", worker.Name)
		return true
	}

	if err != nil {
		slog.ErrorContext(ctx, "distributor: build start failed",
			"builder", name, "request_id", req.ID, "worker", worker.Name, "error", err)
	} else {
		slog.WarnContext(ctx, "distributor: worker did not start build",
			"builder", name, "request_id", req.ID, "worker", worker.Name)
	}
	s.recorder.IncAssignment(name, metrics.ResultStartFailed)

	if err := s.store.Release(ctx, []int64{req.ID}, s.coordinatorID); err != nil {
		slog.ErrorContext(ctx, "distributor: release claim failed",
			"builder", name, "request_id", req.ID, "error", err)
		s.recorder.IncReleaseFailure(name)
	}
	return false
}

func callStarter(ctx context.Context, st portbuild.Starter, w portworker.WorkerRef, req domainbr.BuildRequest) (started bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("build starter panicked: %v", r)
		}
	}()
	if st == nil {
		return false, fmt.Errorf("builder %q has no build starter", req.Builder)
	}
	return st.StartBuild(ctx, w, req)
}

// The policy callers below turn a panicking policy into an error so that it only costs
// the request being decided.

func callNextBuild(ctx context.Context, q Queue, requests []domainbr.BuildRequest) (req domainbr.BuildRequest, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			req, ok, err = domainbr.BuildRequest{}, false, fmt.Errorf("next build policy panicked: %v", r)
		}
	}()
	return q.Policy.NextBuild(ctx, q.Builder, requests)
}

func callNextWorker(ctx context.Context, q Queue, workers []portworker.WorkerRef, req domainbr.BuildRequest) (w portworker.WorkerRef, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			w, ok, err = nil, false, fmt.Errorf("next worker policy panicked: %v", r)
		}
	}()
	return q.Policy.NextWorker(ctx, q.Builder, workers, req)
}

func callCanStartBuild(ctx context.Context, q Queue, w portworker.WorkerRef, req domainbr.BuildRequest) (compatible bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			compatible, err = false, fmt.Errorf("compatibility policy panicked: %v", r)
		}
	}()
	return q.Policy.CanStartBuild(ctx, w, req)
}

func stillAvailable(workers []portworker.WorkerRef) []portworker.WorkerRef {
	return slices.DeleteFunc(workers, func(w portworker.WorkerRef) bool { return !w.IsAvailable() })
}

func indexOfWorker(workers []portworker.WorkerRef, w portworker.WorkerRef) int {
	if w == nil {
		return -1
	}
	id := w.Worker().ID
	return slices.IndexFunc(workers, func(c portworker.WorkerRef) bool { return c.Worker().ID == id })
}

func withoutWorker(workers []portworker.WorkerRef, w portworker.WorkerRef) []portworker.WorkerRef {
	if idx := indexOfWorker(workers, w); idx >= 0 {
		return slices.Delete(workers, idx, idx+1)
	}
	return workers
}
