package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainbuild "github.com/alanyang/build-mesh/internal/domain/build"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	"github.com/alanyang/build-mesh/internal/domain/event"
	domainworker "github.com/alanyang/build-mesh/internal/domain/worker"
	portbuild "github.com/alanyang/build-mesh/internal/port/build"
	portbr "github.com/alanyang/build-mesh/internal/port/buildrequest"
	portdist "github.com/alanyang/build-mesh/internal/port/distributor"
	portbus "github.com/alanyang/build-mesh/internal/port/eventbus"
	portnotifier "github.com/alanyang/build-mesh/internal/port/notifier"
	portworker "github.com/alanyang/build-mesh/internal/port/worker"
)

var _ portbuild.Starter = (*Service)(nil)

// Assignment is pushed to a worker's session when a build is started on it.
type Assignment struct {
	Type    string                `json:"type"`
	Build   domainbuild.Build     `json:"build"`
	Request domainbr.BuildRequest `json:"request"`
}

// Service owns the build lifecycle: the start side effect the distributor invokes and
// the finish path workers report through.
// [SRP] Starting and finishing builds only; choosing what to start is the distributor's job.
type Service struct {
	coordinatorID uuid.UUID
	builds        portbuild.Repository
	requests      portbr.Repository
	workers       portworker.Repository
	bus           portbus.EventBus
	notifier      portnotifier.WorkerNotifier
	attention     portdist.AttentionRequester
}

func NewService(
	coordinatorID uuid.UUID,
	builds portbuild.Repository,
	requests portbr.Repository,
	workers portworker.Repository,
	bus portbus.EventBus,
	notifier portnotifier.WorkerNotifier,
	attention portdist.AttentionRequester,
) *Service {
	return &Service{
		coordinatorID: coordinatorID,
		builds:        builds,
		requests:      requests,
		workers:       workers,
		bus:           bus,
		notifier:      notifier,
		attention:     attention,
	}
}

// StartBuild reserves a slot on the worker and records the build. A worker that has
// no free slot any more is not an error: the caller releases the claim.
func (s *Service) StartBuild(ctx context.Context, w portworker.WorkerRef, req domainbr.BuildRequest) (bool, error) {
	wk := w.Worker()

	if err := s.workers.ReserveSlot(ctx, wk.ID); err != nil {
		if errors.Is(err, domainworker.ErrNoSlot) || errors.Is(err, domainworker.ErrNotFound) {
			slog.DebugContext(ctx, "worker has no free slot", "worker", wk.Name, "request_id", req.ID)
			return false, nil
		}
		return false, fmt.Errorf("reserve slot on worker %s: %w", wk.Name, err)
	}

	b, err := s.builds.Create(ctx, domainbuild.New(req, wk.ID, s.coordinatorID))
	if err != nil {
		if ferr := s.workers.FreeSlot(ctx, wk.ID); ferr != nil {
			slog.ErrorContext(ctx, "failed to free worker slot", "worker", wk.Name, "error", ferr)
		}
		return false, fmt.Errorf("record build for request %d: %w", req.ID, err)
	}

	// Workers only learn of builds through their session, so an undelivered build is
	// rolled back and the caller releases the claim.
	if err := s.notifier.NotifyWorker(ctx, wk.ID, Assignment{Type: "build_assigned", Build: b, Request: req}); err != nil {
		slog.WarnContext(ctx, "failed to notify worker of build", "worker", wk.Name, "build_id", b.ID, "error", err)
		if ferr := s.builds.Finish(ctx, b.ID, domainbr.ResultLost); ferr != nil {
			slog.ErrorContext(ctx, "failed to finish undelivered build", "build_id", b.ID, "error", ferr)
		}
		if ferr := s.workers.FreeSlot(ctx, wk.ID); ferr != nil {
			slog.ErrorContext(ctx, "failed to free worker slot", "worker", wk.Name, "error", ferr)
		}
		return false, nil
	}

	if err := s.bus.Publish(ctx, event.New(event.TypeBuildStarted, b.ID.String(), req.Builder)); err != nil {
		slog.ErrorContext(ctx, "failed to publish BuildStarted event", "build_id", b.ID, "error", err)
	}

	// A worker with spare slots is offered again on the next pass.
	if wk.RunningBuilds+1 < wk.MaxBuilds {
		s.attention.RequestAttention(wk.Builders...)
	}
	return true, nil
}

// FinishBuild records the result, completes the request and frees the worker slot.
func (s *Service) FinishBuild(ctx context.Context, id uuid.UUID, result domainbr.Result) (domainbuild.Build, error) {
	b, err := s.builds.GetByID(ctx, id)
	if err != nil {
		return domainbuild.Build{}, fmt.Errorf("get build: %w", err)
	}
	if err := s.builds.Finish(ctx, id, result); err != nil {
		return domainbuild.Build{}, fmt.Errorf("finish build: %w", err)
	}
	if err := s.requests.Complete(ctx, []int64{b.RequestID}, result); err != nil {
		return domainbuild.Build{}, fmt.Errorf("complete build request %d: %w", b.RequestID, err)
	}
	if err := s.workers.FreeSlot(ctx, b.WorkerID); err != nil {
		slog.ErrorContext(ctx, "failed to free worker slot", "worker_id", b.WorkerID, "build_id", id, "error", err)
	}

	builders := []string{b.Builder}
	if wk, err := s.workers.GetByID(ctx, b.WorkerID); err == nil && len(wk.Builders) > 0 {
		builders = wk.Builders
	}
	if err := s.bus.Publish(ctx, event.New(event.TypeBuildFinished, id.String(), builders...)); err != nil {
		slog.ErrorContext(ctx, "failed to publish BuildFinished event", "build_id", id, "error", err)
	}
	s.attention.RequestAttention(builders...)

	now := time.Now().UTC()
	b.FinishedAt, b.Results = &now, &result
	return b, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domainbuild.Build, error) {
	b, err := s.builds.GetByID(ctx, id)
	if err != nil {
		return domainbuild.Build{}, fmt.Errorf("get build: %w", err)
	}
	return b, nil
}
