package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	"github.com/alanyang/build-mesh/internal/domain/event"
	domainworker "github.com/alanyang/build-mesh/internal/domain/worker"
	portbuild "github.com/alanyang/build-mesh/internal/port/build"
	portbr "github.com/alanyang/build-mesh/internal/port/buildrequest"
	portdist "github.com/alanyang/build-mesh/internal/port/distributor"
	portbus "github.com/alanyang/build-mesh/internal/port/eventbus"
	portworker "github.com/alanyang/build-mesh/internal/port/worker"
)

var ErrInvalidWorker = errors.New("invalid worker")

// Service manages worker lifecycle: connection, heartbeats, and recovery of the builds
// a lost worker was running.
// [SRP] Worker lifecycle only. Session timers live in the reaper.
type Service struct {
	repo      portworker.Repository
	builds    portbuild.Repository
	requests  portbr.ClaimStore
	bus       portbus.EventBus
	attention portdist.AttentionRequester
}

func NewService(
	repo portworker.Repository,
	builds portbuild.Repository,
	requests portbr.ClaimStore,
	bus portbus.EventBus,
	attention portdist.AttentionRequester,
) *Service {
	return &Service{repo: repo, builds: builds, requests: requests, bus: bus, attention: attention}
}

type ConnectInput struct {
	Name      string   `json:"name"`
	Builders  []string `json:"builders"`
	Tags      []string `json:"tags"`
	MaxBuilds int      `json:"max_builds"`
}

// Connect registers a worker, or re-registers one with the same name, and offers its
// capacity to every builder it serves.
func (s *Service) Connect(ctx context.Context, in ConnectInput) (domainworker.Worker, error) {
	if in.Name == "" {
		return domainworker.Worker{}, fmt.Errorf("%w: name is required", ErrInvalidWorker)
	}
	if len(in.Builders) == 0 {
		return domainworker.Worker{}, fmt.Errorf("%w: at least one builder is required", ErrInvalidWorker)
	}

	w := domainworker.New(in.Name, in.Builders, in.Tags, in.MaxBuilds)
	w.RecordHeartbeat()
	connected, err := s.repo.Upsert(ctx, w)
	if err != nil {
		return domainworker.Worker{}, fmt.Errorf("connect worker: %w", err)
	}

	if err := s.bus.Publish(ctx, event.New(event.TypeWorkerAvailable, connected.ID.String(), connected.Builders...)); err != nil {
		slog.ErrorContext(ctx, "failed to publish WorkerAvailable event", "worker_id", connected.ID, "error", err)
	}
	s.attention.RequestAttention(connected.Builders...)
	slog.InfoContext(ctx, "worker connected", "worker", connected.Name, "builders", connected.Builders)
	return connected, nil
}

// Disconnect takes a worker offline. Builds still running on it are finished as lost
// and their requests go back to the queue.
func (s *Service) Disconnect(ctx context.Context, id uuid.UUID) error {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("disconnect worker: %w", err)
	}
	if err := s.repo.UpdateStatus(ctx, id, domainworker.StatusOffline); err != nil {
		return fmt.Errorf("mark worker offline: %w", err)
	}

	running, err := s.builds.ListRunningByWorker(ctx, id)
	if err != nil {
		return fmt.Errorf("list running builds: %w", err)
	}

	var requeued []string
	for _, b := range running {
		if err := s.builds.Finish(ctx, b.ID, domainbr.ResultLost); err != nil {
			slog.ErrorContext(ctx, "failed to finish lost build", "build_id", b.ID, "error", err)
			continue
		}
		if err := s.repo.FreeSlot(ctx, id); err != nil {
			slog.ErrorContext(ctx, "failed to free worker slot", "worker_id", id, "error", err)
		}
		if err := s.requests.Release(ctx, []int64{b.RequestID}, b.CoordinatorID); err != nil {
			slog.ErrorContext(ctx, "failed to release request of lost build",
				"build_id", b.ID, "request_id", b.RequestID, "error", err)
			continue
		}
		if err := s.bus.Publish(ctx, event.New(event.TypeBuildRequestReleased, strconv.FormatInt(b.RequestID, 10), b.Builder)); err != nil {
			slog.ErrorContext(ctx, "failed to publish BuildRequestReleased event", "request_id", b.RequestID, "error", err)
		}
		if !slices.Contains(requeued, b.Builder) {
			requeued = append(requeued, b.Builder)
		}
	}

	if err := s.bus.Publish(ctx, event.New(event.TypeWorkerLost, id.String(), w.Builders...)); err != nil {
		slog.ErrorContext(ctx, "failed to publish WorkerLost event", "worker_id", id, "error", err)
	}
	if len(requeued) > 0 {
		s.attention.RequestAttention(requeued...)
	}
	slog.InfoContext(ctx, "worker disconnected", "worker", w.Name, "lost_builds", len(running))
	return nil
}

func (s *Service) Heartbeat(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Heartbeat(ctx, id); err != nil {
		return fmt.Errorf("worker heartbeat: %w", err)
	}
	if err := s.bus.Publish(ctx, event.New(event.TypeWorkerHeartbeat, id.String())); err != nil {
		slog.ErrorContext(ctx, "failed to publish WorkerHeartbeat event", "worker_id", id, "error", err)
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (domainworker.Worker, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domainworker.Worker{}, fmt.Errorf("get worker: %w", err)
	}
	return w, nil
}

func (s *Service) List(ctx context.Context, filters domainworker.ListFilters) ([]domainworker.Worker, error) {
	workers, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	return workers, nil
}

// ListStale returns connected workers whose last heartbeat is older than timeout.
func (s *Service) ListStale(ctx context.Context, timeout time.Duration) ([]domainworker.Worker, error) {
	workers, err := s.repo.List(ctx, domainworker.ListFilters{})
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	var stale []domainworker.Worker
	for _, w := range workers {
		if w.Status != domainworker.StatusOffline && w.IsStale(timeout) {
			stale = append(stale, w)
		}
	}
	return stale, nil
}
