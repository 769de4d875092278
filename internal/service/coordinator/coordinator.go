package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	domaincoord "github.com/alanyang/build-mesh/internal/domain/coordinator"
	"github.com/alanyang/build-mesh/internal/domain/event"
	portbr "github.com/alanyang/build-mesh/internal/port/buildrequest"
	portcoord "github.com/alanyang/build-mesh/internal/port/coordinator"
	portdist "github.com/alanyang/build-mesh/internal/port/distributor"
	portbus "github.com/alanyang/build-mesh/internal/port/eventbus"
	portlocker "github.com/alanyang/build-mesh/internal/port/locker"
)

// reclaimLockKey serialises reclaim sweeps across coordinators.
const reclaimLockKey int64 = 0x62_6d_72_65_63_6c

type Config struct {
	HeartbeatInterval time.Duration
	ReclaimInterval   time.Duration
	// Timeout is how long a coordinator may go unseen before its claims are released.
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 10 * time.Second,
		ReclaimInterval:   30 * time.Second,
		Timeout:           60 * time.Second,
	}
}

// Service keeps this coordinator's liveness record current and returns the claims of
// coordinators that stopped heartbeating to the queue.
type Service struct {
	self      domaincoord.Coordinator
	repo      portcoord.Repository
	requests  portbr.Repository
	locker    portlocker.AdvisoryLocker
	bus       portbus.EventBus
	attention portdist.AttentionRequester
	cfg       Config

	scheduler gocron.Scheduler
}

func NewService(
	self domaincoord.Coordinator,
	repo portcoord.Repository,
	requests portbr.Repository,
	locker portlocker.AdvisoryLocker,
	bus portbus.EventBus,
	attention portdist.AttentionRequester,
	cfg Config,
) (*Service, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Service{
		self:      self,
		repo:      repo,
		requests:  requests,
		locker:    locker,
		bus:       bus,
		attention: attention,
		cfg:       cfg,
		scheduler: s,
	}, nil
}

func (s *Service) ID() uuid.UUID { return s.self.ID }

func (s *Service) Self() domaincoord.Coordinator { return s.self }

// Start registers the coordinator and schedules the heartbeat and reclaim jobs.
func (s *Service) Start(ctx context.Context) error {
	if err := s.repo.Register(ctx, s.self); err != nil {
		return fmt.Errorf("register coordinator: %w", err)
	}

	if _, err := s.scheduler.NewJob(
		gocron.DurationJob(s.cfg.HeartbeatInterval),
		gocron.NewTask(func() {
			if err := s.Heartbeat(ctx); err != nil {
				slog.ErrorContext(ctx, "coordinator heartbeat failed", "error", err)
			}
		}),
		gocron.WithName("coordinator-heartbeat"),
	); err != nil {
		return fmt.Errorf("schedule heartbeat: %w", err)
	}

	if _, err := s.scheduler.NewJob(
		gocron.DurationJob(s.cfg.ReclaimInterval),
		gocron.NewTask(func() {
			if _, err := s.Reclaim(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim failed", "error", err)
			}
		}),
		gocron.WithName("reclaim-claims"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("schedule reclaim: %w", err)
	}

	s.scheduler.Start()
	slog.InfoContext(ctx, "coordinator started", "coordinator_id", s.self.ID, "name", s.self.Name)
	return nil
}

// Stop shuts the scheduler down, marks the coordinator inactive and hands back the
// claims it holds on requests that never started.
func (s *Service) Stop(ctx context.Context) error {
	if err := s.scheduler.Shutdown(); err != nil {
		slog.ErrorContext(ctx, "scheduler shutdown failed", "error", err)
	}
	if err := s.repo.SetActive(ctx, s.self.ID, false); err != nil {
		return fmt.Errorf("mark coordinator inactive: %w", err)
	}
	released, err := s.requests.ReleaseByCoordinator(ctx, s.self.ID)
	if err != nil {
		return fmt.Errorf("release own claims: %w", err)
	}
	s.publishReleased(ctx, released)
	slog.InfoContext(ctx, "coordinator stopped", "coordinator_id", s.self.ID, "released", len(released))
	return nil
}

// Abandon stops heartbeating without touching the row or the claims. Used when work
// may still be in flight: peers reclaim the claims once this coordinator times out.
func (s *Service) Abandon(ctx context.Context) {
	if err := s.scheduler.Shutdown(); err != nil {
		slog.ErrorContext(ctx, "scheduler shutdown failed", "error", err)
	}
	slog.WarnContext(ctx, "coordinator abandoned, claims left for reclaim", "coordinator_id", s.self.ID)
}

func (s *Service) Heartbeat(ctx context.Context) error {
	if err := s.repo.Heartbeat(ctx, s.self.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("coordinator heartbeat: %w", err)
	}
	return nil
}

// Reclaim releases the claims of every coordinator unseen for longer than the timeout.
// Only requests without a running build are released. Returns the number released.
func (s *Service) Reclaim(ctx context.Context) (int, error) {
	var released []domainbr.BuildRequest

	err := s.locker.WithLock(ctx, reclaimLockKey, func(ctx context.Context) error {
		stale, err := s.repo.ListStale(ctx, time.Now().UTC().Add(-s.cfg.Timeout))
		if err != nil {
			return fmt.Errorf("list stale coordinators: %w", err)
		}
		for _, c := range stale {
			if c.ID == s.self.ID {
				continue
			}
			if err := s.repo.SetActive(ctx, c.ID, false); err != nil {
				slog.ErrorContext(ctx, "failed to mark coordinator inactive", "coordinator_id", c.ID, "error", err)
				continue
			}
			reqs, err := s.requests.ReleaseByCoordinator(ctx, c.ID)
			if err != nil {
				slog.ErrorContext(ctx, "failed to release claims", "coordinator_id", c.ID, "error", err)
				continue
			}
			slog.InfoContext(ctx, "reclaimed claims of stale coordinator",
				"coordinator_id", c.ID, "name", c.Name, "released", len(reqs))
			released = append(released, reqs...)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.publishReleased(ctx, released)
	if builders := buildersOf(released); len(builders) > 0 {
		s.attention.RequestAttention(builders...)
	}
	return len(released), nil
}

func (s *Service) publishReleased(ctx context.Context, released []domainbr.BuildRequest) {
	for _, r := range released {
		e := event.New(event.TypeBuildRequestReleased, strconv.FormatInt(r.ID, 10), r.Builder)
		if err := s.bus.Publish(ctx, e); err != nil {
			slog.ErrorContext(ctx, "failed to publish BuildRequestReleased event", "request_id", r.ID, "error", err)
		}
	}
}

func buildersOf(reqs []domainbr.BuildRequest) []string {
	var names []string
	for _, r := range reqs {
		if !slices.Contains(names, r.Builder) {
			names = append(names, r.Builder)
		}
	}
	return names
}
