package wire

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyang/build-mesh/internal/adapter/memory"
	natsbus "github.com/alanyang/build-mesh/internal/adapter/nats"
	pgdb "github.com/alanyang/build-mesh/internal/adapter/postgres"
	pgbuild "github.com/alanyang/build-mesh/internal/adapter/postgres/build"
	pgbr "github.com/alanyang/build-mesh/internal/adapter/postgres/buildrequest"
	pgcoord "github.com/alanyang/build-mesh/internal/adapter/postgres/coordinator"
	pgeventbus "github.com/alanyang/build-mesh/internal/adapter/postgres/eventbus"
	pgidem "github.com/alanyang/build-mesh/internal/adapter/postgres/idempotency"
	pglocker "github.com/alanyang/build-mesh/internal/adapter/postgres/locker"
	pgworker "github.com/alanyang/build-mesh/internal/adapter/postgres/worker"
	"github.com/alanyang/build-mesh/internal/adapter/sqlite"
	"github.com/alanyang/build-mesh/internal/config"
	portbuild "github.com/alanyang/build-mesh/internal/port/build"
	portbr "github.com/alanyang/build-mesh/internal/port/buildrequest"
	portcoord "github.com/alanyang/build-mesh/internal/port/coordinator"
	porteventbus "github.com/alanyang/build-mesh/internal/port/eventbus"
	portidem "github.com/alanyang/build-mesh/internal/port/idempotency"
	portlocker "github.com/alanyang/build-mesh/internal/port/locker"
	portworker "github.com/alanyang/build-mesh/internal/port/worker"
)

// pruner is implemented by idempotency stores that need expired keys removed.
// The memory cache expires keys on read and does not implement it.
type pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// stores is one backend's set of adapters plus the functions that release it.
type stores struct {
	Requests     portbr.Repository
	Workers      portworker.Repository
	Builds       portbuild.Repository
	Coordinators portcoord.Repository
	Locker       portlocker.AdvisoryLocker
	Idempotency  portidem.Store
	Bus          porteventbus.EventBus

	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects the storage backend and event bus named by cfg.
func openStores(ctx context.Context, cfg config.Config, origin uuid.UUID) (*stores, error) {
	s := &stores{}
	var pgBus func() porteventbus.EventBus

	switch cfg.Store {
	case config.StorePostgres:
		pool, err := pgdb.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		if err := pgdb.Migrate(ctx, pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		s.Requests = pgbr.New(pool)
		s.Workers = pgworker.New(pool)
		s.Builds = pgbuild.New(pool)
		s.Coordinators = pgcoord.New(pool)
		s.Locker = pglocker.New(pool)
		s.Idempotency = pgidem.New(pool)
		pgBus = func() porteventbus.EventBus {
			bus := pgeventbus.New(pool, origin)
			s.closers = append(s.closers, bus.Close)
			return bus
		}

	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		s.closers = append(s.closers, func() {
			if err := db.Close(); err != nil {
				slog.Error("failed to close sqlite", "error", err)
			}
		})
		s.Requests = sqlite.NewBuildRequestRepository(db)
		s.Workers = sqlite.NewWorkerRepository(db)
		s.Builds = sqlite.NewBuildRepository(db)
		s.Coordinators = sqlite.NewCoordinatorRepository(db)
		s.Locker = memory.NewLocker()
		s.Idempotency = sqlite.NewIdempotencyStore(db)

	case config.StoreMemory:
		db := memory.NewDB()
		s.Requests = memory.NewBuildRequestRepository(db)
		s.Workers = memory.NewWorkerRepository(db)
		s.Builds = memory.NewBuildRepository(db)
		s.Coordinators = memory.NewCoordinatorRepository(db)
		s.Locker = memory.NewLocker()
		s.Idempotency = memory.NewIdempotencyCache(cfg.IdempotencyTTL)

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	switch cfg.EventBus {
	case config.BusPostgres:
		if pgBus == nil {
			s.Close()
			return nil, fmt.Errorf("event bus %q needs the postgres store", cfg.EventBus)
		}
		s.Bus = pgBus()
	case config.BusNATS:
		bus, err := natsbus.Connect(cfg.NATSURL, "build-mesh-"+cfg.CoordinatorName, origin)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connecting to nats: %w", err)
		}
		s.closers = append(s.closers, bus.Close)
		s.Bus = bus
	default:
		s.Bus = memory.NewEventBus(origin)
	}

	slog.Info("storage ready", "store", cfg.Store, "event_bus", cfg.EventBus)
	return s, nil
}
