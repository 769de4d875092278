package wire

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/alanyang/build-mesh/internal/config"
	domaincoord "github.com/alanyang/build-mesh/internal/domain/coordinator"
	"github.com/alanyang/build-mesh/internal/domain/event"
	"github.com/alanyang/build-mesh/internal/metrics"
	buildsvc "github.com/alanyang/build-mesh/internal/service/build"
	buildersvc "github.com/alanyang/build-mesh/internal/service/builder"
	brsvc "github.com/alanyang/build-mesh/internal/service/buildrequest"
	coordsvc "github.com/alanyang/build-mesh/internal/service/coordinator"
	distsvc "github.com/alanyang/build-mesh/internal/service/distributor"
	"github.com/alanyang/build-mesh/internal/service/policy"
	workersvc "github.com/alanyang/build-mesh/internal/service/worker"

	"github.com/alanyang/build-mesh/internal/transport"
	mcptransport "github.com/alanyang/build-mesh/internal/transport/mcp"
	wshandler "github.com/alanyang/build-mesh/internal/transport/ws"
)

// buildersReloadDebounce coalesces bursts of writes to the builders file.
const buildersReloadDebounce = 500 * time.Millisecond

// App holds the top-level resources needed to run and gracefully stop the server.
type App struct {
	Server      *http.Server
	Coordinator *coordsvc.Service
	Distributor *distsvc.Service
	Builders    *buildersvc.Service

	stores       *stores
	watcher      *config.BuildersWatcher
	reaper       *workerReaper
	housekeeping gocron.Scheduler
}

// Build is the composition root: the only place concrete types are wired to their
// interface dependencies.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	self := domaincoord.New(cfg.CoordinatorName)

	// ── Adapters ─────────────────────────────────────────────────────────────
	st, err := openStores(ctx, cfg, self.ID)
	if err != nil {
		return nil, err
	}
	app := &App{stores: st}
	ok := false
	defer func() {
		if !ok {
			app.Close(context.WithoutCancel(ctx))
		}
	}()

	// ── Services ─────────────────────────────────────────────────────────────

	// The distributor depends on the builder registry, which depends on the build
	// starter, which requests attention from the distributor. The relay is bound once
	// the distributor exists.
	relay := &attentionRelay{}

	workerSvc := workersvc.NewService(st.Workers, st.Builds, st.Requests, st.Bus, relay)

	notifier := &sessionNotifier{}
	app.reaper = newWorkerReaper(workerSvc, notifier.hasSession, cfg.WorkerGrace, cfg.StartupWorkerGrace)
	hooks := app.reaper.hooks()
	hub := wshandler.NewHub(hooks)
	reg := mcptransport.NewSessionRegistry()
	notifier.hub = hub
	notifier.mcp = reg

	buildSvc := buildsvc.NewService(self.ID, st.Builds, st.Requests, st.Workers, st.Bus, notifier, relay)
	builderSvc := buildersvc.NewService(buildSvc, st.Bus, relay)
	requestSvc := brsvc.NewService(st.Requests, builderSvc, st.Bus, relay)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(promReg)

	order, err := policy.ResolveQueueOrder(cfg.QueueOrder, st.Requests)
	if err != nil {
		return nil, fmt.Errorf("QUEUE_ORDER: %w", err)
	}
	distSvc := distsvc.NewService(self.ID, builderSvc, st.Requests, st.Workers,
		distsvc.WithQueueOrder(order),
		distsvc.WithRecorder(recorder),
	)
	relay.bind(distSvc)
	app.Distributor = distSvc
	app.Builders = builderSvc

	// ── Builders ─────────────────────────────────────────────────────────────
	builders, err := config.LoadBuilders(cfg.BuildersFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("builders file not found, starting with no builders", "path", cfg.BuildersFile)
	case err != nil:
		return nil, fmt.Errorf("loading builders: %w", err)
	}
	if err := builderSvc.Reconfigure(ctx, builders); err != nil {
		return nil, fmt.Errorf("configuring builders: %w", err)
	}

	watcher, err := config.NewBuildersWatcher(cfg.BuildersFile, builderSvc.Reconfigure, buildersReloadDebounce)
	if err != nil {
		return nil, fmt.Errorf("builders watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		slog.Warn("builders file will not be reloaded", "error", err)
	} else {
		app.watcher = watcher
	}

	// ── Coordinator ──────────────────────────────────────────────────────────
	coordSvc, err := coordsvc.NewService(self, st.Coordinators, st.Requests, st.Locker, st.Bus, relay, coordsvc.Config{
		HeartbeatInterval: cfg.CoordinatorHeartbeat,
		ReclaimInterval:   cfg.ReclaimInterval,
		Timeout:           cfg.CoordinatorTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("coordinator: %w", err)
	}
	if err := coordSvc.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting coordinator: %w", err)
	}
	app.Coordinator = coordSvc

	// Work submitted or capacity freed through another coordinator arrives as events.
	subscribeRemoteAttention(ctx, st, self.ID, distSvc)

	// ── Transport ─────────────────────────────────────────────────────────────
	mcpServer := mcptransport.New(reg, mcptransport.Services{
		Requests: requestSvc,
		Workers:  workerSvc,
		Builds:   buildSvc,
		Builders: builderSvc,
		Status:   distSvc,
	}, hooks)

	router := transport.NewRouter(ctx, transport.Deps{
		Requests:    requestSvc,
		Workers:     workerSvc,
		Builds:      buildSvc,
		Builders:    builderSvc,
		Distributor: distSvc,
		Hub:         hub,
		Idempotency: st.Idempotency,
		EventBus:    st.Bus,
		Metrics:     metrics.HTTPHandler(promReg),
		MCP:         mcpServer.Handler(),
	})

	app.Server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Event-Driven Grace-Period Reaper ──────────────────────────────────────
	app.reaper.start(ctx, st.Bus)
	keys, _ := st.Idempotency.(pruner)
	app.housekeeping, err = startHousekeeping(ctx, app.reaper, keys, cfg.IdempotencyTTL)
	if err != nil {
		return nil, err
	}

	// Requests persisted before this coordinator started are picked up by one pass
	// over every configured builder.
	distSvc.RequestAttention(builderSvc.Names()...)

	slog.Info("application wired",
		"port", cfg.Port,
		"coordinator_id", self.ID,
		"builders", len(builderSvc.Names()),
	)
	ok = true
	return app, nil
}

// subscribeRemoteAttention forwards attention-worthy events published by other
// coordinators to the local distributor.
func subscribeRemoteAttention(ctx context.Context, st *stores, self uuid.UUID, dist *distsvc.Service) {
	for _, ch := range event.AllChannels() {
		c := ch
		if _, err := st.Bus.Subscribe(ctx, c, func(_ context.Context, e event.Event) {
			if e.CoordinatorID == self || !e.WantsAttention() || len(e.Builders) == 0 {
				return
			}
			dist.RequestAttention(e.Builders...)
		}); err != nil {
			slog.Error("failed to subscribe to remote events", "channel", c, "error", err)
		}
	}
}

// Close stops background work and releases the stores. The HTTP server must already
// be shut down.
func (a *App) Close(ctx context.Context) {
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			slog.Error("builders watcher stop failed", "error", err)
		}
	}
	if a.housekeeping != nil {
		if err := a.housekeeping.Shutdown(); err != nil {
			slog.Error("housekeeping shutdown failed", "error", err)
		}
	}
	if a.reaper != nil {
		a.reaper.stop()
	}
	drained := true
	if a.Distributor != nil {
		if err := a.Distributor.Stop(ctx); err != nil {
			slog.Error("distributor stop failed", "error", err)
			drained = false
		}
	}
	if a.Coordinator != nil {
		stopCoordinator(ctx, a.Coordinator, drained)
	}
	if a.stores != nil {
		a.stores.Close()
	}
}

type coordinatorStopper interface {
	Stop(ctx context.Context) error
	Abandon(ctx context.Context)
}

// stopCoordinator hands the claims back only once the distributor has drained. A pass
// still running could otherwise start a build on a request released here.
func stopCoordinator(ctx context.Context, c coordinatorStopper, drained bool) {
	if !drained {
		c.Abandon(ctx)
		return
	}
	if err := c.Stop(ctx); err != nil {
		slog.Error("coordinator stop failed", "error", err)
	}
}
