package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alanyang/build-mesh/internal/domain/event"
	porteventbus "github.com/alanyang/build-mesh/internal/port/eventbus"
	portidem "github.com/alanyang/build-mesh/internal/port/idempotency"
	buildsvc "github.com/alanyang/build-mesh/internal/service/build"
	buildersvc "github.com/alanyang/build-mesh/internal/service/builder"
	brsvc "github.com/alanyang/build-mesh/internal/service/buildrequest"
	workersvc "github.com/alanyang/build-mesh/internal/service/worker"

	buildhandler "github.com/alanyang/build-mesh/internal/transport/build"
	builderhandler "github.com/alanyang/build-mesh/internal/transport/builder"
	brhandler "github.com/alanyang/build-mesh/internal/transport/buildrequest"
	disthandler "github.com/alanyang/build-mesh/internal/transport/distributor"
	workerhandler "github.com/alanyang/build-mesh/internal/transport/worker"
	wshandler "github.com/alanyang/build-mesh/internal/transport/ws"
)

// Deps is everything the HTTP surface serves.
type Deps struct {
	Requests    *brsvc.Service
	Workers     *workersvc.Service
	Builds      *buildsvc.Service
	Builders    *buildersvc.Service
	Distributor disthandler.StatusSource
	Hub         *wshandler.Hub
	Idempotency portidem.Store
	EventBus    porteventbus.EventBus
	Metrics     http.Handler
	MCP         http.Handler
}

func NewRouter(ctx context.Context, d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware())
	r.Use(IdempotencyMiddleware(d.Idempotency))

	api := r.Group("/api")

	brhandler.Register(api.Group("/buildrequests"), d.Requests)
	workerhandler.Register(api.Group("/workers"), d.Workers)
	buildhandler.Register(api.Group("/builds"), d.Builds)
	builderhandler.Register(api.Group("/builders"), d.Builders)
	disthandler.Register(api.Group("/distributor"), d.Distributor)
	d.Hub.Register(api.Group("/ws"))

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}
	if d.MCP != nil {
		r.Any("/mcp", gin.WrapH(d.MCP))
	}

	// Bridge: one subscription per domain channel. All events within a channel are
	// forwarded to WS clients; event.Type in the payload lets the client filter.
	// WorkerHeartbeat is excluded; it carries no actionable state for observers.
	for _, ch := range event.AllChannels() {
		c := ch
		if _, err := d.EventBus.Subscribe(ctx, c, func(_ context.Context, e event.Event) {
			if e.Type == event.TypeWorkerHeartbeat {
				return
			}
			d.Hub.Broadcast(e)
		}); err != nil {
			slog.Error("failed to subscribe channel to WS hub", "channel", c, "error", err)
		}
	}

	return r
}
