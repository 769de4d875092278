package mcp

import (
	"context"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	brsvc "github.com/alanyang/build-mesh/internal/service/buildrequest"
	buildsvc "github.com/alanyang/build-mesh/internal/service/build"
	buildersvc "github.com/alanyang/build-mesh/internal/service/builder"
	workersvc "github.com/alanyang/build-mesh/internal/service/worker"
	"github.com/alanyang/build-mesh/internal/transport/ws"
)

// Services bundles what the MCP tools call into.
type Services struct {
	Requests *brsvc.Service
	Workers  *workersvc.Service
	Builds   *buildsvc.Service
	Builders *buildersvc.Service
	Status   StatusSource
}

// Server wraps the mark3labs/mcp-go MCPServer and its StreamableHTTPServer.
// [SRP] HTTP server lifecycle only (start, stop, session open/close).
//
//	Tools are registered in tools.go, session state in registry.go.
type Server struct {
	httpSrv *mcpserver.StreamableHTTPServer
	reg     *SessionRegistry
	hooks   ws.SessionHooks
}

// New creates the MCP transport server. Worker sessions report open and close through
// the same hooks the websocket hub uses.
func New(reg *SessionRegistry, svcs Services, hooks ws.SessionHooks) *Server {
	s := &Server{reg: reg, hooks: hooks}

	serverHooks := &mcpserver.Hooks{}
	serverHooks.OnUnregisterSession = append(serverHooks.OnUnregisterSession, s.onSessionClose)

	mcpSrv := mcpserver.NewMCPServer(
		"build-mesh",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithHooks(serverHooks),
	)

	// Inject the mcp-go server into the registry (breaks the init cycle).
	reg.SetMCPServer(mcpSrv)

	RegisterTools(mcpSrv, reg, svcs, hooks)

	s.httpSrv = mcpserver.NewStreamableHTTPServer(mcpSrv)
	return s
}

// Handler returns an http.Handler that serves the MCP endpoint.
func (s *Server) Handler() http.Handler {
	return s.httpSrv
}

// Registry returns the session registry (implements WorkerNotifier).
func (s *Server) Registry() *SessionRegistry {
	return s.reg
}

func (s *Server) onSessionClose(ctx context.Context, session mcpserver.ClientSession) {
	workerID, ok := s.reg.Unregister(session.SessionID())
	if !ok {
		return
	}
	slog.InfoContext(ctx, "mcp: session closed", "session_id", session.SessionID(), "worker_id", workerID)
	if s.hooks.Closed != nil {
		s.hooks.Closed(context.WithoutCancel(ctx), workerID)
	}
}
