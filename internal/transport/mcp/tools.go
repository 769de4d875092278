package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	brsvc "github.com/alanyang/build-mesh/internal/service/buildrequest"
	"github.com/alanyang/build-mesh/internal/service/distributor"
	workersvc "github.com/alanyang/build-mesh/internal/service/worker"
	"github.com/alanyang/build-mesh/internal/transport/ws"
)

// StatusSource reports the distributor's loop state.
type StatusSource interface {
	State() distributor.Status
}

// RegisterTools registers all MCP tools on the server.
// [SRP] Tool registration only.
// [OCP] Add a new tool by adding a new AddTool call; server.go never changes.
func RegisterTools(s *mcpserver.MCPServer, reg *SessionRegistry, svcs Services, hooks ws.SessionHooks) {
	s.AddTool(mcpmcp.NewTool("register_worker",
		mcpmcp.WithDescription("Register this session as a worker. Returns the worker_id. Build assignments arrive as notifications on this session. Re-registering with the same name keeps the worker_id."),
		mcpmcp.WithString("name", mcpmcp.Required(), mcpmcp.Description("Unique worker name")),
		mcpmcp.WithString("builders", mcpmcp.Required(), mcpmcp.Description("Comma-separated builder names this worker serves")),
		mcpmcp.WithString("tags", mcpmcp.Description("Comma-separated capability tags, e.g. linux,gpu")),
		mcpmcp.WithNumber("max_builds", mcpmcp.Description("Concurrent build slots (default 1)")),
	), registerWorkerHandler(reg, svcs.Workers, hooks))

	s.AddTool(mcpmcp.NewTool("worker_heartbeat",
		mcpmcp.WithDescription("Report that the worker is alive."),
		mcpmcp.WithString("worker_id", mcpmcp.Required(), mcpmcp.Description("Worker UUID returned by register_worker")),
	), heartbeatHandler(svcs.Workers, hooks))

	s.AddTool(mcpmcp.NewTool("finish_build",
		mcpmcp.WithDescription("Report the result of an assigned build. Frees the worker slot and completes the build request."),
		mcpmcp.WithString("build_id", mcpmcp.Required(), mcpmcp.Description("Build UUID from the build_assigned notification")),
		mcpmcp.WithString("result", mcpmcp.Required(), mcpmcp.Description("One of: success, failure")),
	), finishBuildHandler(svcs))

	s.AddTool(mcpmcp.NewTool("submit_build_request",
		mcpmcp.WithDescription("Queue a build request for a builder. Returns the stored request."),
		mcpmcp.WithString("builder", mcpmcp.Required(), mcpmcp.Description("Builder name")),
		mcpmcp.WithNumber("priority", mcpmcp.Description("Higher runs first under the priority policy")),
		mcpmcp.WithString("required_tags", mcpmcp.Description("Comma-separated tags a worker must carry")),
		mcpmcp.WithString("reason", mcpmcp.Description("Free-form reason shown on the dashboard")),
	), submitHandler(svcs.Requests))

	s.AddTool(mcpmcp.NewTool("cancel_build_request",
		mcpmcp.WithDescription("Cancel a build request that no coordinator has claimed yet."),
		mcpmcp.WithNumber("request_id", mcpmcp.Required(), mcpmcp.Description("Build request id")),
	), cancelHandler(svcs.Requests))

	s.AddTool(mcpmcp.NewTool("list_build_requests",
		mcpmcp.WithDescription("List build requests, oldest first."),
		mcpmcp.WithString("builder", mcpmcp.Description("Only this builder")),
		mcpmcp.WithBoolean("pending_only", mcpmcp.Description("Only requests that are not complete")),
	), listRequestsHandler(svcs.Requests))

	s.AddTool(mcpmcp.NewTool("list_builders",
		mcpmcp.WithDescription("List configured builders and their policies."),
	), func(_ context.Context, _ mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		return jsonResult(svcs.Builders.List()), nil
	})

	s.AddTool(mcpmcp.NewTool("distributor_status",
		mcpmcp.WithDescription("Report the distributor state and the builders waiting for a pass."),
	), func(_ context.Context, _ mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		return jsonResult(svcs.Status.State()), nil
	})
}

// ── Tool handlers ─────────────────────────────────────────────────────────

func registerWorkerHandler(reg *SessionRegistry, workers *workersvc.Service, hooks ws.SessionHooks) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		in := workersvc.ConnectInput{
			Name:      mcpmcp.ParseString(req, "name", ""),
			Builders:  splitList(mcpmcp.ParseString(req, "builders", "")),
			Tags:      splitList(mcpmcp.ParseString(req, "tags", "")),
			MaxBuilds: mcpmcp.ParseInt(req, "max_builds", 1),
		}

		w, err := workers.Connect(ctx, in)
		if err != nil {
			return errorResult(err), nil
		}

		if session := mcpserver.ClientSessionFromContext(ctx); session != nil {
			reg.Register(session.SessionID(), w.ID)
			if hooks.Opened != nil {
				hooks.Opened(context.WithoutCancel(ctx), w.ID)
			}
		}
		return jsonResult(map[string]string{"worker_id": w.ID.String()}), nil
	}
}

func heartbeatHandler(workers *workersvc.Service, hooks ws.SessionHooks) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		id, err := uuid.Parse(mcpmcp.ParseString(req, "worker_id", ""))
		if err != nil {
			return mcpmcp.NewToolResultText("error: invalid worker_id"), nil
		}
		if err := workers.Heartbeat(ctx, id); err != nil {
			return errorResult(err), nil
		}
		if hooks.Activity != nil {
			hooks.Activity(context.WithoutCancel(ctx), id)
		}
		return mcpmcp.NewToolResultText(`{"ok":true}`), nil
	}
}

func finishBuildHandler(svcs Services) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		id, err := uuid.Parse(mcpmcp.ParseString(req, "build_id", ""))
		if err != nil {
			return mcpmcp.NewToolResultText("error: invalid build_id"), nil
		}
		result := domainbr.Result(mcpmcp.ParseString(req, "result", ""))
		if result != domainbr.ResultSuccess && result != domainbr.ResultFailure {
			return mcpmcp.NewToolResultText("error: result must be one of: success, failure"), nil
		}

		b, err := svcs.Builds.FinishBuild(ctx, id, result)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(b), nil
	}
}

func submitHandler(requests *brsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		created, err := requests.Submit(ctx, brsvc.SubmitInput{
			Builder:      mcpmcp.ParseString(req, "builder", ""),
			Priority:     mcpmcp.ParseInt(req, "priority", 0),
			RequiredTags: splitList(mcpmcp.ParseString(req, "required_tags", "")),
			Reason:       mcpmcp.ParseString(req, "reason", ""),
		})
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(created), nil
	}
}

func cancelHandler(requests *brsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		id := mcpmcp.ParseInt64(req, "request_id", 0)
		if id <= 0 {
			return mcpmcp.NewToolResultText("error: invalid request_id"), nil
		}
		cancelled, err := requests.Cancel(ctx, id)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(cancelled), nil
	}
}

func listRequestsHandler(requests *brsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		var filters domainbr.ListFilters
		if b := mcpmcp.ParseString(req, "builder", ""); b != "" {
			filters.Builder = &b
		}
		if mcpmcp.ParseBoolean(req, "pending_only", false) {
			complete := false
			filters.Complete = &complete
		}

		reqs, err := requests.List(ctx, filters)
		if err != nil {
			return errorResult(err), nil
		}
		if reqs == nil {
			reqs = []domainbr.BuildRequest{}
		}
		return jsonResult(reqs), nil
	}
}

// ── helpers ───────────────────────────────────────────────────────────────

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func jsonResult(v any) *mcpmcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(err)
	}
	return mcpmcp.NewToolResultText(string(data))
}

func errorResult(err error) *mcpmcp.CallToolResult {
	return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err))
}
