package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbuild "github.com/alanyang/build-mesh/internal/domain/build"
	domainbuilder "github.com/alanyang/build-mesh/internal/domain/builder"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	domainworker "github.com/alanyang/build-mesh/internal/domain/worker"
	buildsvc "github.com/alanyang/build-mesh/internal/service/build"
	brsvc "github.com/alanyang/build-mesh/internal/service/buildrequest"
	workersvc "github.com/alanyang/build-mesh/internal/service/worker"
	"github.com/alanyang/build-mesh/internal/testutil"
	"github.com/alanyang/build-mesh/internal/transport/ws"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func newStack(t *testing.T) *testutil.Stack {
	t.Helper()
	return testutil.NewStack(t, domainbuilder.Builder{Name: "linux"})
}

func brSubmit(builder string) brsvc.SubmitInput {
	return brsvc.SubmitInput{Builder: builder}
}

func makeReq(args map[string]any) mcpmcp.CallToolRequest {
	var req mcpmcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(r *mcpmcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	b, _ := json.Marshal(r.Content[0])
	var m map[string]interface{}
	json.Unmarshal(b, &m) //nolint:errcheck
	if t, ok := m["text"].(string); ok {
		return t
	}
	return ""
}

// ── register_worker ───────────────────────────────────────────────────────────

func TestRegisterWorkerHandler(t *testing.T) {
	tests := []struct {
		name         string
		args         map[string]any
		wantContains string
		wantWorker   bool
	}{
		{
			name:       "worker registered and id returned",
			args:       map[string]any{"name": "w1", "builders": "linux, mac", "tags": "gpu", "max_builds": 2},
			wantWorker: true,
		},
		{
			name:         "missing builders returns error text",
			args:         map[string]any{"name": "w1", "builders": " , "},
			wantContains: "error:",
		},
		{
			name:         "missing name returns error text",
			args:         map[string]any{"builders": "linux"},
			wantContains: "error:",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := newStack(t)
			h := registerWorkerHandler(NewSessionRegistry(), st.WorkerSvc, ws.SessionHooks{})

			res, err := h(context.Background(), makeReq(tc.args))
			require.NoError(t, err)
			text := resultText(res)

			if tc.wantContains != "" {
				assert.Contains(t, text, tc.wantContains)
				return
			}
			var out map[string]string
			require.NoError(t, json.Unmarshal([]byte(text), &out))
			id, err := uuid.Parse(out["worker_id"])
			require.NoError(t, err)

			w, err := st.Workers.GetByID(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, []string{"linux", "mac"}, w.Builders)
			assert.Equal(t, []string{"gpu"}, w.Tags)
			assert.Equal(t, 2, w.MaxBuilds)
			assert.Contains(t, st.Attention.Builders(), "linux")
		})
	}
}

// ── submit / cancel / list ────────────────────────────────────────────────────

func TestSubmitHandler(t *testing.T) {
	st := newStack(t)
	h := submitHandler(st.RequestSvc)

	res, err := h(context.Background(), makeReq(map[string]any{"builder": "linux", "required_tags": "gpu", "priority": 3}))
	require.NoError(t, err)
	var created domainbr.BuildRequest
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &created))
	assert.Equal(t, "linux", created.Builder)
	assert.Equal(t, 3, created.Priority)
	assert.Equal(t, []string{"gpu"}, created.RequiredTags)

	res, err = h(context.Background(), makeReq(map[string]any{"builder": "nope"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "error:")
}

func TestCancelHandler(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()
	created, err := st.RequestSvc.Submit(ctx, brSubmit("linux"))
	require.NoError(t, err)

	h := cancelHandler(st.RequestSvc)
	res, err := h(ctx, makeReq(map[string]any{"request_id": created.ID}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), `"complete":true`)

	res, err = h(ctx, makeReq(map[string]any{"request_id": created.ID}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "error:")

	res, err = h(ctx, makeReq(map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, "error: invalid request_id", resultText(res))
}

func TestListRequestsHandler_PendingOnly(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()
	done, err := st.RequestSvc.Submit(ctx, brSubmit("linux"))
	require.NoError(t, err)
	_, err = st.RequestSvc.Submit(ctx, brSubmit("linux"))
	require.NoError(t, err)
	_, err = st.RequestSvc.Cancel(ctx, done.ID)
	require.NoError(t, err)

	res, err := listRequestsHandler(st.RequestSvc)(ctx, makeReq(map[string]any{"builder": "linux", "pending_only": true}))
	require.NoError(t, err)
	var reqs []domainbr.BuildRequest
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &reqs))
	require.Len(t, reqs, 1)
	assert.NotEqual(t, done.ID, reqs[0].ID)
}

// ── finish_build / heartbeat ──────────────────────────────────────────────────

func TestFinishBuildHandler(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	w, err := st.WorkerSvc.Connect(ctx, workersvc.ConnectInput{Name: "w1", Builders: []string{"linux"}})
	require.NoError(t, err)
	req, err := st.RequestSvc.Submit(ctx, brSubmit("linux"))
	require.NoError(t, err)
	started, err := st.BuildSvc.StartBuild(ctx, w, req)
	require.NoError(t, err)
	require.True(t, started)

	calls := st.Notifier.WorkerNotifications(w.ID)
	require.Len(t, calls, 1)
	assignment, ok := calls[0].Event.(buildsvc.Assignment)
	require.True(t, ok)

	h := finishBuildHandler(Services{Builds: st.BuildSvc})
	res, err := h(ctx, makeReq(map[string]any{"build_id": assignment.Build.ID.String(), "result": "success"}))
	require.NoError(t, err)

	var finished domainbuild.Build
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &finished))
	require.NotNil(t, finished.Results)
	assert.Equal(t, domainbr.ResultSuccess, *finished.Results)

	got, err := st.Requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, got.Complete)

	wk, err := st.Workers.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, wk.RunningBuilds)
}

func TestFinishBuildHandler_InvalidArgs(t *testing.T) {
	st := newStack(t)
	h := finishBuildHandler(Services{Builds: st.BuildSvc})

	res, err := h(context.Background(), makeReq(map[string]any{"build_id": "nope", "result": "success"}))
	require.NoError(t, err)
	assert.Equal(t, "error: invalid build_id", resultText(res))

	res, err = h(context.Background(), makeReq(map[string]any{"build_id": uuid.NewString(), "result": "lost"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "result must be one of")

	res, err = h(context.Background(), makeReq(map[string]any{"build_id": uuid.NewString(), "result": "success"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), domainbuild.ErrNotFound.Error())
}

func TestHeartbeatHandler(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()
	w, err := st.WorkerSvc.Connect(ctx, workersvc.ConnectInput{Name: "w1", Builders: []string{"linux"}})
	require.NoError(t, err)

	var active []uuid.UUID
	hooks := ws.SessionHooks{Activity: func(_ context.Context, id uuid.UUID) { active = append(active, id) }}
	h := heartbeatHandler(st.WorkerSvc, hooks)

	res, err := h(ctx, makeReq(map[string]any{"worker_id": w.ID.String()}))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resultText(res))
	assert.Equal(t, []uuid.UUID{w.ID}, active)

	res, err = h(ctx, makeReq(map[string]any{"worker_id": uuid.NewString()}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), domainworker.ErrNotFound.Error())
}
