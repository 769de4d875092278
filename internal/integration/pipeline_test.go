//go:build integration

package integration_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgbuild "github.com/alanyang/build-mesh/internal/adapter/postgres/build"
	pgbr "github.com/alanyang/build-mesh/internal/adapter/postgres/buildrequest"
	pgeventbus "github.com/alanyang/build-mesh/internal/adapter/postgres/eventbus"
	pgworker "github.com/alanyang/build-mesh/internal/adapter/postgres/worker"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	domainbuilder "github.com/alanyang/build-mesh/internal/domain/builder"
	buildsvc "github.com/alanyang/build-mesh/internal/service/build"
	buildersvc "github.com/alanyang/build-mesh/internal/service/builder"
	brsvc "github.com/alanyang/build-mesh/internal/service/buildrequest"
	distsvc "github.com/alanyang/build-mesh/internal/service/distributor"
	workersvc "github.com/alanyang/build-mesh/internal/service/worker"
	"github.com/alanyang/build-mesh/internal/testutil"
)

// ── test harness ──────────────────────────────────────────────────────────────

// node is one coordinator's service stack over the shared database.
type node struct {
	id        uuid.UUID
	requests  *pgbr.Repository
	notifier  *testutil.CaptureNotifier
	attention *testutil.AttentionLog
	builds    *buildsvc.Service
	builders  *buildersvc.Service
	reqSvc    *brsvc.Service
	workerSvc *workersvc.Service
	dist      *distsvc.Service
}

func newNode(t *testing.T, pool *pgxpool.Pool, builder string) *node {
	t.Helper()
	n := &node{
		id:        uuid.New(),
		requests:  pgbr.New(pool),
		notifier:  &testutil.CaptureNotifier{},
		attention: &testutil.AttentionLog{},
	}
	bus := pgeventbus.New(pool, n.id)
	t.Cleanup(bus.Close)
	workers := pgworker.New(pool)
	builds := pgbuild.New(pool)

	n.builds = buildsvc.NewService(n.id, builds, n.requests, workers, bus, n.notifier, n.attention)
	n.builders = buildersvc.NewService(n.builds, bus, n.attention)
	n.reqSvc = brsvc.NewService(n.requests, n.builders, bus, n.attention)
	n.workerSvc = workersvc.NewService(workers, builds, n.requests, bus, n.attention)
	n.dist = distsvc.NewService(n.id, n.builders, n.requests, workers)

	require.NoError(t, n.builders.Reconfigure(context.Background(), []domainbuilder.Builder{{Name: builder}}))
	t.Cleanup(func() { _ = n.dist.Stop(context.Background()) })
	return n
}

func (n *node) assignments() []buildsvc.Assignment {
	var out []buildsvc.Assignment
	for _, c := range n.notifier.Calls {
		if a, ok := c.Event.(buildsvc.Assignment); ok {
			out = append(out, a)
		}
	}
	return out
}

func runPass(t *testing.T, builder string, nodes ...*node) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for _, n := range nodes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.dist.RequestAttention(builder)
		}()
	}
	wg.Wait()
	for _, n := range nodes {
		require.NoError(t, n.dist.WaitIdle(ctx))
	}
}

// ── tests ─────────────────────────────────────────────────────────────────────

func TestTwoCoordinatorsNeverStartARequestTwice(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	builder := "it-" + uuid.NewString()[:8]

	a := newNode(t, pool, builder)
	b := newNode(t, pool, builder)

	for i, slots := range []int{3, 2} {
		_, err := a.workerSvc.Connect(ctx, workersvc.ConnectInput{
			Name:      builder + "-w" + strconv.Itoa(i),
			Builders:  []string{builder},
			MaxBuilds: slots,
		})
		require.NoError(t, err)
	}
	for range 8 {
		_, err := a.reqSvc.Submit(ctx, brsvc.SubmitInput{Builder: builder})
		require.NoError(t, err)
	}

	// A worker is offered one build per pass, so the three-slot worker needs three.
	for range 4 {
		runPass(t, builder, a, b)
	}

	started := append(a.assignments(), b.assignments()...)
	require.Len(t, started, 5, "five slots across both workers")

	seen := make(map[int64]bool)
	for _, s := range started {
		assert.False(t, seen[s.Request.ID], "request %d started twice", s.Request.ID)
		seen[s.Request.ID] = true
	}

	claimed := true
	reqs, err := a.requests.List(ctx, domainbr.ListFilters{Builder: &builder, Claimed: &claimed})
	require.NoError(t, err)
	assert.Len(t, reqs, 5)

	unclaimed, err := a.requests.ListUnclaimed(ctx, builder)
	require.NoError(t, err)
	assert.Len(t, unclaimed, 3)
}

func TestFinishedBuildFreesSlotForOtherCoordinator(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	builder := "it-" + uuid.NewString()[:8]

	a := newNode(t, pool, builder)
	b := newNode(t, pool, builder)

	_, err := a.workerSvc.Connect(ctx, workersvc.ConnectInput{
		Name: builder + "-solo", Builders: []string{builder}, MaxBuilds: 1,
	})
	require.NoError(t, err)
	for range 2 {
		_, err := a.reqSvc.Submit(ctx, brsvc.SubmitInput{Builder: builder})
		require.NoError(t, err)
	}

	runPass(t, builder, a)
	first := a.assignments()
	require.Len(t, first, 1)

	// The worker reports through coordinator B.
	_, err = b.builds.FinishBuild(ctx, first[0].Build.ID, domainbr.ResultSuccess)
	require.NoError(t, err)

	runPass(t, builder, b)
	second := b.assignments()
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].Request.ID, second[0].Request.ID)

	done, err := a.requests.GetByID(ctx, first[0].Request.ID)
	require.NoError(t, err)
	assert.True(t, done.Complete)
	require.NotNil(t, done.Results)
	assert.Equal(t, domainbr.ResultSuccess, *done.Results)
}

func TestLostWorkerRequeuesItsBuilds(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	builder := "it-" + uuid.NewString()[:8]

	a := newNode(t, pool, builder)

	w, err := a.workerSvc.Connect(ctx, workersvc.ConnectInput{
		Name: builder + "-doomed", Builders: []string{builder}, MaxBuilds: 1,
	})
	require.NoError(t, err)
	req, err := a.reqSvc.Submit(ctx, brsvc.SubmitInput{Builder: builder})
	require.NoError(t, err)

	runPass(t, builder, a)
	require.Len(t, a.assignments(), 1)

	require.NoError(t, a.workerSvc.Disconnect(ctx, w.ID))

	unclaimed, err := a.requests.ListUnclaimed(ctx, builder)
	require.NoError(t, err)
	require.Len(t, unclaimed, 1)
	assert.Equal(t, req.ID, unclaimed[0].ID)
	assert.Contains(t, a.attention.Builders(), builder)
}
