package distributor_test

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanyang/build-mesh/internal/adapter/memory"
	domainbuilder "github.com/alanyang/build-mesh/internal/domain/builder"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	domainworker "github.com/alanyang/build-mesh/internal/domain/worker"
	"github.com/alanyang/build-mesh/internal/metrics"
	"github.com/alanyang/build-mesh/internal/mocks"
	portworker "github.com/alanyang/build-mesh/internal/port/worker"
	"github.com/alanyang/build-mesh/internal/service/distributor"
	"github.com/alanyang/build-mesh/internal/service/policy"
)

// ── helpers ───────────────────────────────────────────────────────────────────

type assignment struct {
	worker  string
	request int64
}

// slotStarter reserves a worker slot for every build it starts, the way the real
// starter does, so live worker refs see the capacity change.
type slotStarter struct {
	workers *memory.WorkerRepository
	hook    func(w portworker.WorkerRef, req domainbr.BuildRequest) (bool, error)

	mu      sync.Mutex
	started []assignment
}

func (s *slotStarter) StartBuild(ctx context.Context, w portworker.WorkerRef, req domainbr.BuildRequest) (bool, error) {
	if s.hook != nil {
		if ok, err := s.hook(w, req); !ok || err != nil {
			return ok, err
		}
	}
	if err := s.workers.ReserveSlot(ctx, w.Worker().ID); err != nil {
		return false, nil
	}
	s.mu.Lock()
	s.started = append(s.started, assignment{worker: w.Worker().Name, request: req.ID})
	s.mu.Unlock()
	return true, nil
}

func (s *slotStarter) assignments() []assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.started)
}

type queueSet struct {
	mu     sync.Mutex
	queues map[string]distributor.Queue
	served []string
}

func (q *queueSet) Queue(name string) (distributor.Queue, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.served = append(q.served, name)
	queue, ok := q.queues[name]
	return queue, ok
}

func (q *queueSet) servedNames() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.served)
}

type countingRecorder struct {
	metrics.NoopRecorder

	mu              sync.Mutex
	assignments     map[metrics.ResultLabel]int
	queueErrors     int
	releaseFailures int
	policyErrors    int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{assignments: make(map[metrics.ResultLabel]int)}
}

func (r *countingRecorder) IncAssignment(_ string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments[result]++
}

func (r *countingRecorder) IncQueueError(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queueErrors++
}

func (r *countingRecorder) IncReleaseFailure(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseFailures++
}

func (r *countingRecorder) IncPolicyError(string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policyErrors++
}

func (r *countingRecorder) count(result metrics.ResultLabel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assignments[result]
}

type env struct {
	requests *memory.BuildRequestRepository
	workers  *memory.WorkerRepository
	starter  *slotStarter
	queues   *queueSet
	recorder *countingRecorder
	base     time.Time
	seq      int
}

func newEnv() *env {
	db := memory.NewDB()
	workers := memory.NewWorkerRepository(db)
	return &env{
		requests: memory.NewBuildRequestRepository(db),
		workers:  workers,
		starter:  &slotStarter{workers: workers},
		queues:   &queueSet{queues: make(map[string]distributor.Queue)},
		recorder: newCountingRecorder(),
		base:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (e *env) addBuilder(name string, set policy.Set) {
	e.queues.mu.Lock()
	defer e.queues.mu.Unlock()
	e.queues.queues[name] = distributor.Queue{
		Builder: domainbuilder.Builder{Name: name},
		Policy:  set,
		Starter: e.starter,
	}
}

func (e *env) submit(t *testing.T, builder string, tags ...string) domainbr.BuildRequest {
	t.Helper()
	req := domainbr.New(builder, 0, tags, "test")
	e.seq++
	req.SubmittedAt = e.base.Add(time.Duration(e.seq) * time.Second)
	created, err := e.requests.Create(context.Background(), req)
	require.NoError(t, err)
	return created
}

func (e *env) connect(t *testing.T, name string, maxBuilds int, builders ...string) domainworker.Worker {
	t.Helper()
	w, err := e.workers.Upsert(context.Background(), domainworker.New(name, builders, nil, maxBuilds))
	require.NoError(t, err)
	return w
}

func (e *env) distributor(opts ...distributor.Option) *distributor.Service {
	opts = append([]distributor.Option{distributor.WithRecorder(e.recorder)}, opts...)
	return distributor.NewService(uuid.New(), e.queues, e.requests, e.workers, opts...)
}

func (e *env) unclaimed(t *testing.T, builder string) []int64 {
	t.Helper()
	reqs, err := e.requests.ListUnclaimed(context.Background(), builder)
	require.NoError(t, err)
	ids := make([]int64, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
	}
	return ids
}

func attend(t *testing.T, d *distributor.Service, builders ...string) {
	t.Helper()
	d.RequestAttention(builders...)
	waitIdle(t, d)
}

func waitIdle(t *testing.T, d *distributor.Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.WaitIdle(ctx))
}

// ── assignment ────────────────────────────────────────────────────────────────

func TestAssign_OneBuildPerWorkerAndRequest(t *testing.T) {
	e := newEnv()
	e.addBuilder("linux", policy.Defaults())
	r1 := e.submit(t, "linux")
	r2 := e.submit(t, "linux")
	r3 := e.submit(t, "linux")
	e.connect(t, "w1", 1, "linux")
	e.connect(t, "w2", 1, "linux")

	attend(t, e.distributor(), "linux")

	got := e.starter.assignments()
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0].worker, got[1].worker)
	assert.ElementsMatch(t, []int64{r1.ID, r2.ID}, []int64{got[0].request, got[1].request})
	assert.Equal(t, []int64{r3.ID}, e.unclaimed(t, "linux"))
	assert.Equal(t, 2, e.recorder.count(metrics.ResultStarted))
}

func TestAssign_NoWorkersLeavesRequestsUnclaimed(t *testing.T) {
	e := newEnv()
	e.addBuilder("linux", policy.Defaults())
	r1 := e.submit(t, "linux")
	e.connect(t, "mac-1", 1, "mac")

	attend(t, e.distributor(), "linux")

	assert.Empty(t, e.starter.assignments())
	assert.Equal(t, []int64{r1.ID}, e.unclaimed(t, "linux"))
}

func TestAssign_NextBuildNoneClaimsNothing(t *testing.T) {
	e := newEnv()
	set := policy.Defaults()
	set.NextBuild = policy.Hold
	e.addBuilder("linux", set)
	r1 := e.submit(t, "linux")
	e.connect(t, "w1", 1, "linux")

	attend(t, e.distributor(), "linux")

	assert.Empty(t, e.starter.assignments())
	assert.Equal(t, []int64{r1.ID}, e.unclaimed(t, "linux"))
}

func TestAssign_UnconfiguredBuilderIsSkipped(t *testing.T) {
	e := newEnv()
	r1 := e.submit(t, "gone")
	e.connect(t, "w1", 1, "gone")

	attend(t, e.distributor(), "gone")

	assert.Empty(t, e.starter.assignments())
	assert.Equal(t, []int64{r1.ID}, e.unclaimed(t, "gone"))
	assert.Equal(t, []string{"gone"}, e.queues.servedNames())
}

func TestAssign_IncompatibleRequestDoesNotConsumeWorker(t *testing.T) {
	e := newEnv()
	set := policy.Defaults()
	set.CanStartBuild = policy.TagsCompatible
	e.addBuilder("linux", set)
	gpu := e.submit(t, "linux", "gpu")
	plain := e.submit(t, "linux")
	e.connect(t, "w1", 1, "linux")

	attend(t, e.distributor(), "linux")

	assert.Equal(t, []assignment{{worker: "w1", request: plain.ID}}, e.starter.assignments())
	assert.Equal(t, []int64{gpu.ID}, e.unclaimed(t, "linux"))
	assert.Equal(t, 1, e.recorder.count(metrics.ResultIncompatible))
}

func TestAssign_WorkerTakenDuringPolicyIsSkipped(t *testing.T) {
	e := newEnv()
	w1 := e.connect(t, "w1", 1, "linux")
	e.connect(t, "w2", 1, "linux")

	set := policy.Defaults()
	set.NextWorker = func(ctx context.Context, _ domainbuilder.Builder, workers []portworker.WorkerRef, _ domainbr.BuildRequest) (portworker.WorkerRef, bool, error) {
		for _, w := range workers {
			if w.Worker().ID == w1.ID {
				// Someone else starts a build on w1 while this policy is deciding.
				require.NoError(t, e.workers.ReserveSlot(ctx, w1.ID))
				return w, true, nil
			}
		}
		return workers[0], true, nil
	}
	e.addBuilder("linux", set)
	r1 := e.submit(t, "linux")

	attend(t, e.distributor(), "linux")

	assert.Equal(t, []assignment{{worker: "w2", request: r1.ID}}, e.starter.assignments())
}

func TestAssign_MultiSlotWorkerTakesOneBuildPerPass(t *testing.T) {
	e := newEnv()
	e.addBuilder("linux", policy.Defaults())
	r1 := e.submit(t, "linux")
	r2 := e.submit(t, "linux")
	e.connect(t, "big", 2, "linux")
	d := e.distributor()

	attend(t, d, "linux")
	assert.Equal(t, []int64{r2.ID}, e.unclaimed(t, "linux"))

	attend(t, d, "linux")
	assert.Empty(t, e.unclaimed(t, "linux"))
	assert.Equal(t, []assignment{{"big", r1.ID}, {"big", r2.ID}}, e.starter.assignments())
}

func TestAssign_FailedStartReleasesClaim(t *testing.T) {
	tests := []struct {
		name string
		hook func(portworker.WorkerRef, domainbr.BuildRequest) (bool, error)
	}{
		{
			name: "refused",
			hook: func(portworker.WorkerRef, domainbr.BuildRequest) (bool, error) { return false, nil },
		},
		{
			name: "error",
			hook: func(portworker.WorkerRef, domainbr.BuildRequest) (bool, error) {
				return false, errors.New("worker unreachable")
			},
		},
		{
			name: "panic",
			hook: func(portworker.WorkerRef, domainbr.BuildRequest) (bool, error) { panic("boom") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			e.addBuilder("linux", policy.Defaults())
			e.starter.hook = tt.hook
			r1 := e.submit(t, "linux")
			e.connect(t, "w1", 1, "linux")
			d := e.distributor()

			attend(t, d, "linux")

			assert.Equal(t, []int64{r1.ID}, e.unclaimed(t, "linux"))
			assert.Equal(t, 1, e.recorder.count(metrics.ResultStartFailed))

			// The released request is started by a later pass.
			e.starter.hook = nil
			attend(t, d, "linux")
			assert.Equal(t, []assignment{{"w1", r1.ID}}, e.starter.assignments())
		})
	}
}

func TestAssign_ConcurrentCoordinatorsClaimOnce(t *testing.T) {
	e := newEnv()
	e.submit(t, "linux")
	e.connect(t, "w1", 1, "linux")
	e.connect(t, "w2", 1, "linux")

	// Both coordinators listed the request before either claims it.
	var barrier sync.WaitGroup
	barrier.Add(2)
	set := policy.Defaults()
	set.CanStartBuild = func(context.Context, portworker.WorkerRef, domainbr.BuildRequest) (bool, error) {
		barrier.Done()
		barrier.Wait()
		return true, nil
	}
	e.addBuilder("linux", set)

	a, b := e.distributor(), e.distributor()
	a.RequestAttention("linux")
	b.RequestAttention("linux")
	waitIdle(t, a)
	waitIdle(t, b)

	assert.Len(t, e.starter.assignments(), 1)
	assert.Equal(t, 1, e.recorder.count(metrics.ResultConflict))
	assert.Empty(t, e.unclaimed(t, "linux"))
}

func TestAssign_PanickingPolicyCostsOnlyThatRequest(t *testing.T) {
	tests := []struct {
		name  string
		apply func(set *policy.Set, poisoned int64)
	}{
		{
			name: "next worker",
			apply: func(set *policy.Set, poisoned int64) {
				next := set.NextWorker
				set.NextWorker = func(ctx context.Context, b domainbuilder.Builder, ws []portworker.WorkerRef, req domainbr.BuildRequest) (portworker.WorkerRef, bool, error) {
					if req.ID == poisoned {
						panic("bad worker policy")
					}
					return next(ctx, b, ws, req)
				}
			},
		},
		{
			name: "can start build",
			apply: func(set *policy.Set, poisoned int64) {
				set.CanStartBuild = func(_ context.Context, _ portworker.WorkerRef, req domainbr.BuildRequest) (bool, error) {
					if req.ID == poisoned {
						panic("bad compatibility policy")
					}
					return true, nil
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			r1 := e.submit(t, "linux")
			r2 := e.submit(t, "linux")
			e.connect(t, "w1", 1, "linux")
			set := policy.Defaults()
			tt.apply(&set, r1.ID)
			e.addBuilder("linux", set)

			attend(t, e.distributor(), "linux")

			assert.Equal(t, []assignment{{"w1", r2.ID}}, e.starter.assignments())
			assert.Equal(t, []int64{r1.ID}, e.unclaimed(t, "linux"))
			assert.Equal(t, 1, e.recorder.policyErrors)
			assert.Equal(t, 0, e.recorder.queueErrors)
		})
	}
}

func TestAssign_PanickingNextBuildEndsQueuePass(t *testing.T) {
	e := newEnv()
	set := policy.Defaults()
	set.NextBuild = func(context.Context, domainbuilder.Builder, []domainbr.BuildRequest) (domainbr.BuildRequest, bool, error) {
		panic("bad build policy")
	}
	e.addBuilder("linux", set)
	e.addBuilder("mac", policy.Defaults())
	r1 := e.submit(t, "linux")
	m1 := e.submit(t, "mac")
	e.connect(t, "w1", 1, "linux")
	e.connect(t, "m1", 1, "mac")

	attend(t, e.distributor(), "linux", "mac")

	assert.Equal(t, []assignment{{"m1", m1.ID}}, e.starter.assignments())
	assert.Equal(t, []int64{r1.ID}, e.unclaimed(t, "linux"))
	assert.Equal(t, 1, e.recorder.policyErrors)
}

func TestAssign_OversupplyStartsEveryRequestOnce(t *testing.T) {
	e := newEnv()
	e.addBuilder("linux", policy.Defaults())
	var want []int64
	for i := 0; i < 5; i++ {
		want = append(want, e.submit(t, "linux").ID)
	}
	for i := 0; i < 8; i++ {
		e.connect(t, "w"+strconv.Itoa(i), 1, "linux")
	}

	attend(t, e.distributor(), "linux")

	got := e.starter.assignments()
	requests := make([]int64, 0, len(got))
	workers := make(map[string]int64, len(got))
	for _, a := range got {
		requests = append(requests, a.request)
		_, dup := workers[a.worker]
		assert.False(t, dup, "worker %s started twice", a.worker)
		workers[a.worker] = a.request
	}
	assert.ElementsMatch(t, want, requests)
	assert.Len(t, workers, len(want))
	assert.Empty(t, e.unclaimed(t, "linux"))
}

func TestAssign_DefaultOrderIsDeterministic(t *testing.T) {
	run := func() []int64 {
		e := newEnv()
		set := policy.Defaults()
		set.NextWorker = func(_ context.Context, _ domainbuilder.Builder, ws []portworker.WorkerRef, _ domainbr.BuildRequest) (portworker.WorkerRef, bool, error) {
			return ws[0], true, nil
		}
		e.addBuilder("linux", set)
		// Equal submission times; order falls back to the id.
		for i := 0; i < 4; i++ {
			req := domainbr.New("linux", 0, nil, "test")
			req.SubmittedAt = e.base
			_, err := e.requests.Create(context.Background(), req)
			require.NoError(t, err)
		}
		for i := 0; i < 4; i++ {
			e.connect(t, "w"+strconv.Itoa(i), 1, "linux")
		}

		attend(t, e.distributor(), "linux")

		var order []int64
		for _, a := range e.starter.assignments() {
			order = append(order, a.request)
		}
		return order
	}

	first := run()
	assert.Equal(t, []int64{1, 2, 3, 4}, first)
	assert.Equal(t, first, run())
}

// ── loop ──────────────────────────────────────────────────────────────────────

func TestRequestAttention_CoalescesWhilePassRuns(t *testing.T) {
	e := newEnv()
	entered := make(chan struct{})
	release := make(chan struct{})
	e.starter.hook = func(_ portworker.WorkerRef, req domainbr.BuildRequest) (bool, error) {
		if req.Builder == "x" {
			close(entered)
			<-release
		}
		return true, nil
	}
	for _, name := range []string{"x", "a", "b"} {
		e.addBuilder(name, policy.Defaults())
	}
	e.submit(t, "x")
	e.connect(t, "w1", 1, "x")

	var mu sync.Mutex
	var passes [][]string
	d := e.distributor(distributor.WithQueueOrder(func(ctx context.Context, names []string) ([]string, error) {
		mu.Lock()
		passes = append(passes, slices.Clone(names))
		mu.Unlock()
		return policy.Lexicographic(ctx, names)
	}))

	d.RequestAttention("x")
	<-entered
	d.RequestAttention("a", "a", "b")
	d.RequestAttention("a")
	assert.Equal(t, []string{"a", "b"}, d.State().Pending)
	close(release)
	waitIdle(t, d)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]string{{"x"}, {"a", "b"}}, passes)
	assert.Equal(t, distributor.StateIdle, d.State().State)
}

func TestPass_QueueOrder(t *testing.T) {
	tests := []struct {
		name  string
		order policy.QueueOrderer
		want  []string
	}{
		{
			name:  "orderer result is used",
			order: policy.Lexicographic,
			want:  []string{"a", "b", "c"},
		},
		{
			name: "orderer error falls back to raw order",
			order: func(context.Context, []string) ([]string, error) {
				return nil, errors.New("ordering backend down")
			},
			want: []string{"c", "a", "b"},
		},
		{
			name: "dropped name falls back to raw order",
			order: func(context.Context, []string) ([]string, error) {
				return []string{"a", "b"}, nil
			},
			want: []string{"c", "a", "b"},
		},
		{
			name: "duplicated name falls back to raw order",
			order: func(context.Context, []string) ([]string, error) {
				return []string{"a", "a", "b", "c"}, nil
			},
			want: []string{"c", "a", "b"},
		},
		{
			name:  "panicking orderer falls back to raw order",
			order: func(context.Context, []string) ([]string, error) { panic("boom") },
			want:  []string{"c", "a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			for _, name := range []string{"a", "b", "c"} {
				e.addBuilder(name, policy.Defaults())
			}

			attend(t, e.distributor(distributor.WithQueueOrder(tt.order)), "c", "a", "b")

			assert.Equal(t, tt.want, e.queues.servedNames())
		})
	}
}

func TestPass_PanickingQueueDoesNotStopPass(t *testing.T) {
	e := newEnv()
	broken := policy.Defaults()
	broken.NextBuild = func(context.Context, domainbuilder.Builder, []domainbr.BuildRequest) (domainbr.BuildRequest, bool, error) {
		panic("policy bug")
	}
	e.addBuilder("a", broken)
	e.addBuilder("b", policy.Defaults())
	e.submit(t, "a")
	rb := e.submit(t, "b")
	e.connect(t, "w1", 1, "a", "b")

	attend(t, e.distributor(), "a", "b")

	assert.Equal(t, []assignment{{"w1", rb.ID}}, e.starter.assignments())
	assert.Equal(t, 1, e.recorder.queueErrors)
}

func TestStop_WaitsForInFlightQueue(t *testing.T) {
	e := newEnv()
	entered := make(chan struct{})
	release := make(chan struct{})
	e.starter.hook = func(portworker.WorkerRef, domainbr.BuildRequest) (bool, error) {
		close(entered)
		<-release
		return true, nil
	}
	e.addBuilder("a", policy.Defaults())
	e.addBuilder("b", policy.Defaults())
	e.submit(t, "a")
	e.submit(t, "b")
	e.connect(t, "w1", 1, "a")
	d := e.distributor()

	d.RequestAttention("a", "b")
	<-entered

	stopped := make(chan error, 1)
	go func() { stopped <- d.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a queue was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-stopped)
	assert.Equal(t, []string{"a"}, e.queues.servedNames())

	d.RequestAttention("b")
	waitIdle(t, d)
	assert.Equal(t, []string{"a"}, e.queues.servedNames())
	st := d.State()
	assert.True(t, st.Stopped)
	assert.Equal(t, distributor.StateIdle, st.State)
	assert.Empty(t, st.Pending)
}

func TestStop_ContextExpires(t *testing.T) {
	e := newEnv()
	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	e.starter.hook = func(portworker.WorkerRef, domainbr.BuildRequest) (bool, error) {
		close(entered)
		<-release
		return true, nil
	}
	e.addBuilder("a", policy.Defaults())
	e.submit(t, "a")
	e.connect(t, "w1", 1, "a")
	d := e.distributor()

	d.RequestAttention("a")
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Stop(ctx), context.DeadlineExceeded)
}

// ── store failures ────────────────────────────────────────────────────────────

type storeDeps struct {
	store    *mocks.MockClaimStore
	pool     *mocks.MockWorkerPool
	starter  *mocks.MockBuildStarter
	recorder *countingRecorder
	coordID  uuid.UUID
}

func newMockedDistributor(t *testing.T, builders ...string) (*distributor.Service, storeDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	d := storeDeps{
		store:    mocks.NewMockClaimStore(ctrl),
		pool:     mocks.NewMockWorkerPool(ctrl),
		starter:  mocks.NewMockBuildStarter(ctrl),
		recorder: newCountingRecorder(),
		coordID:  uuid.New(),
	}
	qs := &queueSet{queues: make(map[string]distributor.Queue)}
	for _, name := range builders {
		qs.queues[name] = distributor.Queue{
			Builder: domainbuilder.Builder{Name: name},
			Policy:  policy.Defaults(),
			Starter: d.starter,
		}
	}
	svc := distributor.NewService(d.coordID, qs, d.store, d.pool, distributor.WithRecorder(d.recorder))
	return svc, d
}

func TestPass_QueueErrorIsIsolated(t *testing.T) {
	svc, d := newMockedDistributor(t, "a", "b")
	req := domainbr.BuildRequest{ID: 7, Builder: "b"}
	w := domainworker.New("w1", []string{"b"}, nil, 1)

	d.store.EXPECT().ListUnclaimed(gomock.Any(), "a").Return(nil, errors.New("connection refused"))
	d.store.EXPECT().ListUnclaimed(gomock.Any(), "b").Return([]domainbr.BuildRequest{req}, nil)
	d.pool.EXPECT().AvailableWorkers(gomock.Any(), "b").Return([]portworker.WorkerRef{w}, nil)
	d.store.EXPECT().Claim(gomock.Any(), []int64{7}, d.coordID).
		Return(domainbr.ClaimResult{Claimed: []int64{7}}, nil)
	d.starter.EXPECT().StartBuild(gomock.Any(), w, req).Return(true, nil)

	attend(t, svc, "a", "b")

	assert.Equal(t, 1, d.recorder.queueErrors)
	assert.Equal(t, 1, d.recorder.count(metrics.ResultStarted))
}

func TestAssign_ReleaseFailureIsRecorded(t *testing.T) {
	svc, d := newMockedDistributor(t, "a")
	req := domainbr.BuildRequest{ID: 3, Builder: "a"}
	w := domainworker.New("w1", []string{"a"}, nil, 1)

	d.store.EXPECT().ListUnclaimed(gomock.Any(), "a").Return([]domainbr.BuildRequest{req}, nil)
	d.pool.EXPECT().AvailableWorkers(gomock.Any(), "a").Return([]portworker.WorkerRef{w}, nil)
	d.store.EXPECT().Claim(gomock.Any(), []int64{3}, d.coordID).
		Return(domainbr.ClaimResult{Claimed: []int64{3}}, nil)
	d.starter.EXPECT().StartBuild(gomock.Any(), w, req).Return(false, errors.New("rejected"))
	d.store.EXPECT().Release(gomock.Any(), []int64{3}, d.coordID).Return(errors.New("connection reset"))

	attend(t, svc, "a")

	assert.Equal(t, 1, d.recorder.releaseFailures)
	assert.Equal(t, 0, d.recorder.queueErrors)
}

func TestAssign_ClaimErrorEndsQueue(t *testing.T) {
	svc, d := newMockedDistributor(t, "a")
	reqs := []domainbr.BuildRequest{{ID: 1, Builder: "a"}, {ID: 2, Builder: "a"}}
	workers := []portworker.WorkerRef{
		domainworker.New("w1", []string{"a"}, nil, 1),
		domainworker.New("w2", []string{"a"}, nil, 1),
	}

	d.store.EXPECT().ListUnclaimed(gomock.Any(), "a").Return(reqs, nil)
	d.pool.EXPECT().AvailableWorkers(gomock.Any(), "a").Return(workers, nil)
	d.store.EXPECT().Claim(gomock.Any(), gomock.Any(), d.coordID).
		Return(domainbr.ClaimResult{}, errors.New("serialization failure"))

	attend(t, svc, "a")

	assert.Equal(t, 1, d.recorder.queueErrors)
}

func TestAssign_ConflictMovesToNextRequest(t *testing.T) {
	svc, d := newMockedDistributor(t, "a")
	r1 := domainbr.BuildRequest{ID: 1, Builder: "a", SubmittedAt: time.Unix(1, 0)}
	r2 := domainbr.BuildRequest{ID: 2, Builder: "a", SubmittedAt: time.Unix(2, 0)}
	w := domainworker.New("w1", []string{"a"}, nil, 1)

	d.store.EXPECT().ListUnclaimed(gomock.Any(), "a").Return([]domainbr.BuildRequest{r1, r2}, nil)
	d.pool.EXPECT().AvailableWorkers(gomock.Any(), "a").Return([]portworker.WorkerRef{w}, nil)
	gomock.InOrder(
		d.store.EXPECT().Claim(gomock.Any(), []int64{1}, d.coordID).
			Return(domainbr.ClaimResult{Conflicted: []int64{1}}, nil),
		d.store.EXPECT().Claim(gomock.Any(), []int64{2}, d.coordID).
			Return(domainbr.ClaimResult{Claimed: []int64{2}}, nil),
	)
	d.starter.EXPECT().StartBuild(gomock.Any(), w, r2).Return(true, nil)

	attend(t, svc, "a")

	assert.Equal(t, 1, d.recorder.count(metrics.ResultConflict))
	assert.Equal(t, 1, d.recorder.count(metrics.ResultStarted))
}
