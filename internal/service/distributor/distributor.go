package distributor

import (
	"context"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	domainbuilder "github.com/alanyang/build-mesh/internal/domain/builder"
	"github.com/alanyang/build-mesh/internal/metrics"
	portbr "github.com/alanyang/build-mesh/internal/port/buildrequest"
	portbuild "github.com/alanyang/build-mesh/internal/port/build"
	portdist "github.com/alanyang/build-mesh/internal/port/distributor"
	portworker "github.com/alanyang/build-mesh/internal/port/worker"
	"github.com/alanyang/build-mesh/internal/service/policy"
)

var _ portdist.AttentionRequester = (*Service)(nil)

// Queue is everything needed to service one builder.
type Queue struct {
	Builder domainbuilder.Builder
	Policy  policy.Set
	Starter portbuild.Starter
}

// QueueSource resolves a builder name when its queue is serviced. A name that no longer
// resolves has no work.
type QueueSource interface {
	Queue(name string) (Queue, bool)
}

type State string

const (
	StateIdle        State = "idle"
	StateSorting     State = "sorting"
	StateDispatching State = "dispatching"
)

// Status is a point-in-time view of the distributor.
type Status struct {
	State   State    `json:"state"`
	Current string   `json:"current,omitempty"`
	Pending []string `json:"pending"`
	Stopped bool     `json:"stopped"`
}

type Option func(*Service)

// WithQueueOrder replaces the lexicographic queue order.
func WithQueueOrder(o policy.QueueOrderer) Option {
	return func(s *Service) { s.order = o }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// Service matches unclaimed build requests to available workers, one builder queue at a
// time. Attention requests coalesce into a pending set that a single loop goroutine
// drains pass by pass.
// [SRP] Decides and claims; starting a build is delegated to the queue's Starter.
// [ISP] Depends on ClaimStore and WorkerPool, not the full repositories.
type Service struct {
	coordinatorID uuid.UUID
	queues        QueueSource
	store         portbr.ClaimStore
	pool          portworker.WorkerPool
	order         policy.QueueOrderer
	recorder      metrics.Recorder

	mu      sync.Mutex
	pending []string
	queued  map[string]struct{}
	running bool
	stopped bool
	state   State
	current string
	idle    chan struct{}
}

func NewService(
	coordinatorID uuid.UUID,
	queues QueueSource,
	store portbr.ClaimStore,
	pool portworker.WorkerPool,
	opts ...Option,
) *Service {
	idle := make(chan struct{})
	close(idle)
	s := &Service{
		coordinatorID: coordinatorID,
		queues:        queues,
		store:         store,
		pool:          pool,
		order:         policy.Lexicographic,
		recorder:      metrics.NoopRecorder{},
		queued:        make(map[string]struct{}),
		state:         StateIdle,
		idle:          idle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestAttention marks builders as possibly having work. It never blocks on a pass:
// names join the pending set and the loop is started if it is not running.
func (s *Service) RequestAttention(builders ...string) {
	if len(builders) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		slog.Debug("distributor: attention requested after stop", "builders", builders)
		return
	}
	for _, name := range builders {
		if _, ok := s.queued[name]; ok {
			continue
		}
		s.queued[name] = struct{}{}
		s.pending = append(s.pending, name)
	}
	s.recorder.SetPendingBuilders(len(s.pending))

	if s.running {
		return
	}
	s.running = true
	s.idle = make(chan struct{})
	go s.loop()
}

// Stop prevents any further queue from being serviced and waits until the queue in
// flight, if any, has finished.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.pending = nil
	clear(s.queued)
	s.recorder.SetPendingBuilders(0)
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitIdle blocks until the loop has drained every pending builder.
func (s *Service) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) State() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:   s.state,
		Current: s.current,
		Pending: slices.Clone(s.pending),
		Stopped: s.stopped,
	}
}

// loop runs passes until the pending set is empty. Requests that arrive during a pass
// are picked up by the next one without going idle in between.
func (s *Service) loop() {
	// Passes outlive the request that triggered them.
	ctx := context.Background()

	for {
		s.mu.Lock()
		if s.stopped || len(s.pending) == 0 {
			s.running = false
			s.state = StateIdle
			s.current = ""
			close(s.idle)
			s.mu.Unlock()
			return
		}
		names := s.pending
		s.pending = nil
		clear(s.queued)
		s.state = StateSorting
		s.recorder.SetPendingBuilders(0)
		s.mu.Unlock()

		s.pass(ctx, names)
	}
}

func (s *Service) pass(ctx context.Context, names []string) {
	start := time.Now()
	defer func() { s.recorder.ObservePassDuration(time.Since(start)) }()

	ordered := s.sortQueues(ctx, names)

	for i, name := range ordered {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			slog.Info("distributor: stopped, abandoning pass", "skipped", ordered[i:])
			return
		}
		s.state = StateDispatching
		s.current = name
		s.mu.Unlock()

		s.serviceQueue(ctx, name)
	}
}

// sortQueues applies the queue orderer, falling back to the raw order when it fails or
// returns something other than a permutation of its input.
func (s *Service) sortQueues(ctx context.Context, names []string) (ordered []string) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "distributor: queue ordering panicked, using raw order", "panic", r)
			ordered = names
		}
	}()

	sorted, err := s.order(ctx, slices.Clone(names))
	if err != nil {
		slog.ErrorContext(ctx, "distributor: queue ordering failed, using raw order", "error", err)
		return names
	}
	if !policy.IsPermutation(names, sorted) {
		slog.ErrorContext(ctx, "distributor: queue ordering is not a permutation, using raw order",
			"input", names, "output", sorted)
		return names
	}
	return sorted
}

// serviceQueue runs the assignment algorithm for one builder. Nothing that happens
// inside it stops the rest of the pass.
func (s *Service) serviceQueue(ctx context.Context, name string) {
	start := time.Now()
	defer func() {
		s.recorder.ObserveQueueDuration(name, time.Since(start))
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "distributor: builder queue panicked",
				"builder", name, "panic", r, "stack", string(debug.Stack()))
			s.recorder.IncQueueError(name)
		}
	}()

	started, err := s.assignQueue(ctx, name)
	if err != nil {
		slog.ErrorContext(ctx, "distributor: builder queue failed", "builder", name, "started", started, "error", err)
		s.recorder.IncQueueError(name)
		return
	}
	if started > 0 {
		slog.InfoContext(ctx, "distributor: builds started", "builder", name, "count", started)
	}
}
