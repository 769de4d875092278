package testutil

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/build-mesh/internal/adapter/memory"
	domainbuilder "github.com/alanyang/build-mesh/internal/domain/builder"
	buildsvc "github.com/alanyang/build-mesh/internal/service/build"
	buildersvc "github.com/alanyang/build-mesh/internal/service/builder"
	brsvc "github.com/alanyang/build-mesh/internal/service/buildrequest"
	workersvc "github.com/alanyang/build-mesh/internal/service/worker"
)

// AttentionLog records RequestAttention calls instead of running a distributor.
type AttentionLog struct {
	mu    sync.Mutex
	calls [][]string
}

func (a *AttentionLog) RequestAttention(builders ...string) {
	a.mu.Lock()
	a.calls = append(a.calls, slices.Clone(builders))
	a.mu.Unlock()
}

// Builders returns every builder name requested so far, in call order.
func (a *AttentionLog) Builders() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, c := range a.calls {
		out = append(out, c...)
	}
	return out
}

// Stack is the service layer wired onto the memory adapters.
type Stack struct {
	CoordinatorID uuid.UUID
	Bus           *memory.EventBus
	Attention     *AttentionLog
	Notifier      *CaptureNotifier

	Requests *memory.BuildRequestRepository
	Workers  *memory.WorkerRepository
	Builds   *memory.BuildRepository

	BuilderSvc *buildersvc.Service
	RequestSvc *brsvc.Service
	WorkerSvc  *workersvc.Service
	BuildSvc   *buildsvc.Service
}

// NewStack builds the services and configures the given builders.
func NewStack(t *testing.T, builders ...domainbuilder.Builder) *Stack {
	t.Helper()
	db := memory.NewDB()
	s := &Stack{
		CoordinatorID: uuid.New(),
		Attention:     &AttentionLog{},
		Notifier:      &CaptureNotifier{},
		Requests:      memory.NewBuildRequestRepository(db),
		Workers:       memory.NewWorkerRepository(db),
		Builds:        memory.NewBuildRepository(db),
	}
	s.Bus = memory.NewEventBus(s.CoordinatorID)

	s.BuildSvc = buildsvc.NewService(s.CoordinatorID, s.Builds, s.Requests, s.Workers, s.Bus, s.Notifier, s.Attention)
	s.BuilderSvc = buildersvc.NewService(s.BuildSvc, s.Bus, s.Attention)
	s.RequestSvc = brsvc.NewService(s.Requests, s.BuilderSvc, s.Bus, s.Attention)
	s.WorkerSvc = workersvc.NewService(s.Workers, s.Builds, s.Requests, s.Bus, s.Attention)

	require.NoError(t, s.BuilderSvc.Reconfigure(context.Background(), builders))
	t.Cleanup(s.Bus.Drain)
	return s
}
