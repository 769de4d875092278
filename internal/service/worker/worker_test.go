package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainbuild "github.com/alanyang/build-mesh/internal/domain/build"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	"github.com/alanyang/build-mesh/internal/domain/event"
	domainworker "github.com/alanyang/build-mesh/internal/domain/worker"
	"github.com/alanyang/build-mesh/internal/mocks"
	workersvc "github.com/alanyang/build-mesh/internal/service/worker"
)

// ── helpers ───────────────────────────────────────────────────────────────────

type svcDeps struct {
	repo      *mocks.MockWorkerRepository
	builds    *mocks.MockBuildRepository
	requests  *mocks.MockClaimStore
	bus       *mocks.MockEventBus
	attention *mocks.MockAttentionRequester
}

func newWorkerSvc(t *testing.T) (*workersvc.Service, svcDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	d := svcDeps{
		repo:      mocks.NewMockWorkerRepository(ctrl),
		builds:    mocks.NewMockBuildRepository(ctrl),
		requests:  mocks.NewMockClaimStore(ctrl),
		bus:       mocks.NewMockEventBus(ctrl),
		attention: mocks.NewMockAttentionRequester(ctrl),
	}
	return workersvc.NewService(d.repo, d.builds, d.requests, d.bus, d.attention), d
}

func matchEventType(et event.Type) gomock.Matcher {
	return eventTypeMatcher{et}
}

type eventTypeMatcher struct{ want event.Type }

func (m eventTypeMatcher) Matches(x interface{}) bool {
	e, ok := x.(event.Event)
	return ok && e.Type == m.want
}
func (m eventTypeMatcher) String() string { return "event.Type=" + string(m.want) }

// ── Connect ───────────────────────────────────────────────────────────────────

func TestConnect(t *testing.T) {
	tests := []struct {
		name    string
		in      workersvc.ConnectInput
		setup   func(d svcDeps)
		wantErr error
	}{
		{
			name: "offers capacity to every builder",
			in:   workersvc.ConnectInput{Name: "w1", Builders: []string{"linux", "arm"}, MaxBuilds: 2},
			setup: func(d svcDeps) {
				d.repo.EXPECT().Upsert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, w domainworker.Worker) (domainworker.Worker, error) {
						return w, nil
					})
				d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeWorkerAvailable)).Return(nil)
				d.attention.EXPECT().RequestAttention("linux", "arm")
			},
		},
		{
			name:    "name is required",
			in:      workersvc.ConnectInput{Builders: []string{"linux"}},
			setup:   func(svcDeps) {},
			wantErr: workersvc.ErrInvalidWorker,
		},
		{
			name:    "builders are required",
			in:      workersvc.ConnectInput{Name: "w1"},
			setup:   func(svcDeps) {},
			wantErr: workersvc.ErrInvalidWorker,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newWorkerSvc(t)
			tt.setup(d)

			w, err := svc.Connect(context.Background(), tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domainworker.StatusIdle, w.Status)
			assert.Equal(t, tt.in.MaxBuilds, w.MaxBuilds)
			assert.NotNil(t, w.LastHeartbeatAt)
		})
	}
}

// ── Disconnect ────────────────────────────────────────────────────────────────

func TestDisconnect_RequeuesLostBuilds(t *testing.T) {
	svc, d := newWorkerSvc(t)
	w := domainworker.New("w1", []string{"linux", "arm"}, nil, 2)
	b1 := domainbuild.New(domainbr.BuildRequest{ID: 1, Builder: "linux"}, w.ID, uuid.New())
	b2 := domainbuild.New(domainbr.BuildRequest{ID: 2, Builder: "linux"}, w.ID, uuid.New())

	d.repo.EXPECT().GetByID(gomock.Any(), w.ID).Return(w, nil)
	d.repo.EXPECT().UpdateStatus(gomock.Any(), w.ID, domainworker.StatusOffline).Return(nil)
	d.builds.EXPECT().ListRunningByWorker(gomock.Any(), w.ID).Return([]domainbuild.Build{b1, b2}, nil)
	for _, b := range []domainbuild.Build{b1, b2} {
		d.builds.EXPECT().Finish(gomock.Any(), b.ID, domainbr.ResultLost).Return(nil)
		d.requests.EXPECT().Release(gomock.Any(), []int64{b.RequestID}, b.CoordinatorID).Return(nil)
	}
	d.repo.EXPECT().FreeSlot(gomock.Any(), w.ID).Return(nil).Times(2)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeBuildRequestReleased)).Return(nil).Times(2)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeWorkerLost)).Return(nil)
	d.attention.EXPECT().RequestAttention("linux")

	require.NoError(t, svc.Disconnect(context.Background(), w.ID))
}

func TestDisconnect_IdleWorkerRequestsNothing(t *testing.T) {
	svc, d := newWorkerSvc(t)
	w := domainworker.New("w1", []string{"linux"}, nil, 1)

	d.repo.EXPECT().GetByID(gomock.Any(), w.ID).Return(w, nil)
	d.repo.EXPECT().UpdateStatus(gomock.Any(), w.ID, domainworker.StatusOffline).Return(nil)
	d.builds.EXPECT().ListRunningByWorker(gomock.Any(), w.ID).Return(nil, nil)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeWorkerLost)).Return(nil)

	require.NoError(t, svc.Disconnect(context.Background(), w.ID))
}

func TestDisconnect_UnknownWorker(t *testing.T) {
	svc, d := newWorkerSvc(t)
	id := uuid.New()
	d.repo.EXPECT().GetByID(gomock.Any(), id).Return(domainworker.Worker{}, domainworker.ErrNotFound)

	assert.ErrorIs(t, svc.Disconnect(context.Background(), id), domainworker.ErrNotFound)
}

// ── Heartbeat / ListStale ─────────────────────────────────────────────────────

func TestHeartbeat(t *testing.T) {
	svc, d := newWorkerSvc(t)
	id := uuid.New()

	d.repo.EXPECT().Heartbeat(gomock.Any(), id).Return(nil)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeWorkerHeartbeat)).Return(errors.New("bus down"))
	require.NoError(t, svc.Heartbeat(context.Background(), id))

	d.repo.EXPECT().Heartbeat(gomock.Any(), id).Return(domainworker.ErrNotFound)
	assert.ErrorIs(t, svc.Heartbeat(context.Background(), id), domainworker.ErrNotFound)
}

func TestListStale(t *testing.T) {
	svc, d := newWorkerSvc(t)
	old := time.Now().Add(-time.Hour)
	fresh := time.Now()

	stale := domainworker.New("stale", []string{"linux"}, nil, 1)
	stale.LastHeartbeatAt = &old
	alive := domainworker.New("alive", []string{"linux"}, nil, 1)
	alive.LastHeartbeatAt = &fresh
	gone := domainworker.New("gone", []string{"linux"}, nil, 1)
	gone.Status = domainworker.StatusOffline

	d.repo.EXPECT().List(gomock.Any(), domainworker.ListFilters{}).
		Return([]domainworker.Worker{stale, alive, gone}, nil)

	got, err := svc.ListStale(context.Background(), time.Minute)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "stale", got[0].Name)
}
