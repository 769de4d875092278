package build_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainbuild "github.com/alanyang/build-mesh/internal/domain/build"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	"github.com/alanyang/build-mesh/internal/domain/event"
	domainworker "github.com/alanyang/build-mesh/internal/domain/worker"
	"github.com/alanyang/build-mesh/internal/mocks"
	buildsvc "github.com/alanyang/build-mesh/internal/service/build"
)

// ── helpers ───────────────────────────────────────────────────────────────────

type svcDeps struct {
	builds    *mocks.MockBuildRepository
	requests  *mocks.MockBuildRequestRepository
	workers   *mocks.MockWorkerRepository
	bus       *mocks.MockEventBus
	notifier  *mocks.MockWorkerNotifier
	attention *mocks.MockAttentionRequester
	coordID   uuid.UUID
}

func newBuildSvc(t *testing.T) (*buildsvc.Service, svcDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	d := svcDeps{
		builds:    mocks.NewMockBuildRepository(ctrl),
		requests:  mocks.NewMockBuildRequestRepository(ctrl),
		workers:   mocks.NewMockWorkerRepository(ctrl),
		bus:       mocks.NewMockEventBus(ctrl),
		notifier:  mocks.NewMockWorkerNotifier(ctrl),
		attention: mocks.NewMockAttentionRequester(ctrl),
		coordID:   uuid.New(),
	}
	svc := buildsvc.NewService(d.coordID, d.builds, d.requests, d.workers, d.bus, d.notifier, d.attention)
	return svc, d
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

func linuxRequest() domainbr.BuildRequest {
	return domainbr.BuildRequest{ID: 42, Builder: "linux"}
}

// ── StartBuild ────────────────────────────────────────────────────────────────

func TestStartBuild(t *testing.T) {
	tests := []struct {
		name        string
		maxBuilds   int
		setup       func(d svcDeps, w domainworker.Worker)
		wantStarted bool
		wantErr     bool
	}{
		{
			name:      "records build and notifies worker",
			maxBuilds: 1,
			setup: func(d svcDeps, w domainworker.Worker) {
				d.workers.EXPECT().ReserveSlot(gomock.Any(), w.ID).Return(nil)
				d.builds.EXPECT().Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, b domainbuild.Build) (domainbuild.Build, error) {
						return b, nil
					})
				d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeBuildStarted)).Return(nil)
				d.notifier.EXPECT().NotifyWorker(gomock.Any(), w.ID, gomock.Any()).Return(nil)
			},
			wantStarted: true,
		},
		{
			name:      "worker with spare slots gets attention",
			maxBuilds: 3,
			setup: func(d svcDeps, w domainworker.Worker) {
				d.workers.EXPECT().ReserveSlot(gomock.Any(), w.ID).Return(nil)
				d.builds.EXPECT().Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, b domainbuild.Build) (domainbuild.Build, error) {
						return b, nil
					})
				d.bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
				d.notifier.EXPECT().NotifyWorker(gomock.Any(), w.ID, gomock.Any()).Return(nil)
				d.attention.EXPECT().RequestAttention("linux")
			},
			wantStarted: true,
		},
		{
			name:      "publish failure still counts as started",
			maxBuilds: 1,
			setup: func(d svcDeps, w domainworker.Worker) {
				d.workers.EXPECT().ReserveSlot(gomock.Any(), w.ID).Return(nil)
				d.builds.EXPECT().Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, b domainbuild.Build) (domainbuild.Build, error) {
						return b, nil
					})
				d.notifier.EXPECT().NotifyWorker(gomock.Any(), w.ID, gomock.Any()).Return(nil)
				d.bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("bus down"))
			},
			wantStarted: true,
		},
		{
			name:      "undelivered build is rolled back",
			maxBuilds: 3,
			setup: func(d svcDeps, w domainworker.Worker) {
				d.workers.EXPECT().ReserveSlot(gomock.Any(), w.ID).Return(nil)
				var created domainbuild.Build
				d.builds.EXPECT().Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, b domainbuild.Build) (domainbuild.Build, error) {
						created = b
						return b, nil
					})
				d.notifier.EXPECT().NotifyWorker(gomock.Any(), w.ID, gomock.Any()).Return(errors.New("no session"))
				d.builds.EXPECT().Finish(gomock.Any(), gomock.Any(), domainbr.ResultLost).
					DoAndReturn(func(_ context.Context, id uuid.UUID, _ domainbr.Result) error {
						assert.Equal(t, created.ID, id)
						return nil
					})
				d.workers.EXPECT().FreeSlot(gomock.Any(), w.ID).Return(nil)
			},
		},
		{
			name:      "no free slot is not an error",
			maxBuilds: 1,
			setup: func(d svcDeps, w domainworker.Worker) {
				d.workers.EXPECT().ReserveSlot(gomock.Any(), w.ID).Return(domainworker.ErrNoSlot)
			},
		},
		{
			name:      "slot reservation failure is an error",
			maxBuilds: 1,
			setup: func(d svcDeps, w domainworker.Worker) {
				d.workers.EXPECT().ReserveSlot(gomock.Any(), w.ID).Return(errors.New("db down"))
			},
			wantErr: true,
		},
		{
			name:      "build insert failure frees the slot",
			maxBuilds: 1,
			setup: func(d svcDeps, w domainworker.Worker) {
				d.workers.EXPECT().ReserveSlot(gomock.Any(), w.ID).Return(nil)
				d.builds.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domainbuild.Build{}, errors.New("db down"))
				d.workers.EXPECT().FreeSlot(gomock.Any(), w.ID).Return(nil)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newBuildSvc(t)
			w := domainworker.New("w1", []string{"linux"}, nil, tt.maxBuilds)
			tt.setup(d, w)

			started, err := svc.StartBuild(context.Background(), w, linuxRequest())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantStarted, started)
		})
	}
}

// ── FinishBuild ───────────────────────────────────────────────────────────────

func TestFinishBuild(t *testing.T) {
	svc, d := newBuildSvc(t)
	w := domainworker.New("w1", []string{"linux", "arm"}, nil, 1)
	b := domainbuild.New(linuxRequest(), w.ID, d.coordID)

	d.builds.EXPECT().GetByID(gomock.Any(), b.ID).Return(b, nil)
	d.builds.EXPECT().Finish(gomock.Any(), b.ID, domainbr.ResultSuccess).Return(nil)
	d.requests.EXPECT().Complete(gomock.Any(), []int64{42}, domainbr.ResultSuccess).Return(nil)
	d.workers.EXPECT().FreeSlot(gomock.Any(), w.ID).Return(nil)
	d.workers.EXPECT().GetByID(gomock.Any(), w.ID).Return(w, nil)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeBuildFinished)).Return(nil)
	d.attention.EXPECT().RequestAttention("linux", "arm")

	got, err := svc.FinishBuild(context.Background(), b.ID, domainbr.ResultSuccess)
	require.NoError(t, err)
	require.NotNil(t, got.Results)
	assert.Equal(t, domainbr.ResultSuccess, *got.Results)
	assert.True(t, got.Finished())
}

func TestFinishBuild_AlreadyFinished(t *testing.T) {
	svc, d := newBuildSvc(t)
	b := domainbuild.New(linuxRequest(), uuid.New(), d.coordID)

	d.builds.EXPECT().GetByID(gomock.Any(), b.ID).Return(b, nil)
	d.builds.EXPECT().Finish(gomock.Any(), b.ID, domainbr.ResultFailure).Return(domainbuild.ErrAlreadyFinished)

	_, err := svc.FinishBuild(context.Background(), b.ID, domainbr.ResultFailure)
	assert.ErrorIs(t, err, domainbuild.ErrAlreadyFinished)
}

func TestFinishBuild_NotFound(t *testing.T) {
	svc, d := newBuildSvc(t)
	id := uuid.New()
	d.builds.EXPECT().GetByID(gomock.Any(), id).Return(domainbuild.Build{}, domainbuild.ErrNotFound)

	_, err := svc.FinishBuild(context.Background(), id, domainbr.ResultSuccess)
	assert.ErrorIs(t, err, domainbuild.ErrNotFound)
}
