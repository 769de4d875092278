package worker

import (
	"context"

	"github.com/google/uuid"

	domainworker "github.com/alanyang/build-mesh/internal/domain/worker"
)

//go:generate mockgen -destination=../../mocks/worker.go -package=mocks -mock_names=WorkerPool=MockWorkerPool,Repository=MockWorkerRepository . WorkerPool,Repository

// WorkerRef is one execution agent as seen by the distributor. Worker returns the state
// read when the ref was produced; IsAvailable may be re-evaluated and can change between
// calls.
type WorkerRef interface {
	Worker() domainworker.Worker
	IsAvailable() bool
}

// WorkerPool is the narrow interface the distributor needs.
type WorkerPool interface {
	AvailableWorkers(ctx context.Context, builder string) ([]WorkerRef, error)
}

// Repository manages worker state.
type Repository interface {
	WorkerPool

	Upsert(ctx context.Context, w domainworker.Worker) (domainworker.Worker, error)
	GetByID(ctx context.Context, id uuid.UUID) (domainworker.Worker, error)
	List(ctx context.Context, filters domainworker.ListFilters) ([]domainworker.Worker, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domainworker.Status) error
	Heartbeat(ctx context.Context, id uuid.UUID) error

	// ReserveSlot performs an atomic CAS: increments running_builds only while it is
	// below max_builds and the worker is connected. Returns ErrNoSlot otherwise.
	ReserveSlot(ctx context.Context, id uuid.UUID) error
	// FreeSlot decrements running_builds, never below zero.
	FreeSlot(ctx context.Context, id uuid.UUID) error
}
