package build

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/alanyang/build-mesh/internal/domain/buildrequest"
)

var (
	ErrNotFound        = errors.New("build not found")
	ErrAlreadyFinished = errors.New("build already finished")
)

// Build is one started execution of a build request on a worker.
type Build struct {
	ID            uuid.UUID            `json:"id"`
	RequestID     int64                `json:"request_id"`
	Builder       string               `json:"builder"`
	WorkerID      uuid.UUID            `json:"worker_id"`
	CoordinatorID uuid.UUID            `json:"coordinator_id"`
	StartedAt     time.Time            `json:"started_at"`
	FinishedAt    *time.Time           `json:"finished_at,omitempty"`
	Results       *buildrequest.Result `json:"results,omitempty"`
}

func New(req buildrequest.BuildRequest, workerID, coordinatorID uuid.UUID) Build {
	return Build{
		ID:            uuid.New(),
		RequestID:     req.ID,
		Builder:       req.Builder,
		WorkerID:      workerID,
		CoordinatorID: coordinatorID,
		StartedAt:     time.Now().UTC(),
	}
}

func (b Build) Finished() bool { return b.FinishedAt != nil }
