package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"

	domaincoord "github.com/alanyang/build-mesh/internal/domain/coordinator"
)

//go:generate mockgen -destination=../../mocks/coordinator.go -package=mocks -mock_names=Repository=MockCoordinatorRepository . Repository

type Repository interface {
	Register(ctx context.Context, c domaincoord.Coordinator) error
	Heartbeat(ctx context.Context, id uuid.UUID, at time.Time) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	// ListStale returns active coordinators not seen since before the cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]domaincoord.Coordinator, error)
}
