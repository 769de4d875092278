package notifier

import (
	"context"

	"github.com/google/uuid"
)

//go:generate mockgen -destination=../../mocks/notifier.go -package=mocks . WorkerNotifier

// WorkerNotifier pushes an event to a specific worker's live session.
// [DIP] The build starter depends on this abstraction, not on the websocket transport.
type WorkerNotifier interface {
	NotifyWorker(ctx context.Context, workerID uuid.UUID, event any) error
}
