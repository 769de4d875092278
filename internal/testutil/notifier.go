package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// NotifyCall records a single notification delivered by CaptureNotifier.
type NotifyCall struct {
	WorkerID uuid.UUID
	Event    any
}

// CaptureNotifier is a test double for port/notifier.WorkerNotifier.
// It records every call with a mutex so it is safe for concurrent use.
type CaptureNotifier struct {
	mu    sync.Mutex
	Calls []NotifyCall
	Err   error
}

func (c *CaptureNotifier) NotifyWorker(_ context.Context, workerID uuid.UUID, event any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, NotifyCall{WorkerID: workerID, Event: event})
	return c.Err
}

// WorkerNotifications returns all calls made for a specific worker.
func (c *CaptureNotifier) WorkerNotifications(workerID uuid.UUID) []NotifyCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []NotifyCall
	for _, call := range c.Calls {
		if call.WorkerID == workerID {
			out = append(out, call)
		}
	}
	return out
}

// Reset clears all recorded calls.
func (c *CaptureNotifier) Reset() {
	c.mu.Lock()
	c.Calls = nil
	c.mu.Unlock()
}
