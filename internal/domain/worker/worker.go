package worker

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("worker not found")
	ErrNoSlot   = errors.New("worker has no free build slot")
)

type Status string

const (
	StatusIdle     Status = "idle"
	StatusBuilding Status = "building"
	StatusPaused   Status = "paused"
	StatusOffline  Status = "offline"
)

type Worker struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Builders        []string   `json:"builders"`
	Tags            []string   `json:"tags"`
	Status          Status     `json:"status"`
	MaxBuilds       int        `json:"max_builds"`
	RunningBuilds   int        `json:"running_builds"`
	LastHeartbeatAt *time.Time `json:"last_heartbeat_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func New(name string, builders, tags []string, maxBuilds int) Worker {
	if maxBuilds <= 0 {
		maxBuilds = 1
	}
	if builders == nil {
		builders = []string{}
	}
	if tags == nil {
		tags = []string{}
	}
	return Worker{
		ID:        uuid.New(),
		Name:      name,
		Builders:  builders,
		Tags:      tags,
		Status:    StatusIdle,
		MaxBuilds: maxBuilds,
		CreatedAt: time.Now().UTC(),
	}
}

// IsAvailable reports whether the worker can take one more build right now.
func (w Worker) IsAvailable() bool {
	if w.Status != StatusIdle && w.Status != StatusBuilding {
		return false
	}
	return w.RunningBuilds < w.MaxBuilds
}

// Worker returns the receiver, so a plain Worker value satisfies port/worker.WorkerRef
// as a point-in-time snapshot.
func (w Worker) Worker() Worker { return w }

func (w Worker) ServesBuilder(name string) bool {
	for _, b := range w.Builders {
		if b == name {
			return true
		}
	}
	return false
}

func (w Worker) HasTag(tag string) bool {
	for _, t := range w.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasAllTags reports whether every required tag is present on the worker.
func (w Worker) HasAllTags(required []string) bool {
	for _, r := range required {
		if !w.HasTag(r) {
			return false
		}
	}
	return true
}

func (w *Worker) RecordHeartbeat() {
	now := time.Now().UTC()
	w.LastHeartbeatAt = &now
}

func (w *Worker) IsStale(timeout time.Duration) bool {
	if w.LastHeartbeatAt == nil {
		return true
	}
	return time.Since(*w.LastHeartbeatAt) > timeout
}

// StatusFor derives the status a connected worker should carry for a running count.
func StatusFor(running int) Status {
	if running > 0 {
		return StatusBuilding
	}
	return StatusIdle
}

type ListFilters struct {
	Builder *string
	Status  *Status
}
