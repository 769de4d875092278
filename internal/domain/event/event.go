package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeBuildRequestNew       Type = "buildrequest_new"
	TypeBuildRequestCancelled Type = "buildrequest_cancelled"
	TypeBuildRequestReleased  Type = "buildrequest_released"
	TypeWorkerAvailable       Type = "worker_available"
	TypeWorkerLost            Type = "worker_lost"
	TypeWorkerHeartbeat       Type = "worker_heartbeat"
	TypeBuildStarted          Type = "build_started"
	TypeBuildFinished         Type = "build_finished"
	TypeBuilderChanged        Type = "builder_changed"
)

// Channel is a domain-scoped bus channel.
// All event types within a domain share one subscription.
type Channel string

const (
	ChannelBuildRequest Channel = "buildrequest"
	ChannelWorker       Channel = "worker"
	ChannelBuild        Channel = "build"
	ChannelBuilder      Channel = "builder"
)

var typeToChannel = map[Type]Channel{
	TypeBuildRequestNew:       ChannelBuildRequest,
	TypeBuildRequestCancelled: ChannelBuildRequest,
	TypeBuildRequestReleased:  ChannelBuildRequest,
	TypeWorkerAvailable:       ChannelWorker,
	TypeWorkerLost:            ChannelWorker,
	TypeWorkerHeartbeat:       ChannelWorker,
	TypeBuildStarted:          ChannelBuild,
	TypeBuildFinished:         ChannelBuild,
	TypeBuilderChanged:        ChannelBuilder,
}

// ChannelFor returns the domain channel for a given event type.
func ChannelFor(t Type) Channel { return typeToChannel[t] }

// AllChannels lists every channel in a stable order.
func AllChannels() []Channel {
	return []Channel{ChannelBuildRequest, ChannelWorker, ChannelBuild, ChannelBuilder}
}

// Event carries identifiers only, not full state.
// Subscribers fetch fresh state from the appropriate repository. Builders names the
// queues the event concerns so remote coordinators can request attention without a lookup.
type Event struct {
	Type          Type      `json:"type"`
	EntityID      string    `json:"entity_id"`
	Builders      []string  `json:"builders,omitempty"`
	CoordinatorID uuid.UUID `json:"coordinator_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func New(eventType Type, entityID string, builders ...string) Event {
	return Event{
		Type:      eventType,
		EntityID:  entityID,
		Builders:  builders,
		Timestamp: time.Now().UTC(),
	}
}

// WantsAttention reports whether the event signals new capacity or new work.
func (e Event) WantsAttention() bool {
	switch e.Type {
	case TypeBuildRequestNew, TypeBuildRequestReleased, TypeWorkerAvailable, TypeBuildFinished, TypeBuilderChanged:
		return true
	}
	return false
}
