package coordinator

import (
	"time"

	"github.com/google/uuid"
)

// Coordinator is one running instance of the scheduling service.
type Coordinator struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Active     bool      `json:"active"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

func New(name string) Coordinator {
	return Coordinator{
		ID:         uuid.New(),
		Name:       name,
		Active:     true,
		LastSeenAt: time.Now().UTC(),
	}
}

func (c Coordinator) IsStale(now time.Time, timeout time.Duration) bool {
	return now.Sub(c.LastSeenAt) > timeout
}
