package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyang/build-mesh/internal/domain/event"
	porteventbus "github.com/alanyang/build-mesh/internal/port/eventbus"
)

var _ porteventbus.EventBus = (*EventBus)(nil)

// listenRetryDelay bounds how fast a subscription spins when the listening
// connection keeps failing.
const listenRetryDelay = 500 * time.Millisecond

// EventBus carries events between coordinators over Postgres LISTEN/NOTIFY.
type EventBus struct {
	pool   *pgxpool.Pool
	origin uuid.UUID

	mu   sync.Mutex
	subs map[*subscription]struct{}
}

// New returns a bus that stamps origin onto events published without a coordinator id.
func New(pool *pgxpool.Pool, origin uuid.UUID) *EventBus {
	return &EventBus{
		pool:   pool,
		origin: origin,
		subs:   make(map[*subscription]struct{}),
	}
}

// Publish sends an event via NOTIFY on the domain channel for the event type.
// Notifications issued inside a transaction are delivered on commit.
func (eb *EventBus) Publish(ctx context.Context, e event.Event) error {
	if e.CoordinatorID == uuid.Nil {
		e.CoordinatorID = eb.origin
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	channel := channelName(event.ChannelFor(e.Type))
	if _, err := eb.pool.Exec(ctx, "SELECT pg_notify($1, $2)", channel, string(payload)); err != nil {
		return fmt.Errorf("publishing event on channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe holds one pooled connection in LISTEN for the lifetime of the subscription
// and invokes handler for every event published to the channel.
func (eb *EventBus) Subscribe(ctx context.Context, ch event.Channel, handler porteventbus.Handler) (porteventbus.Subscription, error) {
	conn, err := eb.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for LISTEN: %w", err)
	}

	channel := channelName(ch)
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("executing LISTEN on channel %s: %w", channel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{bus: eb, cancel: cancel, done: make(chan struct{})}

	eb.mu.Lock()
	eb.subs[sub] = struct{}{}
	eb.mu.Unlock()

	go func() {
		defer func() {
			conn.Exec(context.Background(), "UNLISTEN "+channel) //nolint:errcheck
			conn.Release()
			close(sub.done)
		}()

		for {
			notification, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() != nil {
					return
				}
				slog.Warn("waiting for notification", "channel", channel, "error", err)
				select {
				case <-subCtx.Done():
					return
				case <-time.After(listenRetryDelay):
				}
				continue
			}

			var e event.Event
			if err := json.Unmarshal([]byte(notification.Payload), &e); err != nil {
				slog.Warn("dropping malformed event", "channel", channel, "error", err)
				continue
			}

			handler(subCtx, e)
		}
	}()

	return sub, nil
}

// Close stops every open subscription.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	subs := make([]*subscription, 0, len(eb.subs))
	for s := range eb.subs {
		subs = append(subs, s)
	}
	eb.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

// channelName converts a domain Channel to a safe Postgres channel identifier.
func channelName(ch event.Channel) string {
	return "build_mesh_" + string(ch)
}

type subscription struct {
	bus    *EventBus
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
	})
}
