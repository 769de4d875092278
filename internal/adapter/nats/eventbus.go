// Package nats carries coordinator events over NATS core subjects, one subject per
// event channel.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/alanyang/build-mesh/internal/domain/event"
	porteventbus "github.com/alanyang/build-mesh/internal/port/eventbus"
)

var _ porteventbus.EventBus = (*EventBus)(nil)

const subjectPrefix = "build_mesh."

type EventBus struct {
	conn   *nats.Conn
	origin uuid.UUID
	owned  bool

	mu   sync.Mutex
	subs map[*subscription]struct{}
}

// Connect dials url and returns a bus that owns the connection.
func Connect(url, name string, origin uuid.UUID) (*EventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS event bus connected", "url", url, "coordinator_id", origin)
	bus := New(conn, origin)
	bus.owned = true
	return bus, nil
}

// New wraps an existing connection. The caller keeps ownership of conn.
func New(conn *nats.Conn, origin uuid.UUID) *EventBus {
	return &EventBus{
		conn:   conn,
		origin: origin,
		subs:   make(map[*subscription]struct{}),
	}
}

func (eb *EventBus) Publish(_ context.Context, e event.Event) error {
	if e.CoordinatorID == uuid.Nil {
		e.CoordinatorID = eb.origin
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := Subject(event.ChannelFor(e.Type))
	if err := eb.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event on %s: %w", subject, err)
	}
	return nil
}

// Subscribe delivers every event on the channel's subject to handler. Messages are
// handled in order on the subscription's own goroutine.
func (eb *EventBus) Subscribe(ctx context.Context, ch event.Channel, handler porteventbus.Handler) (porteventbus.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	subject := Subject(ch)

	ns, err := eb.conn.Subscribe(subject, func(msg *nats.Msg) {
		if subCtx.Err() != nil {
			return
		}
		var e event.Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			slog.Warn("dropping malformed event", "subject", subject, "error", err)
			return
		}
		handler(subCtx, e)
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	sub := &subscription{bus: eb, ns: ns, cancel: cancel}
	eb.mu.Lock()
	eb.subs[sub] = struct{}{}
	eb.mu.Unlock()

	go func() {
		<-subCtx.Done()
		sub.Unsubscribe()
	}()
	return sub, nil
}

// Close drops every subscription and, when the bus dialled the connection itself,
// drains and closes it.
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
	if eb.owned {
		if err := eb.conn.Drain(); err != nil {
			slog.Warn("nats drain failed", "error", err)
			eb.conn.Close()
		}
	}
}

// Subject maps a domain channel onto its NATS subject.
func Subject(ch event.Channel) string {
	return subjectPrefix + string(ch)
}

type subscription struct {
	bus    *EventBus
	ns     *nats.Subscription
	cancel context.CancelFunc
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		if err := s.ns.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed {
			slog.Warn("nats unsubscribe failed", "subject", s.ns.Subject, "error", err)
		}
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
	})
}
