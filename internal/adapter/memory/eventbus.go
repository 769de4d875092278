package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyang/build-mesh/internal/domain/event"
	porteventbus "github.com/alanyang/build-mesh/internal/port/eventbus"
)

var _ porteventbus.EventBus = (*EventBus)(nil)

// EventBus fans events out to in-process subscribers. Handlers run on their own goroutine
// per event so a slow subscriber never blocks Publish.
type EventBus struct {
	origin uuid.UUID

	mu   sync.RWMutex
	subs map[event.Channel]map[*subscription]struct{}
	wg   sync.WaitGroup
}

// NewEventBus returns a bus that stamps origin onto events published without a
// coordinator id.
func NewEventBus(origin uuid.UUID) *EventBus {
	return &EventBus{
		origin: origin,
		subs:   make(map[event.Channel]map[*subscription]struct{}),
	}
}

func (eb *EventBus) Publish(_ context.Context, e event.Event) error {
	if e.CoordinatorID == uuid.Nil {
		e.CoordinatorID = eb.origin
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for sub := range eb.subs[event.ChannelFor(e.Type)] {
		eb.wg.Add(1)
		go func(s *subscription) {
			defer eb.wg.Done()
			if s.ctx.Err() != nil {
				return
			}
			s.handler(s.ctx, e)
		}(sub)
	}
	return nil
}

func (eb *EventBus) Subscribe(ctx context.Context, ch event.Channel, handler porteventbus.Handler) (porteventbus.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{bus: eb, ch: ch, ctx: subCtx, cancel: cancel, handler: handler}

	eb.mu.Lock()
	if eb.subs[ch] == nil {
		eb.subs[ch] = make(map[*subscription]struct{})
	}
	eb.subs[ch][sub] = struct{}{}
	eb.mu.Unlock()
	return sub, nil
}

// Drain waits for every handler started so far. Tests use it to observe delivery.
func (eb *EventBus) Drain() {
	eb.wg.Wait()
}

type subscription struct {
	bus     *EventBus
	ch      event.Channel
	ctx     context.Context
	cancel  context.CancelFunc
	handler porteventbus.Handler
}

func (s *subscription) Unsubscribe() {
	s.cancel()
	s.bus.mu.Lock()
	delete(s.bus.subs[s.ch], s)
	s.bus.mu.Unlock()
}
