package builder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	domainbuilder "github.com/alanyang/build-mesh/internal/domain/builder"
	"github.com/alanyang/build-mesh/internal/domain/event"
	portbuild "github.com/alanyang/build-mesh/internal/port/build"
	portdist "github.com/alanyang/build-mesh/internal/port/distributor"
	portbus "github.com/alanyang/build-mesh/internal/port/eventbus"
	"github.com/alanyang/build-mesh/internal/service/distributor"
	"github.com/alanyang/build-mesh/internal/service/policy"
)

var _ distributor.QueueSource = (*Service)(nil)

// Service is the registry of configured builders. It resolves policy names once per
// configuration and serves the resulting queues to the distributor.
type Service struct {
	starter   portbuild.Starter
	bus       portbus.EventBus
	attention portdist.AttentionRequester

	mu     sync.RWMutex
	queues map[string]distributor.Queue
}

func NewService(starter portbuild.Starter, bus portbus.EventBus, attention portdist.AttentionRequester) *Service {
	return &Service{
		starter:   starter,
		bus:       bus,
		attention: attention,
		queues:    make(map[string]distributor.Queue),
	}
}

// Queue implements distributor.QueueSource.
func (s *Service) Queue(name string) (distributor.Queue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.queues[name]
	return q, ok
}

func (s *Service) Get(name string) (domainbuilder.Builder, error) {
	q, ok := s.Queue(name)
	if !ok {
		return domainbuilder.Builder{}, fmt.Errorf("builder %q: %w", name, domainbuilder.ErrUnknownBuilder)
	}
	return q.Builder, nil
}

// List returns the configured builders sorted by name.
func (s *Service) List() []domainbuilder.Builder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domainbuilder.Builder, 0, len(s.queues))
	for _, q := range s.queues {
		out = append(out, q.Builder)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Service) Names() []string {
	builders := s.List()
	names := make([]string, len(builders))
	for i, b := range builders {
		names[i] = b.Name
	}
	return names
}

// Reconfigure replaces the builder set. The new set is validated and resolved in full
// before anything is swapped, so a bad configuration leaves the old one in place.
// Builders whose configuration is unchanged keep their policy instances. Added and
// changed builders get attention; removed builders simply stop yielding work.
func (s *Service) Reconfigure(ctx context.Context, builders []domainbuilder.Builder) error {
	if err := domainbuilder.ValidateAll(builders); err != nil {
		return fmt.Errorf("validate builders: %w", err)
	}

	s.mu.Lock()
	next := make(map[string]distributor.Queue, len(builders))
	var changed []string
	for _, b := range builders {
		if old, ok := s.queues[b.Name]; ok && old.Builder == b {
			next[b.Name] = old
			continue
		}
		set, err := policy.Resolve(b)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("resolve policies: %w", err)
		}
		next[b.Name] = distributor.Queue{Builder: b, Policy: set, Starter: s.starter}
		changed = append(changed, b.Name)
	}
	var removed []string
	for name := range s.queues {
		if _, ok := next[name]; !ok {
			removed = append(removed, name)
		}
	}
	s.queues = next
	s.mu.Unlock()

	sort.Strings(changed)
	if len(removed) > 0 {
		slog.InfoContext(ctx, "builders removed", "builders", removed)
	}
	if len(changed) == 0 {
		return nil
	}
	slog.InfoContext(ctx, "builders configured", "builders", changed)

	for _, name := range changed {
		if err := s.bus.Publish(ctx, event.New(event.TypeBuilderChanged, name, name)); err != nil {
			slog.ErrorContext(ctx, "failed to publish BuilderChanged event", "builder", name, "error", err)
		}
	}
	s.attention.RequestAttention(changed...)
	return nil
}

// RequestAttention asks the distributor to look at one configured builder.
func (s *Service) RequestAttention(name string) error {
	if _, ok := s.Queue(name); !ok {
		return fmt.Errorf("builder %q: %w", name, domainbuilder.ErrUnknownBuilder)
	}
	s.attention.RequestAttention(name)
	return nil
}
