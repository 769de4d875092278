package buildrequest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	domainbuilder "github.com/alanyang/build-mesh/internal/domain/builder"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	"github.com/alanyang/build-mesh/internal/domain/event"
	portbr "github.com/alanyang/build-mesh/internal/port/buildrequest"
	portdist "github.com/alanyang/build-mesh/internal/port/distributor"
	portbus "github.com/alanyang/build-mesh/internal/port/eventbus"
)

var ErrInvalidRequest = errors.New("invalid build request")

// BuilderLookup reports whether a builder is configured.
// [ISP] Submit only needs existence, not the whole registry.
type BuilderLookup interface {
	Get(name string) (domainbuilder.Builder, error)
}

// Service is the entry point for new work. Every accepted request triggers attention
// for its builder.
type Service struct {
	repo      portbr.Repository
	builders  BuilderLookup
	bus       portbus.EventBus
	attention portdist.AttentionRequester
}

func NewService(repo portbr.Repository, builders BuilderLookup, bus portbus.EventBus, attention portdist.AttentionRequester) *Service {
	return &Service{repo: repo, builders: builders, bus: bus, attention: attention}
}

type SubmitInput struct {
	Builder      string   `json:"builder"`
	Priority     int      `json:"priority"`
	RequiredTags []string `json:"required_tags"`
	Reason       string   `json:"reason"`
}

func (s *Service) Submit(ctx context.Context, in SubmitInput) (domainbr.BuildRequest, error) {
	if in.Builder == "" {
		return domainbr.BuildRequest{}, fmt.Errorf("%w: builder is required", ErrInvalidRequest)
	}
	if _, err := s.builders.Get(in.Builder); err != nil {
		return domainbr.BuildRequest{}, fmt.Errorf("submit build request: %w", err)
	}

	created, err := s.repo.Create(ctx, domainbr.New(in.Builder, in.Priority, in.RequiredTags, in.Reason))
	if err != nil {
		return domainbr.BuildRequest{}, fmt.Errorf("submit build request: %w", err)
	}

	if err := s.bus.Publish(ctx, event.New(event.TypeBuildRequestNew, strconv.FormatInt(created.ID, 10), created.Builder)); err != nil {
		slog.ErrorContext(ctx, "failed to publish BuildRequestNew event", "request_id", created.ID, "error", err)
	}
	s.attention.RequestAttention(created.Builder)
	return created, nil
}

// Cancel completes a request that no coordinator has claimed yet.
func (s *Service) Cancel(ctx context.Context, id int64) (domainbr.BuildRequest, error) {
	if err := s.repo.CompleteUnclaimed(ctx, id, domainbr.ResultCancelled); err != nil {
		return domainbr.BuildRequest{}, fmt.Errorf("cancel build request: %w", err)
	}
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domainbr.BuildRequest{}, fmt.Errorf("cancel build request: %w", err)
	}
	if err := s.bus.Publish(ctx, event.New(event.TypeBuildRequestCancelled, strconv.FormatInt(id, 10), req.Builder)); err != nil {
		slog.ErrorContext(ctx, "failed to publish BuildRequestCancelled event", "request_id", id, "error", err)
	}
	return req, nil
}

func (s *Service) Get(ctx context.Context, id int64) (domainbr.BuildRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domainbr.BuildRequest{}, fmt.Errorf("get build request: %w", err)
	}
	return req, nil
}

func (s *Service) List(ctx context.Context, filters domainbr.ListFilters) ([]domainbr.BuildRequest, error) {
	reqs, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list build requests: %w", err)
	}
	return reqs, nil
}
