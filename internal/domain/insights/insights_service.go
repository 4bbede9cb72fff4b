package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/subbase-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Store is the read side of the subscription repository used for analysis.
type Store interface {
	ListByOwner(ctx context.Context, userID uuid.UUID, filter types.ListSubscriptionsFilter) ([]types.Subscription, int, error)
	ListByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]types.Subscription, error)
}

type Service interface {
	GenerateInsights(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (*types.InsightsResult, error)
}

type ServiceImpl struct {
	logger    *slog.Logger
	store     Store
	generator Generator
}

func NewService(store Store, generator Generator, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		store:     store,
		generator: generator,
	}
}

// GenerateInsights analyses the given subscriptions, or every active one when ids is empty.
func (s *ServiceImpl) GenerateInsights(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (*types.InsightsResult, error) {
	ctx, span := otel.Tracer("InsightsService").Start(ctx, "GenerateInsights", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int("insights.requested_ids", len(ids)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "GenerateInsights"), slog.String("userID", userID.String()))

	subs, err := s.load(ctx, userID, dedupe(ids))
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			l.ErrorContext(ctx, "Failed to load subscriptions", slog.Any("error", err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load subscriptions")
		return nil, err
	}

	result, err := s.generator.Generate(ctx, subs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate insights")
		return nil, fmt.Errorf("error generating insights: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (s *ServiceImpl) load(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]types.Subscription, error) {
	if len(ids) == 0 {
		active := types.StatusActive
		subs, _, err := s.store.ListByOwner(ctx, userID, types.ListSubscriptionsFilter{Status: &active})
		if err != nil {
			return nil, fmt.Errorf("error loading active subscriptions: %w", err)
		}
		return subs, nil
	}

	subs, err := s.store.ListByIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("error loading subscriptions: %w", err)
	}
	if len(subs) != len(ids) {
		return nil, fmt.Errorf("one or more subscriptions: %w", types.ErrNotFound)
	}
	return subs, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
