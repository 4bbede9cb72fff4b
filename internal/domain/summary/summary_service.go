package summary

import (
	"context"
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

// Store is the read side of the subscription repository used by summaries.
type Store interface {
	ListByOwner(ctx context.Context, userID uuid.UUID, filter types.ListSubscriptionsFilter) ([]types.Subscription, int, error)
}

type Service interface {
	GetSummary(ctx context.Context, userID uuid.UUID) (*types.SubscriptionSummary, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	store  Store
}

func NewService(store Store, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		store:  store,
	}
}

// GetSummary loads every subscription of the owner and aggregates it.
func (s *ServiceImpl) GetSummary(ctx context.Context, userID uuid.UUID) (*types.SubscriptionSummary, error) {
	ctx, span := otel.Tracer("SummaryService").Start(ctx, "GetSummary", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "GetSummary"), slog.String("userID", userID.String()))

	subs, _, err := s.store.ListByOwner(ctx, userID, types.ListSubscriptionsFilter{})
	if err != nil {
		l.ErrorContext(ctx, "Failed to load subscriptions", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load subscriptions")
		return nil, fmt.Errorf("error loading subscriptions for summary: %w", err)
	}

	summary := ComputeSummary(subs)

	span.SetAttributes(
		attribute.Int("summary.active", summary.ActiveCount),
		attribute.String("summary.monthly_total", summary.MonthlyTotal.StringFixed(2)),
	)
	l.DebugContext(ctx, "Summary computed", slog.Int("subscriptions", len(subs)))
	span.SetStatus(codes.Ok, "")
	return &summary, nil
}
