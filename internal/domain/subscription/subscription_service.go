package subscription

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

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service validates subscription commands and delegates persistence to the repository.
type Service interface {
	ListSubscriptions(ctx context.Context, userID uuid.UUID, filter types.ListSubscriptionsFilter) (*types.SubscriptionPage, error)
	GetSubscription(ctx context.Context, userID, id uuid.UUID) (*types.Subscription, error)
	CreateSubscription(ctx context.Context, userID uuid.UUID, params types.CreateSubscriptionParams) (*types.Subscription, error)
	UpdateSubscription(ctx context.Context, userID, id uuid.UUID, params types.UpdateSubscriptionParams) (*types.Subscription, error)
	PatchSubscription(ctx context.Context, userID, id uuid.UUID, params types.PatchSubscriptionParams) (*types.Subscription, error)
	DeleteSubscription(ctx context.Context, userID, id uuid.UUID) error
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
}

func NewService(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *ServiceImpl) ListSubscriptions(ctx context.Context, userID uuid.UUID, filter types.ListSubscriptionsFilter) (*types.SubscriptionPage, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "ListSubscriptions", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "ListSubscriptions"), slog.String("userID", userID.String()))

	filter, err := normalizeFilter(filter)
	if err != nil {
		span.SetStatus(codes.Error, "Invalid list parameters")
		return nil, err
	}

	subs, total, err := s.repo.ListByOwner(ctx, userID, filter)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list subscriptions", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list subscriptions")
		return nil, fmt.Errorf("error listing subscriptions: %w", err)
	}

	page := &types.SubscriptionPage{
		Items:      subs,
		Page:       filter.Page,
		Limit:      filter.Limit,
		Total:      total,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
	}

	l.DebugContext(ctx, "Subscriptions listed", slog.Int("count", len(subs)), slog.Int("total", total))
	span.SetStatus(codes.Ok, "")
	return page, nil
}

func (s *ServiceImpl) GetSubscription(ctx context.Context, userID, id uuid.UUID) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "GetSubscription", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("subscription.id", id.String()),
	))
	defer span.End()

	sub, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch subscription")
		return nil, fmt.Errorf("error fetching subscription: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return sub, nil
}

func (s *ServiceImpl) CreateSubscription(ctx context.Context, userID uuid.UUID, params types.CreateSubscriptionParams) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "CreateSubscription", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateSubscription"), slog.String("userID", userID.String()))

	if params.Currency == "" {
		params.Currency = types.DefaultCurrency
	}
	if params.Status == "" {
		params.Status = types.StatusActive
	}
	if err := fieldsFromCreate(params).validate(); err != nil {
		l.InfoContext(ctx, "Rejected invalid subscription", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid subscription")
		return nil, err
	}

	sub, err := s.repo.Create(ctx, userID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create subscription")
		return nil, fmt.Errorf("error creating subscription: %w", err)
	}

	l.InfoContext(ctx, "Subscription created", slog.String("subscriptionID", sub.ID.String()))
	span.SetStatus(codes.Ok, "")
	return sub, nil
}

func (s *ServiceImpl) UpdateSubscription(ctx context.Context, userID, id uuid.UUID, params types.UpdateSubscriptionParams) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "UpdateSubscription", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("subscription.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateSubscription"), slog.String("subscriptionID", id.String()))

	if err := fields(params).validate(); err != nil {
		span.SetStatus(codes.Error, "Invalid subscription")
		return nil, err
	}

	sub, err := s.repo.Update(ctx, userID, id, params)
	if err != nil {
		l.WarnContext(ctx, "Failed to update subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update subscription")
		return nil, fmt.Errorf("error updating subscription: %w", err)
	}

	l.InfoContext(ctx, "Subscription updated")
	span.SetStatus(codes.Ok, "")
	return sub, nil
}

// PatchSubscription validates the patch against the stored record, so
// next_billing_date is compared to the effective start_date.
func (s *ServiceImpl) PatchSubscription(ctx context.Context, userID, id uuid.UUID, params types.PatchSubscriptionParams) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "PatchSubscription", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("subscription.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "PatchSubscription"), slog.String("subscriptionID", id.String()))

	if params.IsEmpty() {
		span.SetStatus(codes.Error, "Empty patch")
		return nil, &types.ValidationError{Message: "at least one field must be provided"}
	}

	current, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch subscription")
		return nil, fmt.Errorf("error fetching subscription: %w", err)
	}

	if err := merge(current, params).validate(); err != nil {
		span.SetStatus(codes.Error, "Invalid subscription")
		return nil, err
	}

	sub, err := s.repo.Patch(ctx, userID, id, params)
	if err != nil {
		l.WarnContext(ctx, "Failed to patch subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to patch subscription")
		return nil, fmt.Errorf("error patching subscription: %w", err)
	}

	l.InfoContext(ctx, "Subscription patched")
	span.SetStatus(codes.Ok, "")
	return sub, nil
}

func (s *ServiceImpl) DeleteSubscription(ctx context.Context, userID, id uuid.UUID) error {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "DeleteSubscription", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("subscription.id", id.String()),
	))
	defer span.End()

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete subscription")
		return fmt.Errorf("error deleting subscription: %w", err)
	}

	s.logger.InfoContext(ctx, "Subscription deleted",
		slog.String("method", "DeleteSubscription"), slog.String("subscriptionID", id.String()))
	span.SetStatus(codes.Ok, "")
	return nil
}
