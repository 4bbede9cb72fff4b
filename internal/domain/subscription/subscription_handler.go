package subscription

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/FACorreiaa/subbase-api/internal/domain/subscription/presenter"
	"github.com/FACorreiaa/subbase-api/internal/types"
	"github.com/FACorreiaa/subbase-api/pkg/interceptors"
)

type Handler struct {
	service Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{service: svc}
}

func (h *Handler) ListSubscriptions(ctx context.Context, req *connect.Request[types.ListSubscriptionsRequest]) (*connect.Response[types.ListSubscriptionsResponse], error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	page, err := h.service.ListSubscriptions(ctx, userID, presenter.FromListRequest(req.Msg))
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(presenter.ToListResponse(page)), nil
}

func (h *Handler) GetSubscription(ctx context.Context, req *connect.Request[types.GetSubscriptionRequest]) (*connect.Response[types.SubscriptionResponse], error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := presenter.ParseUUID(req.Msg.ID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid subscription id: %w", err))
	}

	sub, err := h.service.GetSubscription(ctx, userID, id)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&types.SubscriptionResponse{Data: presenter.ToDTO(sub)}), nil
}

func (h *Handler) CreateSubscription(ctx context.Context, req *connect.Request[types.CreateSubscriptionRequest]) (*connect.Response[types.SubscriptionResponse], error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	params, err := presenter.FromCreateRequest(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	sub, err := h.service.CreateSubscription(ctx, userID, params)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&types.SubscriptionResponse{Data: presenter.ToDTO(sub)}), nil
}

func (h *Handler) UpdateSubscription(ctx context.Context, req *connect.Request[types.UpdateSubscriptionRequest]) (*connect.Response[types.SubscriptionResponse], error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	id, params, err := presenter.FromUpdateRequest(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	sub, err := h.service.UpdateSubscription(ctx, userID, id, params)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&types.SubscriptionResponse{Data: presenter.ToDTO(sub)}), nil
}

func (h *Handler) PatchSubscription(ctx context.Context, req *connect.Request[types.PatchSubscriptionRequest]) (*connect.Response[types.SubscriptionResponse], error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	id, params, err := presenter.FromPatchRequest(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	sub, err := h.service.PatchSubscription(ctx, userID, id, params)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&types.SubscriptionResponse{Data: presenter.ToDTO(sub)}), nil
}

func (h *Handler) DeleteSubscription(ctx context.Context, req *connect.Request[types.DeleteSubscriptionRequest]) (*connect.Response[types.DeleteSubscriptionResponse], error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := presenter.ParseUUID(req.Msg.ID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid subscription id: %w", err))
	}

	if err := h.service.DeleteSubscription(ctx, userID, id); err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&types.DeleteSubscriptionResponse{}), nil
}

func userIDFromContext(ctx context.Context) (uuid.UUID, error) {
	userIDStr, ok := interceptors.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		return uuid.Nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("invalid user id: %w", err))
	}
	return userID, nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, errors.New("subscription not found"))
	case errors.Is(err, types.ErrBadRequest):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, types.ErrConflict):
		return connect.NewError(connect.CodeAlreadyExists, err)
	default:
		return connect.NewError(connect.CodeInternal, errors.New("internal server error"))
	}
}
