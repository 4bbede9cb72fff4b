package insights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/FACorreiaa/subbase-api/internal/types"
	"github.com/FACorreiaa/subbase-api/pkg/interceptors"
)

type Handler struct {
	service Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{service: svc}
}

func (h *Handler) GenerateInsights(ctx context.Context, req *connect.Request[types.GenerateInsightsRequest]) (*connect.Response[types.GenerateInsightsResponse], error) {
	userIDStr, ok := interceptors.GetUserIDFromContext(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("invalid user id: %w", err))
	}

	ids, err := parseIDs(req.Msg.SubscriptionIDs)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	result, err := h.service.GenerateInsights(ctx, userID, ids)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&types.GenerateInsightsResponse{
		Data: types.InsightsDataDTO{
			Insights:          result.Insights,
			GeneratedAt:       result.GeneratedAt.UTC().Format(time.RFC3339),
			SubscriptionCount: result.SubscriptionCount,
		},
	}), nil
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("subscription_ids[%d] is not a valid uuid", i)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, errors.New("one or more subscriptions not found"))
	case errors.Is(err, types.ErrServiceUnavailable):
		return connect.NewError(connect.CodeUnavailable, types.ErrServiceUnavailable)
	case errors.Is(err, types.ErrInternalFormat):
		return connect.NewError(connect.CodeInternal, types.ErrInternalFormat)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, errors.New("internal server error"))
	}
}
