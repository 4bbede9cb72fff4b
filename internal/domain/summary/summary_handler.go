package summary

import (
	"context"
	"errors"
	"fmt"

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

func (h *Handler) GetSummary(ctx context.Context, _ *connect.Request[types.GetSummaryRequest]) (*connect.Response[types.GetSummaryResponse], error) {
	userIDStr, ok := interceptors.GetUserIDFromContext(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("invalid user id: %w", err))
	}

	summary, err := h.service.GetSummary(ctx, userID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to compute summary"))
	}

	return connect.NewResponse(&types.GetSummaryResponse{Data: toDTO(summary)}), nil
}

func toDTO(s *types.SubscriptionSummary) types.SubscriptionSummaryDTO {
	return types.SubscriptionSummaryDTO{
		MonthlyTotal:   s.MonthlyTotal.InexactFloat64(),
		YearlyTotal:    s.YearlyTotal.InexactFloat64(),
		Currency:       s.Currency,
		ActiveCount:    s.ActiveCount,
		PausedCount:    s.PausedCount,
		CancelledCount: s.CancelledCount,
	}
}
