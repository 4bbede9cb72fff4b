package subscription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/subbase-api/internal/types"
	"github.com/FACorreiaa/subbase-api/pkg/interceptors"
)

// withUser stands in for the auth interceptor.
func withUser(userID string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if userID != "" {
				ctx = context.WithValue(ctx, interceptors.UserIDKey, userID)
			}
			return next(ctx, req)
		}
	}
}

func setupHandlerTest(t *testing.T, userID string) (*SubscriptionServiceClient, *MockRepository) {
	t.Helper()
	svc, repo := setupServiceTest()
	path, handler := NewSubscriptionServiceHandler(NewHandler(svc), connect.WithInterceptors(withUser(userID)))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewSubscriptionServiceClient(srv.Client(), srv.URL), repo
}

func TestHandlerCreateSubscription(t *testing.T) {
	userID := uuid.New()
	client, repo := setupHandlerTest(t, userID.String())

	cost := decimal.RequireFromString("43.99")
	next := "2025-02-01"
	created := &types.Subscription{
		ID:              uuid.New(),
		UserID:          userID,
		Name:            "Netflix",
		Cost:            cost,
		Currency:        "PLN",
		BillingCycle:    types.BillingCycleMonthly,
		Status:          types.StatusActive,
		StartDate:       date("2025-01-01"),
		NextBillingDate: func() *time.Time { d := date(next); return &d }(),
		CreatedAt:       time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC),
	}
	repo.On("Create", mock.Anything, userID, mock.MatchedBy(func(p types.CreateSubscriptionParams) bool {
		return p.Name == "Netflix" && p.Currency == "PLN" && p.Cost.Equal(cost) && p.NextBillingDate != nil
	})).Return(created, nil).Once()

	resp, err := client.CreateSubscription(context.Background(), connect.NewRequest(&types.CreateSubscriptionRequest{
		Name:            " Netflix ",
		Cost:            &cost,
		BillingCycle:    "monthly",
		StartDate:       "2025-01-01",
		NextBillingDate: &next,
	}))
	require.NoError(t, err)

	dto := resp.Msg.Data
	assert.Equal(t, created.ID.String(), dto.ID)
	assert.Equal(t, 43.99, dto.Cost)
	assert.Equal(t, "2025-01-01", dto.StartDate)
	require.NotNil(t, dto.NextBillingDate)
	assert.Equal(t, next, *dto.NextBillingDate)
	assert.Equal(t, "2025-01-01T09:30:00Z", dto.CreatedAt)
	repo.AssertExpectations(t)
}

func TestHandlerErrors(t *testing.T) {
	userID := uuid.New()

	t.Run("unauthenticated", func(t *testing.T) {
		client, _ := setupHandlerTest(t, "")
		_, err := client.ListSubscriptions(context.Background(), connect.NewRequest(&types.ListSubscriptionsRequest{}))
		require.Error(t, err)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("malformed date", func(t *testing.T) {
		client, _ := setupHandlerTest(t, userID.String())
		cost := decimal.RequireFromString("10")
		_, err := client.CreateSubscription(context.Background(), connect.NewRequest(&types.CreateSubscriptionRequest{
			Name: "Spotify", Cost: &cost, BillingCycle: "monthly", StartDate: "01/01/2025",
		}))
		require.Error(t, err)
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
		assert.Contains(t, err.Error(), "start_date")
	})

	t.Run("invalid id", func(t *testing.T) {
		client, _ := setupHandlerTest(t, userID.String())
		_, err := client.GetSubscription(context.Background(), connect.NewRequest(&types.GetSubscriptionRequest{ID: "nope"}))
		require.Error(t, err)
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("not found", func(t *testing.T) {
		client, repo := setupHandlerTest(t, userID.String())
		id := uuid.New()
		repo.On("Delete", mock.Anything, userID, id).Return(types.ErrNotFound).Once()

		_, err := client.DeleteSubscription(context.Background(), connect.NewRequest(&types.DeleteSubscriptionRequest{ID: id.String()}))
		require.Error(t, err)
		assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})

	t.Run("internal errors are masked", func(t *testing.T) {
		client, repo := setupHandlerTest(t, userID.String())
		id := uuid.New()
		repo.On("Get", mock.Anything, userID, id).Return(nil, assert.AnError).Once()

		_, err := client.GetSubscription(context.Background(), connect.NewRequest(&types.GetSubscriptionRequest{ID: id.String()}))
		require.Error(t, err)
		assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
		assert.NotContains(t, err.Error(), assert.AnError.Error())
	})
}

func TestHandlerListSubscriptions(t *testing.T) {
	userID := uuid.New()
	client, repo := setupHandlerTest(t, userID.String())

	status := types.StatusPaused
	repo.On("ListByOwner", mock.Anything, userID, types.ListSubscriptionsFilter{Status: &status, Page: 2, Limit: 5}).
		Return([]types.Subscription{{ID: uuid.New(), Name: "Tidal", Cost: decimal.RequireFromString("24.99"), Status: status}}, 6, nil).Once()

	resp, err := client.ListSubscriptions(context.Background(), connect.NewRequest(&types.ListSubscriptionsRequest{Page: 2, Limit: 5, Status: "paused"}))
	require.NoError(t, err)
	require.Len(t, resp.Msg.Data, 1)
	assert.Equal(t, "Tidal", resp.Msg.Data[0].Name)
	assert.Equal(t, types.PaginationDTO{Page: 2, Limit: 5, Total: 6, TotalPages: 2}, resp.Msg.Pagination)
}

func TestHandlerPatchSubscriptionClearsDescription(t *testing.T) {
	userID := uuid.New()
	client, repo := setupHandlerTest(t, userID.String())

	id := uuid.New()
	desc := "old"
	current := &types.Subscription{
		ID: id, Name: "Netflix", Cost: decimal.RequireFromString("43"), Currency: "PLN",
		BillingCycle: types.BillingCycleMonthly, Status: types.StatusActive, StartDate: date("2025-01-01"), Description: &desc,
	}
	patched := *current
	patched.Description = nil

	repo.On("Get", mock.Anything, userID, id).Return(current, nil).Once()
	repo.On("Patch", mock.Anything, userID, id, types.PatchSubscriptionParams{ClearDescription: true}).Return(&patched, nil).Once()

	resp, err := client.PatchSubscription(context.Background(), connect.NewRequest(&types.PatchSubscriptionRequest{
		ID:          id.String(),
		Description: types.Nullable[string]{Set: true},
	}))
	require.NoError(t, err)
	assert.Nil(t, resp.Msg.Data.Description)
	repo.AssertExpectations(t)
}
