package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/subbase-api/internal/types"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListByOwner(ctx context.Context, userID uuid.UUID, filter types.ListSubscriptionsFilter) ([]types.Subscription, int, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]types.Subscription), args.Int(1), args.Error(2)
}

func (m *MockRepository) ListByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]types.Subscription, error) {
	args := m.Called(ctx, userID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Subscription), args.Error(1)
}

func (m *MockRepository) Get(ctx context.Context, userID, id uuid.UUID) (*types.Subscription, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Subscription), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, userID uuid.UUID, params types.CreateSubscriptionParams) (*types.Subscription, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Subscription), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, userID, id uuid.UUID, params types.UpdateSubscriptionParams) (*types.Subscription, error) {
	args := m.Called(ctx, userID, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Subscription), args.Error(1)
}

func (m *MockRepository) Patch(ctx context.Context, userID, id uuid.UUID, params types.PatchSubscriptionParams) (*types.Subscription, error) {
	args := m.Called(ctx, userID, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Subscription), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func setupServiceTest() (*ServiceImpl, *MockRepository) {
	mockRepo := new(MockRepository)
	return NewService(mockRepo, newTestLogger()), mockRepo
}

func validCreateParams() types.CreateSubscriptionParams {
	return types.CreateSubscriptionParams{
		Name:         "Netflix",
		Cost:         decimal.RequireFromString("43.00"),
		BillingCycle: types.BillingCycleMonthly,
		StartDate:    date("2025-01-01"),
	}
}

func TestServiceCreateSubscription(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("applies defaults and persists", func(t *testing.T) {
		svc, repo := setupServiceTest()
		expected := validCreateParams()
		expected.Currency = "PLN"
		expected.Status = types.StatusActive
		created := &types.Subscription{ID: uuid.New(), Name: "Netflix"}

		repo.On("Create", mock.Anything, userID, expected).Return(created, nil).Once()

		got, err := svc.CreateSubscription(ctx, userID, validCreateParams())
		require.NoError(t, err)
		assert.Equal(t, created, got)
		repo.AssertExpectations(t)
	})

	tests := []struct {
		name   string
		mutate func(p *types.CreateSubscriptionParams)
		field  string
	}{
		{"empty name", func(p *types.CreateSubscriptionParams) { p.Name = "   " }, "name"},
		{"zero cost", func(p *types.CreateSubscriptionParams) { p.Cost = decimal.Zero }, "cost"},
		{"cost above limit", func(p *types.CreateSubscriptionParams) { p.Cost = decimal.RequireFromString("100000.01") }, "cost"},
		{"cost with three decimals", func(p *types.CreateSubscriptionParams) { p.Cost = decimal.RequireFromString("9.999") }, "cost"},
		{"bad currency", func(p *types.CreateSubscriptionParams) { p.Currency = "ZŁ" }, "currency"},
		{"unknown cycle", func(p *types.CreateSubscriptionParams) { p.BillingCycle = "weekly" }, "billing_cycle"},
		{"unknown status", func(p *types.CreateSubscriptionParams) { p.Status = "expired" }, "status"},
		{"next billing before start", func(p *types.CreateSubscriptionParams) {
			d := date("2024-12-31")
			p.NextBillingDate = &d
		}, "next_billing_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := setupServiceTest()
			params := validCreateParams()
			tt.mutate(&params)

			_, err := svc.CreateSubscription(ctx, userID, params)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrBadRequest)

			var verr *types.ValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Fields)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("cost with trailing zeros is accepted", func(t *testing.T) {
		svc, repo := setupServiceTest()
		params := validCreateParams()
		params.Cost = decimal.RequireFromString("10.500")
		repo.On("Create", mock.Anything, userID, mock.Anything).Return(&types.Subscription{}, nil).Once()

		_, err := svc.CreateSubscription(ctx, userID, params)
		require.NoError(t, err)
	})
}

func TestServiceListSubscriptions(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("defaults and page count", func(t *testing.T) {
		svc, repo := setupServiceTest()
		subs := []types.Subscription{{ID: uuid.New()}}
		repo.On("ListByOwner", mock.Anything, userID, types.ListSubscriptionsFilter{Page: 1, Limit: 10}).
			Return(subs, 21, nil).Once()

		page, err := svc.ListSubscriptions(ctx, userID, types.ListSubscriptionsFilter{})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 10, page.Limit)
		assert.Equal(t, 21, page.Total)
		assert.Equal(t, 3, page.TotalPages)
		repo.AssertExpectations(t)
	})

	t.Run("limit out of range", func(t *testing.T) {
		svc, _ := setupServiceTest()
		_, err := svc.ListSubscriptions(ctx, userID, types.ListSubscriptionsFilter{Limit: 101})
		assert.ErrorIs(t, err, types.ErrBadRequest)
	})

	t.Run("repository failure", func(t *testing.T) {
		svc, repo := setupServiceTest()
		repo.On("ListByOwner", mock.Anything, userID, mock.Anything).Return(nil, 0, errors.New("db down")).Once()

		_, err := svc.ListSubscriptions(ctx, userID, types.ListSubscriptionsFilter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error listing subscriptions")
	})
}

func TestServicePatchSubscription(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	id := uuid.New()

	current := &types.Subscription{
		ID:           id,
		UserID:       userID,
		Name:         "Netflix",
		Cost:         decimal.RequireFromString("43.00"),
		Currency:     "PLN",
		BillingCycle: types.BillingCycleMonthly,
		Status:       types.StatusActive,
		StartDate:    date("2025-03-01"),
	}

	t.Run("empty patch", func(t *testing.T) {
		svc, repo := setupServiceTest()
		_, err := svc.PatchSubscription(ctx, userID, id, types.PatchSubscriptionParams{})
		assert.ErrorIs(t, err, types.ErrBadRequest)
		repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("next billing date checked against stored start date", func(t *testing.T) {
		svc, repo := setupServiceTest()
		repo.On("Get", mock.Anything, userID, id).Return(current, nil).Once()
		next := date("2025-02-01")

		_, err := svc.PatchSubscription(ctx, userID, id, types.PatchSubscriptionParams{NextBillingDate: &next})
		assert.ErrorIs(t, err, types.ErrBadRequest)
		repo.AssertNotCalled(t, "Patch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("start date moved back together with next date", func(t *testing.T) {
		svc, repo := setupServiceTest()
		start, next := date("2025-01-01"), date("2025-02-01")
		params := types.PatchSubscriptionParams{StartDate: &start, NextBillingDate: &next}
		repo.On("Get", mock.Anything, userID, id).Return(current, nil).Once()
		repo.On("Patch", mock.Anything, userID, id, params).Return(current, nil).Once()

		_, err := svc.PatchSubscription(ctx, userID, id, params)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		svc, repo := setupServiceTest()
		name := "Max"
		repo.On("Get", mock.Anything, userID, id).Return(nil, types.ErrNotFound).Once()

		_, err := svc.PatchSubscription(ctx, userID, id, types.PatchSubscriptionParams{Name: &name})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestServiceUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	id := uuid.New()

	t.Run("update requires currency", func(t *testing.T) {
		svc, _ := setupServiceTest()
		params := types.UpdateSubscriptionParams(validCreateParams())
		params.Status = types.StatusActive

		_, err := svc.UpdateSubscription(ctx, userID, id, params)
		assert.ErrorIs(t, err, types.ErrBadRequest)
	})

	t.Run("update", func(t *testing.T) {
		svc, repo := setupServiceTest()
		params := types.UpdateSubscriptionParams(validCreateParams())
		params.Currency = "EUR"
		params.Status = types.StatusPaused
		updated := &types.Subscription{ID: id, Status: types.StatusPaused, UpdatedAt: time.Now()}
		repo.On("Update", mock.Anything, userID, id, params).Return(updated, nil).Once()

		got, err := svc.UpdateSubscription(ctx, userID, id, params)
		require.NoError(t, err)
		assert.Equal(t, types.StatusPaused, got.Status)
	})

	t.Run("delete missing", func(t *testing.T) {
		svc, repo := setupServiceTest()
		repo.On("Delete", mock.Anything, userID, id).Return(types.ErrNotFound).Once()

		err := svc.DeleteSubscription(ctx, userID, id)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}
