package insights

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/subbase-api/internal/types"
	"github.com/FACorreiaa/subbase-api/pkg/interceptors"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListByOwner(ctx context.Context, userID uuid.UUID, filter types.ListSubscriptionsFilter) ([]types.Subscription, int, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]types.Subscription), args.Int(1), args.Error(2)
}

func (m *MockStore) ListByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]types.Subscription, error) {
	args := m.Called(ctx, userID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Subscription), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, subs []types.Subscription) (*types.InsightsResult, error) {
	args := m.Called(ctx, subs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.InsightsResult), args.Error(1)
}

func activeFilter() types.ListSubscriptionsFilter {
	active := types.StatusActive
	return types.ListSubscriptionsFilter{Status: &active}
}

func TestServiceGenerateInsights(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	subs := sampleSubscriptions()
	result := &types.InsightsResult{GeneratedAt: fixedNow, SubscriptionCount: len(subs)}

	t.Run("without ids analyses active subscriptions", func(t *testing.T) {
		store, gen := new(MockStore), new(MockGenerator)
		store.On("ListByOwner", mock.Anything, userID, activeFilter()).Return(subs, len(subs), nil).Once()
		gen.On("Generate", mock.Anything, subs).Return(result, nil).Once()

		got, err := NewService(store, gen, newTestLogger()).GenerateInsights(ctx, userID, nil)
		require.NoError(t, err)
		assert.Equal(t, result, got)
		store.AssertExpectations(t)
		gen.AssertExpectations(t)
	})

	t.Run("duplicate ids are collapsed", func(t *testing.T) {
		store, gen := new(MockStore), new(MockGenerator)
		ids := []uuid.UUID{subs[0].ID, subs[1].ID}
		store.On("ListByIDs", mock.Anything, userID, ids).Return(subs, nil).Once()
		gen.On("Generate", mock.Anything, subs).Return(result, nil).Once()

		_, err := NewService(store, gen, newTestLogger()).GenerateInsights(ctx, userID, []uuid.UUID{subs[0].ID, subs[1].ID, subs[0].ID})
		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("missing or foreign id", func(t *testing.T) {
		store, gen := new(MockStore), new(MockGenerator)
		ids := []uuid.UUID{subs[0].ID, uuid.New()}
		store.On("ListByIDs", mock.Anything, userID, ids).Return(subs[:1], nil).Once()

		_, err := NewService(store, gen, newTestLogger()).GenerateInsights(ctx, userID, ids)
		assert.ErrorIs(t, err, types.ErrNotFound)
		gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		store, gen := new(MockStore), new(MockGenerator)
		store.On("ListByOwner", mock.Anything, userID, mock.Anything).Return(nil, 0, errors.New("db down")).Once()

		_, err := NewService(store, gen, newTestLogger()).GenerateInsights(ctx, userID, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error loading active subscriptions")
	})

	t.Run("generator failure keeps its kind", func(t *testing.T) {
		store, gen := new(MockStore), new(MockGenerator)
		store.On("ListByOwner", mock.Anything, userID, mock.Anything).Return(subs, len(subs), nil).Once()
		gen.On("Generate", mock.Anything, subs).Return(nil, fmt.Errorf("%w: boom", types.ErrServiceUnavailable)).Once()

		_, err := NewService(store, gen, newTestLogger()).GenerateInsights(ctx, userID, nil)
		assert.ErrorIs(t, err, types.ErrServiceUnavailable)
	})
}

func setupInsightsServer(t *testing.T, svc Service, userID string) *InsightsServiceClient {
	t.Helper()
	withUser := connect.UnaryInterceptorFunc(func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if userID != "" {
				ctx = context.WithValue(ctx, interceptors.UserIDKey, userID)
			}
			return next(ctx, req)
		}
	})

	path, handler := NewInsightsServiceHandler(NewHandler(svc), connect.WithInterceptors(withUser))
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewInsightsServiceClient(srv.Client(), srv.URL)
}

func TestHandlerGenerateInsights(t *testing.T) {
	userID := uuid.New()
	subs := sampleSubscriptions()

	t.Run("end to end with a scripted model", func(t *testing.T) {
		store := new(MockStore)
		store.On("ListByIDs", mock.Anything, userID, []uuid.UUID{subs[0].ID}).Return(subs[:1], nil).Once()
		g, _, _, _ := setupGenerator(ModeStructured, completed(validStructured))

		client := setupInsightsServer(t, NewService(store, g, newTestLogger()), userID.String())
		resp, err := client.GenerateInsights(context.Background(), connect.NewRequest(&types.GenerateInsightsRequest{
			SubscriptionIDs: []string{subs[0].ID.String()},
		}))
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Msg.Data.SubscriptionCount)
		assert.Equal(t, fixedNow.Format(time.RFC3339), resp.Msg.Data.GeneratedAt)
		assert.Len(t, resp.Msg.Data.Insights, 2)
	})

	t.Run("empty portfolio", func(t *testing.T) {
		store := new(MockStore)
		store.On("ListByOwner", mock.Anything, userID, activeFilter()).Return([]types.Subscription{}, 0, nil).Once()
		g, client, _, _ := setupGenerator(ModeStructured)

		resp, err := setupInsightsServer(t, NewService(store, g, newTestLogger()), userID.String()).
			GenerateInsights(context.Background(), connect.NewRequest(&types.GenerateInsightsRequest{}))
		require.NoError(t, err)
		assert.Empty(t, resp.Msg.Data.Insights)
		assert.Equal(t, 0, resp.Msg.Data.SubscriptionCount)
		assert.Equal(t, 0, client.calls())
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := setupInsightsServer(t, NewService(new(MockStore), new(MockGenerator), newTestLogger()), userID.String()).
			GenerateInsights(context.Background(), connect.NewRequest(&types.GenerateInsightsRequest{SubscriptionIDs: []string{"nope"}}))
		require.Error(t, err)
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := setupInsightsServer(t, NewService(new(MockStore), new(MockGenerator), newTestLogger()), "").
			GenerateInsights(context.Background(), connect.NewRequest(&types.GenerateInsightsRequest{}))
		require.Error(t, err)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	errorCases := []struct {
		name string
		err  error
		code connect.Code
	}{
		{"not found", fmt.Errorf("x: %w", types.ErrNotFound), connect.CodeNotFound},
		{"unavailable", fmt.Errorf("x: %w", types.ErrServiceUnavailable), connect.CodeUnavailable},
		{"bad format", fmt.Errorf("x: %w", types.ErrInternalFormat), connect.CodeInternal},
		{"unexpected", errors.New("db down"), connect.CodeInternal},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			store, gen := new(MockStore), new(MockGenerator)
			store.On("ListByOwner", mock.Anything, userID, mock.Anything).Return(subs, len(subs), nil).Once()
			gen.On("Generate", mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			_, err := setupInsightsServer(t, NewService(store, gen, newTestLogger()), userID.String()).
				GenerateInsights(context.Background(), connect.NewRequest(&types.GenerateInsightsRequest{}))
			require.Error(t, err)
			assert.Equal(t, tc.code, connect.CodeOf(err))
		})
	}
}
