package interceptors

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/subbase-api/pkg/connectjson"
)

const (
	pingProcedure   = "/test.v1.PingService/Ping"
	publicProcedure = "/test.v1.PingService/Public"
)

var testSecret = []byte("test-secret")

type pingRequest struct {
	Text string `json:"text"`
}

type pingResponse struct {
	UserID    string `json:"user_id"`
	RequestID string `json:"request_id"`
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pingHandler(ctx context.Context, _ *connect.Request[pingRequest]) (*connect.Response[pingResponse], error) {
	userID, _ := GetUserIDFromContext(ctx)
	requestID, _ := RequestIDFromContext(ctx)
	return connect.NewResponse(&pingResponse{UserID: userID, RequestID: requestID}), nil
}

func newPingServer(t *testing.T, interceptors ...connect.Interceptor) *httptest.Server {
	t.Helper()
	opts := []connect.HandlerOption{connectjson.WithCodec(), connect.WithInterceptors(interceptors...)}
	mux := http.NewServeMux()
	mux.Handle(pingProcedure, connect.NewUnaryHandler(pingProcedure, pingHandler, opts...))
	mux.Handle(publicProcedure, connect.NewUnaryHandler(publicProcedure, pingHandler, opts...))
	mux.Handle("/test.v1.PingService/Panic", connect.NewUnaryHandler("/test.v1.PingService/Panic",
		func(context.Context, *connect.Request[pingRequest]) (*connect.Response[pingResponse], error) {
			panic("boom")
		}, opts...))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newPingClient(srv *httptest.Server, procedure string) *connect.Client[pingRequest, pingResponse] {
	return connect.NewClient[pingRequest, pingResponse](srv.Client(), srv.URL+procedure, connectjson.WithCodec())
}

func signToken(t *testing.T, subject string, expiresIn time.Duration, secret []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestAuthInterceptor(t *testing.T) {
	srv := newPingServer(t, NewAuthInterceptor(testSecret, publicProcedure))
	userID := uuid.NewString()

	tests := []struct {
		name      string
		procedure string
		header    string
		wantCode  connect.Code
		wantUser  string
	}{
		{name: "valid token", procedure: pingProcedure, header: "Bearer " + signToken(t, userID, time.Hour, testSecret), wantUser: userID},
		{name: "missing header", procedure: pingProcedure, wantCode: connect.CodeUnauthenticated},
		{name: "wrong scheme", procedure: pingProcedure, header: "Basic abc", wantCode: connect.CodeUnauthenticated},
		{name: "expired token", procedure: pingProcedure, header: "Bearer " + signToken(t, userID, -time.Minute, testSecret), wantCode: connect.CodeUnauthenticated},
		{name: "wrong secret", procedure: pingProcedure, header: "Bearer " + signToken(t, userID, time.Hour, []byte("other")), wantCode: connect.CodeUnauthenticated},
		{name: "subject not a uuid", procedure: pingProcedure, header: "Bearer " + signToken(t, "alice", time.Hour, testSecret), wantCode: connect.CodeUnauthenticated},
		{name: "public procedure", procedure: publicProcedure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := connect.NewRequest(&pingRequest{Text: "hi"})
			if tt.header != "" {
				req.Header().Set("Authorization", tt.header)
			}

			resp, err := newPingClient(srv, tt.procedure).CallUnary(context.Background(), req)
			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, connect.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, resp.Msg.UserID)
		})
	}
}

func TestRequestIDInterceptor(t *testing.T) {
	srv := newPingServer(t, NewRequestIDInterceptor("X-Request-ID"))
	client := newPingClient(srv, pingProcedure)

	t.Run("propagates incoming id", func(t *testing.T) {
		req := connect.NewRequest(&pingRequest{})
		req.Header().Set("X-Request-ID", "req-123")
		resp, err := client.CallUnary(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "req-123", resp.Msg.RequestID)
		assert.Equal(t, "req-123", resp.Header().Get("X-Request-ID"))
	})

	t.Run("generates id", func(t *testing.T) {
		resp, err := client.CallUnary(context.Background(), connect.NewRequest(&pingRequest{}))
		require.NoError(t, err)
		_, err = uuid.Parse(resp.Msg.RequestID)
		assert.NoError(t, err)
	})
}

func TestRecoveryInterceptor(t *testing.T) {
	srv := newPingServer(t, NewRecoveryInterceptor(newTestLogger()), NewLoggingInterceptor(newTestLogger()))
	_, err := newPingClient(srv, "/test.v1.PingService/Panic").CallUnary(context.Background(), connect.NewRequest(&pingRequest{}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
}

func TestRateLimitInterceptor(t *testing.T) {
	srv := newPingServer(t, NewRateLimitInterceptor(rate.NewLimiter(rate.Every(time.Hour), 1)))
	client := newPingClient(srv, pingProcedure)

	_, err := client.CallUnary(context.Background(), connect.NewRequest(&pingRequest{}))
	require.NoError(t, err)

	_, err = client.CallUnary(context.Background(), connect.NewRequest(&pingRequest{}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeResourceExhausted, connect.CodeOf(err))
}

func TestOwnerRateLimitInterceptor(t *testing.T) {
	limiter := NewOwnerLimiter(rate.Every(time.Hour), 1, time.Minute)
	srv := newPingServer(t,
		NewAuthInterceptor(testSecret, publicProcedure),
		NewOwnerRateLimitInterceptor(limiter, pingProcedure),
	)
	client := newPingClient(srv, pingProcedure)

	call := func(userID string) error {
		req := connect.NewRequest(&pingRequest{})
		req.Header().Set("Authorization", "Bearer "+signToken(t, userID, time.Hour, testSecret))
		_, err := client.CallUnary(context.Background(), req)
		return err
	}

	alice, bob := uuid.NewString(), uuid.NewString()
	require.NoError(t, call(alice))
	err := call(alice)
	require.Error(t, err)
	assert.Equal(t, connect.CodeResourceExhausted, connect.CodeOf(err))

	// other owners have their own bucket
	require.NoError(t, call(bob))

	// unguarded procedures are not limited
	_, err = newPingClient(srv, publicProcedure).CallUnary(context.Background(), connect.NewRequest(&pingRequest{}))
	require.NoError(t, err)
}

func TestOwnerLimiterAllow(t *testing.T) {
	limiter := NewOwnerLimiter(rate.Every(time.Hour), 2, time.Minute)
	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"))
}
