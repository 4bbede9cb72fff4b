package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/subbase-api/internal/domain/insights"
	"github.com/FACorreiaa/subbase-api/internal/domain/subscription"
	"github.com/FACorreiaa/subbase-api/internal/domain/summary"
	"github.com/FACorreiaa/subbase-api/pkg/config"
)

func testDependencies(cfg *config.Config) *Dependencies {
	return &Dependencies{
		Config:              cfg,
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		SubscriptionHandler: subscription.NewHandler(nil),
		SummaryHandler:      summary.NewHandler(nil),
		InsightsHandler:     insights.NewHandler(nil),
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			RateLimitPerSecond: 10,
			RateLimitBurst:     20,
			AllowedOrigins:     []string{"http://localhost:4321"},
		},
		Auth:          config.AuthConfig{JWTSecret: "secret"},
		Observability: config.ObservabilityConfig{MetricsEnabled: true},
		AI:            config.AIConfig{OwnerRatePerMinute: 6, OwnerBurst: 3},
	}
}

func TestBuildInterceptors(t *testing.T) {
	// request id, tracing, rate limit, recovery, logging, auth, owner limit, metrics
	assert.Len(t, buildInterceptors(testDependencies(testConfig())), 8)

	cfg := testConfig()
	cfg.Server.RateLimitPerSecond = 0
	cfg.AI.OwnerRatePerMinute = 0
	assert.Len(t, buildInterceptors(testDependencies(cfg)), 6)
}

func TestSetupRouter(t *testing.T) {
	router := SetupRouter(testDependencies(testConfig()))

	t.Run("cors preflight for allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, insights.InsightsServiceGenerateInsightsProcedure, nil)
		req.Header.Set("Origin", "http://localhost:4321")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)
		assert.Equal(t, "http://localhost:4321", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("cors rejects unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, insights.InsightsServiceGenerateInsightsProcedure, nil)
		req.Header.Set("Origin", "https://evil.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("ready and metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rpc without token is unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, summary.SummaryServiceGetSummaryProcedure, nil)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
