package api

import (
	"net/http"
	"time"

	"connectrpc.com/connect"
	connectcors "connectrpc.com/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/subbase-api/internal/domain/insights"
	"github.com/FACorreiaa/subbase-api/internal/domain/subscription"
	"github.com/FACorreiaa/subbase-api/internal/domain/summary"
	"github.com/FACorreiaa/subbase-api/pkg/interceptors"
	"github.com/FACorreiaa/subbase-api/pkg/observability"
)

// SetupRouter configures all routes and returns the HTTP handler
func SetupRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	interceptorChain := connect.WithInterceptors(buildInterceptors(deps)...)

	registerConnectRoutes(mux, deps, interceptorChain)
	registerUtilityRoutes(mux, deps)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   connectcors.AllowedMethods(),
		AllowedHeaders:   append(connectcors.AllowedHeaders(), "Authorization", "X-Request-ID"),
		ExposedHeaders:   append(connectcors.ExposedHeaders(), "X-Request-ID"),
		AllowCredentials: true,
		MaxAge:           int((2 * time.Hour).Seconds()),
	})

	return corsHandler.Handler(mux)
}

// buildInterceptors returns the chain in execution order.
func buildInterceptors(deps *Dependencies) []connect.Interceptor {
	cfg := deps.Config
	tracer := otel.GetTracerProvider().Tracer("subbase/api")

	chain := []connect.Interceptor{
		interceptors.NewRequestIDInterceptor("X-Request-ID"),
		interceptors.NewTracingInterceptor(tracer),
	}

	if cfg.Server.RateLimitPerSecond > 0 && cfg.Server.RateLimitBurst > 0 {
		limiter := rate.NewLimiter(rate.Limit(float64(cfg.Server.RateLimitPerSecond)), cfg.Server.RateLimitBurst)
		chain = append(chain, interceptors.NewRateLimitInterceptor(limiter))
	}

	chain = append(chain,
		interceptors.NewRecoveryInterceptor(deps.Logger),
		interceptors.NewLoggingInterceptor(deps.Logger),
		interceptors.NewAuthInterceptor([]byte(cfg.Auth.JWTSecret)),
	)

	if cfg.AI.OwnerRatePerMinute > 0 && cfg.AI.OwnerBurst > 0 {
		ownerLimiter := interceptors.NewOwnerLimiter(
			rate.Every(time.Minute/time.Duration(cfg.AI.OwnerRatePerMinute)),
			cfg.AI.OwnerBurst,
			30*time.Minute,
		)
		chain = append(chain, interceptors.NewOwnerRateLimitInterceptor(ownerLimiter,
			insights.InsightsServiceGenerateInsightsProcedure))
	}

	return append(chain, observability.NewMetricsInterceptor())
}

// registerConnectRoutes registers all Connect RPC services
func registerConnectRoutes(mux *http.ServeMux, deps *Dependencies, opts connect.HandlerOption) {
	register := func(path string, handler http.Handler) {
		mux.Handle(path, handler)
		deps.Logger.Info("registered Connect RPC service", "path", path)
	}

	register(subscription.NewSubscriptionServiceHandler(deps.SubscriptionHandler, opts))
	register(summary.NewSummaryServiceHandler(deps.SummaryHandler, opts))
	register(insights.NewInsightsServiceHandler(deps.InsightsHandler, opts))

	deps.Logger.Info("Connect RPC routes configured")
}

// registerUtilityRoutes registers health check, metrics, and other utility routes
func registerUtilityRoutes(mux *http.ServeMux, deps *Dependencies) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.DB.Health(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unhealthy"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	deps.Logger.Info("registered health check", "path", "/health")

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	deps.Logger.Info("registered readiness check", "path", "/ready")

	if deps.Config.Observability.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		deps.Logger.Info("registered metrics endpoint", "path", "/metrics")
	}
}
