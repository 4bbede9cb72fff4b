package observability

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rpcRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subbase",
		Name:      "rpc_requests_total",
		Help:      "Connect RPCs handled, by procedure and code.",
	}, []string{"procedure", "code"})

	rpcDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "subbase",
		Name:      "rpc_duration_seconds",
		Help:      "Connect RPC latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"procedure"})

	insightsAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subbase",
		Subsystem: "insights",
		Name:      "attempts_total",
		Help:      "Chat completion attempts, by outcome.",
	}, []string{"outcome"})

	insightsResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subbase",
		Subsystem: "insights",
		Name:      "generations_total",
		Help:      "Insight generations, by final outcome.",
	}, []string{"outcome"})

	insightsTokens = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "subbase",
		Subsystem: "insights",
		Name:      "tokens_total",
		Help:      "Tokens reported by the text-generation API.",
	})
)

// NewMetricsInterceptor records request counts and latency per procedure.
func NewMetricsInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			procedure := req.Spec().Procedure
			rpcRequests.WithLabelValues(procedure, code).Inc()
			rpcDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			return resp, err
		}
	}
}

// InsightsMetrics exports insight generation outcomes to Prometheus.
type InsightsMetrics struct{}

func (InsightsMetrics) ObserveAttempt(outcome string) {
	insightsAttempts.WithLabelValues(outcome).Inc()
}

func (InsightsMetrics) ObserveResult(outcome string, tokens int) {
	insightsResults.WithLabelValues(outcome).Inc()
	if tokens > 0 {
		insightsTokens.Add(float64(tokens))
	}
}
