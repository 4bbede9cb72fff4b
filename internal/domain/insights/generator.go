package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/subbase-api/internal/llm"
	"github.com/FACorreiaa/subbase-api/internal/types"
)

// Mode selects how the model is asked to answer.
type Mode string

const (
	// ModeStructured requests a strict JSON schema and rejects anything else.
	ModeStructured Mode = "structured"
	// ModeUnstructured requests free text and salvages what it can.
	ModeUnstructured Mode = "unstructured"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Observer receives attempt and generation outcomes, typically for metrics.
type Observer interface {
	ObserveAttempt(outcome string)
	ObserveResult(outcome string, tokens int)
}

// GeneratorConfig tunes a GeneratorImpl. Zero fields take defaults.
type GeneratorConfig struct {
	Mode     Mode
	Model    string
	Language string
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// MaxRetries is the total number of attempts, including the first.
	// A value of 3 allows at most two waits.
	MaxRetries int
	// BaseDelay is multiplied by the attempt number when no Retry-After is given.
	BaseDelay   time.Duration
	Temperature float64
	MaxTokens   int
}

func (c GeneratorConfig) withDefaults() GeneratorConfig {
	if c.Mode == "" {
		c.Mode = ModeStructured
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries < 1 {
		c.MaxRetries = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1000
	}
	return c
}

// Generator turns a set of subscriptions into AI observations.
type Generator interface {
	Generate(ctx context.Context, subs []types.Subscription) (*types.InsightsResult, error)
}

var _ Generator = (*GeneratorImpl)(nil)

// GeneratorImpl calls a single ChatClient with bounded retries.
type GeneratorImpl struct {
	logger   *slog.Logger
	client   llm.ChatClient
	cfg      GeneratorConfig
	sleep    Sleeper
	now      func() time.Time
	observer Observer
}

// Option customises a GeneratorImpl.
type Option func(*GeneratorImpl)

// WithSleeper replaces the wait between attempts.
func WithSleeper(s Sleeper) Option {
	return func(g *GeneratorImpl) { g.sleep = s }
}

// WithClock sets the source of GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(g *GeneratorImpl) { g.now = now }
}

// WithObserver receives attempt and result outcomes.
func WithObserver(o Observer) Option {
	return func(g *GeneratorImpl) { g.observer = o }
}

// NewGenerator fills unset config fields with defaults.
func NewGenerator(client llm.ChatClient, cfg GeneratorConfig, logger *slog.Logger, opts ...Option) *GeneratorImpl {
	g := &GeneratorImpl{
		logger:   logger,
		client:   client,
		cfg:      cfg.withDefaults(),
		sleep:    sleepContext,
		now:      time.Now,
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate asks the model for observations about subs. Only ErrServiceUnavailable,
// ErrInternalFormat or a context error are returned.
func (g *GeneratorImpl) Generate(ctx context.Context, subs []types.Subscription) (*types.InsightsResult, error) {
	ctx, span := otel.Tracer("InsightsGenerator").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("insights.mode", string(g.cfg.Mode)),
		attribute.Int("insights.subscription_count", len(subs)),
		attribute.String("llm.model", g.model()),
	))
	defer span.End()

	l := g.logger.With(slog.String("method", "Generate"), slog.String("mode", string(g.cfg.Mode)))

	if len(subs) == 0 {
		span.SetStatus(codes.Ok, "")
		return &types.InsightsResult{Insights: []types.Insight{}, GeneratedAt: g.now()}, nil
	}

	req := g.buildRequest(subs)

	completion, err := g.complete(ctx, req, l)
	if err != nil {
		g.observer.ObserveResult(resultOutcome(err), 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Completion failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("llm.response_id", completion.ID),
		attribute.String("llm.finish_reason", string(completion.FinishReason)),
		attribute.Int("llm.total_tokens", completion.Usage.TotalTokens),
	)

	insights, err := g.interpret(completion)
	if err != nil {
		l.ErrorContext(ctx, "Unusable completion",
			slog.String("finish_reason", string(completion.FinishReason)),
			slog.String("response_id", completion.ID),
			slog.Any("error", err))
		g.observer.ObserveResult(resultOutcome(err), completion.Usage.TotalTokens)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unusable completion")
		return nil, err
	}

	g.observer.ObserveResult("success", completion.Usage.TotalTokens)
	l.InfoContext(ctx, "Insights generated",
		slog.Int("insights", len(insights)),
		slog.Int("subscriptions", len(subs)),
		slog.Int("tokens", completion.Usage.TotalTokens))
	span.SetStatus(codes.Ok, "")

	return &types.InsightsResult{
		Insights:          insights,
		GeneratedAt:       g.now(),
		SubscriptionCount: len(subs),
	}, nil
}

func (g *GeneratorImpl) buildRequest(subs []types.Subscription) llm.CompletionRequest {
	req := llm.CompletionRequest{
		Model: g.cfg.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt(g.cfg.Mode, g.cfg.Language)},
			{Role: llm.RoleUser, Content: BuildUserPrompt(subs)},
		},
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	}
	if g.cfg.Mode == ModeStructured {
		req.ResponseFormat = &llm.ResponseFormat{Name: "subscription_insights", Schema: insightsSchema(), Strict: true}
	}
	return req
}

// complete runs the bounded retry loop around a single-attempt client.
func (g *GeneratorImpl) complete(ctx context.Context, req llm.CompletionRequest, l *slog.Logger) (*llm.Completion, error) {
	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		completion, err := g.client.Complete(attemptCtx, req)
		cancel()

		if err == nil {
			g.observer.ObserveAttempt("ok")
			return completion, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			g.observer.ObserveAttempt("cancelled")
			return nil, fmt.Errorf("insights generation aborted: %w", ctxErr)
		}
		if errors.Is(err, llm.ErrEmptyResponse) {
			g.observer.ObserveAttempt("empty")
			return nil, fmt.Errorf("%w: %w", types.ErrInternalFormat, err)
		}

		wait, retryable, outcome := g.classify(err, attempt)
		g.observer.ObserveAttempt(outcome)

		if !retryable {
			l.ErrorContext(ctx, "Chat completion failed", slog.Int("attempt", attempt), slog.String("outcome", outcome), slog.Any("error", err))
			return nil, fmt.Errorf("%w: %w", types.ErrServiceUnavailable, err)
		}
		if attempt >= g.cfg.MaxRetries {
			l.ErrorContext(ctx, "Chat completion retries exhausted", slog.Int("attempts", attempt), slog.Any("error", err))
			return nil, fmt.Errorf("%w: gave up after %d attempts: %w", types.ErrServiceUnavailable, attempt, err)
		}

		l.WarnContext(ctx, "Retrying chat completion",
			slog.Int("attempt", attempt),
			slog.String("outcome", outcome),
			slog.Duration("wait", wait),
			slog.Any("error", err))
		trace.SpanFromContext(ctx).AddEvent("retry", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("outcome", outcome),
			attribute.Int64("wait_ms", wait.Milliseconds()),
		))

		if wait > 0 {
			if err := g.sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("insights generation aborted: %w", err)
			}
		}
	}
}

// classify decides whether err is worth another attempt and how long to wait first.
func (g *GeneratorImpl) classify(err error, attempt int) (time.Duration, bool, string) {
	backoff := time.Duration(attempt) * g.cfg.BaseDelay

	var statusErr *llm.StatusError
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		return 0, false, "missing_key"
	case errors.As(err, &statusErr):
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			if statusErr.HasRetryAfter {
				return statusErr.RetryAfter, true, "rate_limited"
			}
			return backoff, true, "rate_limited"
		case statusErr.StatusCode >= 500:
			return backoff, true, "server_error"
		default:
			return 0, false, "client_error"
		}
	case errors.Is(err, context.DeadlineExceeded):
		return 0, true, "timeout"
	default:
		return 0, false, "transport_error"
	}
}

// interpret checks the finish reason and parses content according to the mode.
func (g *GeneratorImpl) interpret(c *llm.Completion) ([]types.Insight, error) {
	if c.FinishReason != llm.FinishReasonStop {
		return nil, fmt.Errorf("%w: completion finished with reason %q", types.ErrServiceUnavailable, c.FinishReason)
	}
	if strings.TrimSpace(c.Content) == "" {
		return nil, fmt.Errorf("%w: empty completion content", types.ErrInternalFormat)
	}
	if g.cfg.Mode == ModeUnstructured {
		return parseUnstructured(c.Content), nil
	}
	return parseStructured(c.Content)
}

func (g *GeneratorImpl) model() string {
	if g.cfg.Model != "" {
		return g.cfg.Model
	}
	return g.client.Model()
}

func resultOutcome(err error) string {
	switch {
	case errors.Is(err, types.ErrInternalFormat):
		return "invalid_format"
	case errors.Is(err, types.ErrServiceUnavailable):
		return "unavailable"
	default:
		return "cancelled"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type noopObserver struct{}

func (noopObserver) ObserveAttempt(string)     {}
func (noopObserver) ObserveResult(string, int) {}
