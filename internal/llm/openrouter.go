package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOpenRouterURL = "https://openrouter.ai/api/v1"

// maxErrorBody bounds how much of an error response is kept for logs.
const maxErrorBody = 2048

type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Referer and Title identify the application to OpenRouter.
	Referer string
	Title   string
}

// OpenRouterClient talks to any OpenAI-compatible /chat/completions endpoint.
type OpenRouterClient struct {
	cfg    OpenRouterConfig
	client *http.Client
	now    func() time.Time
}

var _ ChatClient = (*OpenRouterClient)(nil)

// NewOpenRouterClient creates a client. Per-request deadlines come from the context,
// so httpClient should not set its own Timeout.
func NewOpenRouterClient(cfg OpenRouterConfig, httpClient *http.Client) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenRouterURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenRouterClient{cfg: cfg, client: httpClient, now: time.Now}
}

func (c *OpenRouterClient) Model() string {
	return c.cfg.Model
}

type chatRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
	Temperature    float64             `json:"temperature"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *chatJSONSchema `json:"json_schema,omitempty"`
}

type chatJSONSchema struct {
	Name   string  `json:"name"`
	Strict bool    `json:"strict"`
	Schema *Schema `json:"schema"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
	Error   *chatError   `json:"error,omitempty"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatError struct {
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code"`
}

func (c *OpenRouterClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}

	body := chatRequest{
		Model:       model,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	if rf := req.ResponseFormat; rf != nil {
		body.ResponseFormat = &chatResponseFormat{
			Type:       "json_schema",
			JSONSchema: &chatJSONSchema{Name: rf.Name, Strict: rf.Strict, Schema: rf.Schema},
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		httpReq.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(errorMessage(respBody), maxErrorBody)}
		statusErr.RetryAfter, statusErr.HasRetryAfter = ParseRetryAfter(resp.Header.Get("Retry-After"), c.now())
		return nil, statusErr
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// OpenRouter reports some upstream failures inside a 200 body.
	if parsed.Error != nil {
		return nil, &StatusError{StatusCode: embeddedStatus(parsed.Error.Code), Body: truncate(parsed.Error.Message, maxErrorBody)}
	}

	if len(parsed.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := parsed.Choices[0]
	return &Completion{
		ID:           parsed.ID,
		Model:        parsed.Model,
		Content:      choice.Message.Content,
		FinishReason: FinishReason(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

func errorMessage(body []byte) string {
	var wrapped struct {
		Error *chatError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error != nil && wrapped.Error.Message != "" {
		return wrapped.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// embeddedStatus reads a numeric error code, defaulting to 502.
func embeddedStatus(code json.RawMessage) int {
	var n int
	if err := json.Unmarshal(code, &n); err == nil && n >= 400 && n <= 599 {
		return n
	}
	return http.StatusBadGateway
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
