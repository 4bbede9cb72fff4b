package llm

import (
	"context"
)

// ChatClient abstracts the chat-completion capability needed by domain services.
// Complete performs exactly one request; retries belong to the caller.
type ChatClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	Model() string
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// FinishReason is normalized to the OpenAI vocabulary for every provider.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonContentFilter FinishReason = "content_filter"
)

// ResponseFormat asks the provider to constrain its output to a JSON schema.
type ResponseFormat struct {
	Name   string
	Schema *Schema
	Strict bool
}

type CompletionRequest struct {
	Model          string // empty selects the client default
	Messages       []Message
	ResponseFormat *ResponseFormat // nil requests free text
	Temperature    float64
	MaxTokens      int
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the first choice of a chat completion.
type Completion struct {
	ID           string
	Model        string
	Content      string
	FinishReason FinishReason
	Usage        Usage
}

// SystemAndTurns splits system messages from the conversation.
func SystemAndTurns(messages []Message) (string, []Message) {
	var system string
	turns := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		turns = append(turns, m)
	}
	return system, turns
}
