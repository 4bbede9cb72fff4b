package insights

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/FACorreiaa/subbase-api/internal/types"
)

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

type structuredResponse struct {
	Insights *[]types.Insight `json:"insights"`
}

// parseStructured validates content against the strict insights schema.
func parseStructured(content string) ([]types.Insight, error) {
	dec := json.NewDecoder(strings.NewReader(stripCodeFence(content)))
	dec.DisallowUnknownFields()

	var resp structuredResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInternalFormat, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after response object", types.ErrInternalFormat)
	}
	if resp.Insights == nil {
		return nil, fmt.Errorf("%w: missing insights", types.ErrInternalFormat)
	}

	items := *resp.Insights
	if len(items) < minStructuredInsights || len(items) > maxStructuredInsights {
		return nil, fmt.Errorf("%w: expected %d to %d insights, got %d",
			types.ErrInternalFormat, minStructuredInsights, maxStructuredInsights, len(items))
	}
	for i, item := range items {
		if item.Type != types.InsightTypeObservation {
			return nil, fmt.Errorf("%w: insight %d has type %q", types.ErrInternalFormat, i, item.Type)
		}
		n := utf8.RuneCountInString(item.Message)
		if n == 0 || n > types.MaxInsightMessageLength {
			return nil, fmt.Errorf("%w: insight %d message length %d", types.ErrInternalFormat, i, n)
		}
	}
	return items, nil
}

// parseUnstructured never fails: text that holds no usable array becomes one observation.
func parseUnstructured(content string) []types.Insight {
	raw := strings.TrimSpace(content)
	fallback := []types.Insight{{Type: types.InsightTypeObservation, Message: raw}}

	match := jsonArrayPattern.FindString(raw)
	if match == "" {
		return fallback
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(match), &items); err != nil {
		return fallback
	}

	out := make([]types.Insight, 0, min(len(items), maxFallbackInsights))
	for _, item := range items {
		var obj struct {
			Message json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal(item, &obj); err != nil || len(obj.Message) == 0 {
			continue
		}
		var msg *string
		if err := json.Unmarshal(obj.Message, &msg); err != nil || msg == nil {
			continue
		}
		out = append(out, types.Insight{Type: types.InsightTypeObservation, Message: *msg})
		if len(out) == maxFallbackInsights {
			break
		}
	}
	return out
}

// stripCodeFence removes a surrounding ```json fence some models add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
