package insights

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/subbase-api/internal/llm"
	"github.com/FACorreiaa/subbase-api/internal/types"
)

const DefaultLanguage = "Polish"

const (
	minStructuredInsights = 2
	maxStructuredInsights = 4
	maxFallbackInsights   = 5
)

func systemPrompt(mode Mode, language string) string {
	if language == "" {
		language = DefaultLanguage
	}

	var b strings.Builder
	b.WriteString("You are a financial advisor specialising in personal subscription management.\n")
	b.WriteString("Analyse the user's subscriptions and give practical observations.\n\n")
	b.WriteString("Guidelines:\n")
	b.WriteString("- Focus on cost optimisation opportunities\n")
	b.WriteString("- Identify overlapping or duplicated services\n")
	b.WriteString("- Point out subscriptions that may be unused\n")
	b.WriteString("- Suggest a better billing cycle where it would save money\n")
	fmt.Fprintf(&b, "- Keep every observation under %d characters\n", types.MaxInsightMessageLength)
	fmt.Fprintf(&b, "- Give between %d and %d observations\n", minStructuredInsights, maxStructuredInsights)
	b.WriteString("- Every observation has the type \"observation\"\n")
	fmt.Fprintf(&b, "- Write in %s\n", language)

	if mode == ModeUnstructured {
		b.WriteString("\nRespond with a JSON array only, for example:\n")
		b.WriteString(`[{"type": "observation", "message": "..."}]`)
	}
	return b.String()
}

// BuildUserPrompt lists the subscriptions followed by portfolio totals.
func BuildUserPrompt(subs []types.Subscription) string {
	var b strings.Builder
	b.WriteString("Analyse the following subscriptions:\n\n")

	active := 0
	for i, s := range subs {
		if s.Status == types.StatusActive {
			active++
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, s.Name)
		fmt.Fprintf(&b, "   - Cost: %s %s / %s\n", s.Cost.StringFixed(2), s.Currency, cycleLabel(s.BillingCycle))
		fmt.Fprintf(&b, "   - Status: %s\n", s.Status)
		fmt.Fprintf(&b, "   - Start date: %s\n", s.StartDate.Format(types.DateLayout))
		if s.Description != nil && strings.TrimSpace(*s.Description) != "" {
			fmt.Fprintf(&b, "   - Description: %s\n", strings.TrimSpace(*s.Description))
		}
	}

	fmt.Fprintf(&b, "\nTotal subscriptions: %d\n", len(subs))
	fmt.Fprintf(&b, "Active subscriptions: %d", active)
	return b.String()
}

func cycleLabel(c types.BillingCycle) string {
	if c == types.BillingCycleYearly {
		return "year"
	}
	return "month"
}

// insightsSchema is sent as a strict response format in structured mode.
func insightsSchema() *llm.Schema {
	minItems, maxItems := minStructuredInsights, maxStructuredInsights
	minLength, maxLength := 1, types.MaxInsightMessageLength
	noExtra := false

	return &llm.Schema{
		Type:     "object",
		Required: []string{"insights"},
		Properties: map[string]*llm.Schema{
			"insights": {
				Type:     "array",
				MinItems: &minItems,
				MaxItems: &maxItems,
				Items: &llm.Schema{
					Type:     "object",
					Required: []string{"type", "message"},
					Properties: map[string]*llm.Schema{
						"type":    {Type: "string", Enum: []string{string(types.InsightTypeObservation)}},
						"message": {Type: "string", MinLength: &minLength, MaxLength: &maxLength},
					},
					AdditionalProperties: &noExtra,
				},
			},
		},
		AdditionalProperties: &noExtra,
	}
}
