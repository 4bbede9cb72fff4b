//revive:disable-next-line:var-naming
package types

import "time"

// InsightType is the category of an AI observation. Only observations are produced today.
type InsightType string

const InsightTypeObservation InsightType = "observation"

// MaxInsightMessageLength bounds a single insight message, in characters.
const MaxInsightMessageLength = 200

type Insight struct {
	Type    InsightType `json:"type"`
	Message string      `json:"message"`
}

// InsightsResult is produced per request and never persisted.
type InsightsResult struct {
	Insights          []Insight
	GeneratedAt       time.Time
	SubscriptionCount int
}

// GenerateInsightsRequest selects the subscriptions to analyze. Without ids every
// active subscription of the caller is analyzed.
type GenerateInsightsRequest struct {
	SubscriptionIDs []string `json:"subscription_ids,omitempty"`
}

type InsightsDataDTO struct {
	Insights          []Insight `json:"insights"`
	GeneratedAt       string    `json:"generated_at"`
	SubscriptionCount int       `json:"subscription_count"`
}

type GenerateInsightsResponse struct {
	Data InsightsDataDTO `json:"data"`
}
