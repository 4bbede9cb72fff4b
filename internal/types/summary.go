//revive:disable-next-line:var-naming
package types

import "github.com/shopspring/decimal"

// SubscriptionSummary is recomputed from the owner's subscriptions on every request.
// Totals only include active subscriptions; counts include every status.
type SubscriptionSummary struct {
	MonthlyTotal   decimal.Decimal
	YearlyTotal    decimal.Decimal
	Currency       string
	ActiveCount    int
	PausedCount    int
	CancelledCount int
}

type GetSummaryRequest struct{}

type SubscriptionSummaryDTO struct {
	MonthlyTotal   float64 `json:"monthly_total"`
	YearlyTotal    float64 `json:"yearly_total"`
	Currency       string  `json:"currency"`
	ActiveCount    int     `json:"active_count"`
	PausedCount    int     `json:"paused_count"`
	CancelledCount int     `json:"cancelled_count"`
}

type GetSummaryResponse struct {
	Data SubscriptionSummaryDTO `json:"data"`
}
