package summary

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/subbase-api/internal/types"
)

var monthsPerYear = decimal.NewFromInt(12)

// ComputeSummary normalizes the costs of active subscriptions into monthly and
// yearly totals and counts subscriptions per status.
//
// Totals are rounded half away from zero to two places once, after accumulation.
// The reported currency is that of the first subscription; costs in other
// currencies are summed as-is.
func ComputeSummary(subs []types.Subscription) types.SubscriptionSummary {
	summary := types.SubscriptionSummary{
		MonthlyTotal: decimal.Zero,
		YearlyTotal:  decimal.Zero,
		Currency:     types.DefaultCurrency,
	}
	if len(subs) > 0 && subs[0].Currency != "" {
		summary.Currency = subs[0].Currency
	}

	// yearly-billed costs are divided once at the end
	monthlyBilled, yearlyBilled := decimal.Zero, decimal.Zero
	for _, s := range subs {
		switch s.Status {
		case types.StatusActive:
			summary.ActiveCount++
		case types.StatusPaused:
			summary.PausedCount++
		case types.StatusCancelled:
			summary.CancelledCount++
		}

		if s.Status != types.StatusActive {
			continue
		}
		switch s.BillingCycle {
		case types.BillingCycleMonthly:
			monthlyBilled = monthlyBilled.Add(s.Cost)
		case types.BillingCycleYearly:
			yearlyBilled = yearlyBilled.Add(s.Cost)
		}
	}

	summary.MonthlyTotal = monthlyBilled.Add(yearlyBilled.Div(monthsPerYear)).Round(2)
	summary.YearlyTotal = monthlyBilled.Mul(monthsPerYear).Add(yearlyBilled).Round(2)
	return summary
}
