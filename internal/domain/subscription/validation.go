package subscription

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/subbase-api/internal/types"
)

const (
	maxNameLength        = 255
	maxDescriptionLength = 1000
	defaultPageLimit     = 10
	maxPageLimit         = 100
)

var maxCost = decimal.NewFromInt(100000)

// fields is the full set of validated columns, shared by create, update and the
// merged record of a patch.
type fields struct {
	Name            string
	Cost            decimal.Decimal
	Currency        string
	BillingCycle    types.BillingCycle
	Status          types.SubscriptionStatus
	StartDate       time.Time
	NextBillingDate *time.Time
	Description     *string
}

func (f fields) validate() error {
	verr := &types.ValidationError{Message: "invalid subscription"}

	if n := utf8.RuneCountInString(strings.TrimSpace(f.Name)); n == 0 {
		verr.Add("name", "name is required")
	} else if utf8.RuneCountInString(f.Name) > maxNameLength {
		verr.Add("name", "name must be at most 255 characters")
	}

	switch {
	case !f.Cost.IsPositive():
		verr.Add("cost", "cost must be greater than 0")
	case f.Cost.GreaterThan(maxCost):
		verr.Add("cost", "cost must be at most 100000")
	case !f.Cost.Equal(f.Cost.Round(2)):
		verr.Add("cost", "cost must have at most 2 decimal places")
	}

	if !validCurrency(f.Currency) {
		verr.Add("currency", "currency must be a 3-letter code")
	}
	if !f.BillingCycle.Valid() {
		verr.Add("billing_cycle", "billing_cycle must be monthly or yearly")
	}
	if !f.Status.Valid() {
		verr.Add("status", "status must be active, paused or cancelled")
	}

	if f.StartDate.IsZero() {
		verr.Add("start_date", "start_date is required")
	} else if f.NextBillingDate != nil && f.NextBillingDate.Before(f.StartDate) {
		verr.Add("next_billing_date", "next_billing_date must not be before start_date")
	}

	if f.Description != nil && utf8.RuneCountInString(*f.Description) > maxDescriptionLength {
		verr.Add("description", "description must be at most 1000 characters")
	}

	return verr.OrNil()
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func fieldsFromCreate(p types.CreateSubscriptionParams) fields {
	return fields(p)
}

// merge applies a patch on top of the stored record.
func merge(current *types.Subscription, p types.PatchSubscriptionParams) fields {
	f := fields{
		Name:            current.Name,
		Cost:            current.Cost,
		Currency:        current.Currency,
		BillingCycle:    current.BillingCycle,
		Status:          current.Status,
		StartDate:       current.StartDate,
		NextBillingDate: current.NextBillingDate,
		Description:     current.Description,
	}
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Cost != nil {
		f.Cost = *p.Cost
	}
	if p.Currency != nil {
		f.Currency = *p.Currency
	}
	if p.BillingCycle != nil {
		f.BillingCycle = *p.BillingCycle
	}
	if p.Status != nil {
		f.Status = *p.Status
	}
	if p.StartDate != nil {
		f.StartDate = *p.StartDate
	}
	switch {
	case p.ClearNextBillingDate:
		f.NextBillingDate = nil
	case p.NextBillingDate != nil:
		f.NextBillingDate = p.NextBillingDate
	}
	switch {
	case p.ClearDescription:
		f.Description = nil
	case p.Description != nil:
		f.Description = p.Description
	}
	return f
}

// normalizeFilter applies list defaults and rejects out-of-range values.
func normalizeFilter(filter types.ListSubscriptionsFilter) (types.ListSubscriptionsFilter, error) {
	verr := &types.ValidationError{Message: "invalid list parameters"}

	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.Limit == 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Page < 1 {
		verr.Add("page", "page must be at least 1")
	}
	if filter.Limit < 1 || filter.Limit > maxPageLimit {
		verr.Add("limit", "limit must be between 1 and 100")
	}
	if filter.Status != nil && !filter.Status.Valid() {
		verr.Add("status", "status must be active, paused or cancelled")
	}

	return filter, verr.OrNil()
}
