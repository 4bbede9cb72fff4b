//revive:disable-next-line:var-naming
package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for subscription dates.
const DateLayout = "2006-01-02"

// DefaultCurrency is applied when a subscription is created without a currency,
// and reported by summaries of an empty portfolio.
const DefaultCurrency = "PLN"

// BillingCycle determines how a subscription cost is normalized.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

// Valid reports whether c is a known billing cycle.
func (c BillingCycle) Valid() bool {
	return c == BillingCycleMonthly || c == BillingCycleYearly
}

// SubscriptionStatus controls whether a subscription counts towards cost totals.
type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusPaused    SubscriptionStatus = "paused"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCancelled:
		return true
	}
	return false
}

// Subscription is a single recurring expense owned by a user.
type Subscription struct {
	ID              uuid.UUID          `json:"id"`
	UserID          uuid.UUID          `json:"-"`
	Name            string             `json:"name"`
	Cost            decimal.Decimal    `json:"cost"`
	Currency        string             `json:"currency"`
	BillingCycle    BillingCycle       `json:"billing_cycle"`
	Status          SubscriptionStatus `json:"status"`
	StartDate       time.Time          `json:"start_date"`
	NextBillingDate *time.Time         `json:"next_billing_date"`
	Description     *string            `json:"description"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// ListSubscriptionsFilter narrows an owner-scoped listing. A zero Limit disables pagination.
type ListSubscriptionsFilter struct {
	Status *SubscriptionStatus
	Page   int
	Limit  int
}

// SubscriptionPage is one page of an owner's subscriptions.
type SubscriptionPage struct {
	Items      []Subscription
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// CreateSubscriptionParams holds validated values for inserting a subscription.
type CreateSubscriptionParams struct {
	Name            string
	Cost            decimal.Decimal
	Currency        string
	BillingCycle    BillingCycle
	Status          SubscriptionStatus
	StartDate       time.Time
	NextBillingDate *time.Time
	Description     *string
}

// UpdateSubscriptionParams replaces every mutable column of a subscription.
type UpdateSubscriptionParams CreateSubscriptionParams

// PatchSubscriptionParams holds the columns to change. Nil fields are left untouched;
// ClearNextBillingDate and ClearDescription set the column to NULL.
type PatchSubscriptionParams struct {
	Name                 *string
	Cost                 *decimal.Decimal
	Currency             *string
	BillingCycle         *BillingCycle
	Status               *SubscriptionStatus
	StartDate            *time.Time
	NextBillingDate      *time.Time
	ClearNextBillingDate bool
	Description          *string
	ClearDescription     bool
}

// IsEmpty reports whether the patch changes nothing.
func (p PatchSubscriptionParams) IsEmpty() bool {
	return p.Name == nil && p.Cost == nil && p.Currency == nil && p.BillingCycle == nil &&
		p.Status == nil && p.StartDate == nil && p.NextBillingDate == nil && !p.ClearNextBillingDate &&
		p.Description == nil && !p.ClearDescription
}

// Nullable records whether a JSON field was present and whether it was null,
// so partial updates can tell "leave as is" from "clear".
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Valid = false
		return nil
	}
	if err := json.Unmarshal(b, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// --- wire messages ---

// SubscriptionDTO is the client-facing view of a subscription. The owner id is never exposed.
type SubscriptionDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Cost            float64 `json:"cost"`
	Currency        string  `json:"currency"`
	BillingCycle    string  `json:"billing_cycle"`
	Status          string  `json:"status"`
	StartDate       string  `json:"start_date"`
	NextBillingDate *string `json:"next_billing_date"`
	Description     *string `json:"description"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

type PaginationDTO struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type ListSubscriptionsRequest struct {
	Page   int    `json:"page,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Status string `json:"status,omitempty"`
}

type ListSubscriptionsResponse struct {
	Data       []SubscriptionDTO `json:"data"`
	Pagination PaginationDTO     `json:"pagination"`
}

type GetSubscriptionRequest struct {
	ID string `json:"id"`
}

// SubscriptionResponse wraps a single subscription.
type SubscriptionResponse struct {
	Data SubscriptionDTO `json:"data"`
}

// CreateSubscriptionRequest is the create command. Currency and status are optional.
type CreateSubscriptionRequest struct {
	Name            string           `json:"name"`
	Cost            *decimal.Decimal `json:"cost"`
	Currency        string           `json:"currency,omitempty"`
	BillingCycle    string           `json:"billing_cycle"`
	Status          string           `json:"status,omitempty"`
	StartDate       string           `json:"start_date"`
	NextBillingDate *string          `json:"next_billing_date,omitempty"`
	Description     *string          `json:"description,omitempty"`
}

// UpdateSubscriptionRequest is the full-replacement command; every field is required.
type UpdateSubscriptionRequest struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Cost            *decimal.Decimal `json:"cost"`
	Currency        string           `json:"currency"`
	BillingCycle    string           `json:"billing_cycle"`
	Status          string           `json:"status"`
	StartDate       string           `json:"start_date"`
	NextBillingDate *string          `json:"next_billing_date"`
	Description     *string          `json:"description"`
}

// PatchSubscriptionRequest carries only the fields to change.
type PatchSubscriptionRequest struct {
	ID              string           `json:"id"`
	Name            *string          `json:"name,omitempty"`
	Cost            *decimal.Decimal `json:"cost,omitempty"`
	Currency        *string          `json:"currency,omitempty"`
	BillingCycle    *string          `json:"billing_cycle,omitempty"`
	Status          *string          `json:"status,omitempty"`
	StartDate       *string          `json:"start_date,omitempty"`
	NextBillingDate Nullable[string] `json:"next_billing_date,omitzero"`
	Description     Nullable[string] `json:"description,omitzero"`
}

type DeleteSubscriptionRequest struct {
	ID string `json:"id"`
}

type DeleteSubscriptionResponse struct{}
