package presenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/subbase-api/internal/types"
)

// ParseUUID parses a string into a UUID.
func ParseUUID(id string) (uuid.UUID, error) {
	if id == "" {
		return uuid.Nil, fmt.Errorf("id is required")
	}
	return uuid.Parse(id)
}

func ToDTO(s *types.Subscription) types.SubscriptionDTO {
	dto := types.SubscriptionDTO{
		ID:           s.ID.String(),
		Name:         s.Name,
		Cost:         s.Cost.InexactFloat64(),
		Currency:     s.Currency,
		BillingCycle: string(s.BillingCycle),
		Status:       string(s.Status),
		StartDate:    s.StartDate.Format(types.DateLayout),
		Description:  s.Description,
		CreatedAt:    s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if s.NextBillingDate != nil {
		next := s.NextBillingDate.Format(types.DateLayout)
		dto.NextBillingDate = &next
	}
	return dto
}

func ToDTOs(subs []types.Subscription) []types.SubscriptionDTO {
	out := make([]types.SubscriptionDTO, len(subs))
	for i := range subs {
		out[i] = ToDTO(&subs[i])
	}
	return out
}

func ToListResponse(page *types.SubscriptionPage) *types.ListSubscriptionsResponse {
	return &types.ListSubscriptionsResponse{
		Data: ToDTOs(page.Items),
		Pagination: types.PaginationDTO{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	}
}

// FromListRequest maps query parameters onto a repository filter.
func FromListRequest(req *types.ListSubscriptionsRequest) types.ListSubscriptionsFilter {
	filter := types.ListSubscriptionsFilter{Page: req.Page, Limit: req.Limit}
	if req.Status != "" {
		status := types.SubscriptionStatus(req.Status)
		filter.Status = &status
	}
	return filter
}

// FromCreateRequest parses wire formats. Range and length rules are checked by the service.
func FromCreateRequest(req *types.CreateSubscriptionRequest) (types.CreateSubscriptionParams, error) {
	verr := &types.ValidationError{Message: "invalid subscription"}
	p := types.CreateSubscriptionParams{
		Name:         strings.TrimSpace(req.Name),
		Currency:     strings.ToUpper(strings.TrimSpace(req.Currency)),
		BillingCycle: types.BillingCycle(req.BillingCycle),
		Status:       types.SubscriptionStatus(req.Status),
		Description:  req.Description,
	}

	p.Cost = requireCost(verr, req.Cost)
	p.StartDate = requireDate(verr, "start_date", req.StartDate)
	p.NextBillingDate = optionalDate(verr, "next_billing_date", req.NextBillingDate)

	return p, verr.OrNil()
}

// FromUpdateRequest parses a full replacement. Every field except the optional dates is required.
func FromUpdateRequest(req *types.UpdateSubscriptionRequest) (uuid.UUID, types.UpdateSubscriptionParams, error) {
	id, err := ParseUUID(req.ID)
	if err != nil {
		return uuid.Nil, types.UpdateSubscriptionParams{}, fmt.Errorf("invalid subscription id: %w", types.ErrBadRequest)
	}

	verr := &types.ValidationError{Message: "invalid subscription"}
	p := types.UpdateSubscriptionParams{
		Name:         strings.TrimSpace(req.Name),
		Currency:     strings.ToUpper(strings.TrimSpace(req.Currency)),
		BillingCycle: types.BillingCycle(req.BillingCycle),
		Status:       types.SubscriptionStatus(req.Status),
		Description:  req.Description,
	}
	if req.Status == "" {
		verr.Add("status", "status is required")
	}

	p.Cost = requireCost(verr, req.Cost)
	p.StartDate = requireDate(verr, "start_date", req.StartDate)
	p.NextBillingDate = optionalDate(verr, "next_billing_date", req.NextBillingDate)

	return id, p, verr.OrNil()
}

// FromPatchRequest keeps absent fields nil. An explicit null clears the optional columns.
func FromPatchRequest(req *types.PatchSubscriptionRequest) (uuid.UUID, types.PatchSubscriptionParams, error) {
	id, err := ParseUUID(req.ID)
	if err != nil {
		return uuid.Nil, types.PatchSubscriptionParams{}, fmt.Errorf("invalid subscription id: %w", types.ErrBadRequest)
	}

	verr := &types.ValidationError{Message: "invalid subscription"}
	p := types.PatchSubscriptionParams{Cost: req.Cost}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		p.Name = &name
	}
	if req.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
		p.Currency = &currency
	}
	if req.BillingCycle != nil {
		cycle := types.BillingCycle(*req.BillingCycle)
		p.BillingCycle = &cycle
	}
	if req.Status != nil {
		status := types.SubscriptionStatus(*req.Status)
		p.Status = &status
	}
	if req.StartDate != nil {
		start := requireDate(verr, "start_date", *req.StartDate)
		p.StartDate = &start
	}
	if req.NextBillingDate.Set {
		if req.NextBillingDate.Valid {
			p.NextBillingDate = optionalDate(verr, "next_billing_date", &req.NextBillingDate.Value)
		} else {
			p.ClearNextBillingDate = true
		}
	}
	if req.Description.Set {
		if req.Description.Valid {
			desc := req.Description.Value
			p.Description = &desc
		} else {
			p.ClearDescription = true
		}
	}

	return id, p, verr.OrNil()
}

func requireCost(verr *types.ValidationError, cost *decimal.Decimal) decimal.Decimal {
	if cost == nil {
		verr.Add("cost", "cost is required")
		return decimal.Zero
	}
	return *cost
}

func requireDate(verr *types.ValidationError, field, value string) time.Time {
	if value == "" {
		verr.Add(field, field+" is required")
		return time.Time{}
	}
	d, err := time.Parse(types.DateLayout, value)
	if err != nil {
		verr.Add(field, field+" must be a date in YYYY-MM-DD format")
		return time.Time{}
	}
	return d
}

func optionalDate(verr *types.ValidationError, field string, value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}
	d, err := time.Parse(types.DateLayout, *value)
	if err != nil {
		verr.Add(field, field+" must be a date in YYYY-MM-DD format")
		return nil
	}
	return &d
}
