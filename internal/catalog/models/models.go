package models

import (
	"strings"
	"time"

	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	platformstrings "kycgate/pkg/platform/strings"
)

// Service is one invokable verification service in the catalog.
//
// Invariants:
//   - Name, Category and ServiceKey are non-empty
//   - Price is non-negative
//   - Subcategory is optional; an empty value means the service is only
//     reachable through its category plan or a direct purchase
//
// Inactive services are hidden from the public catalog but still count for
// entitlement, so a user who already paid keeps access.
type Service struct {
	ID          id.ServiceID `json:"id"`
	Name        string       `json:"name"`
	Category    string       `json:"category"`
	Subcategory string       `json:"subcategory,omitempty"`
	Price       float64      `json:"price"`
	ServiceKey  string       `json:"service_key"`
	Active      bool         `json:"active"`
	CreatedAt   time.Time    `json:"created_at"`
}

// HasSubcategory reports whether the service belongs to a dynamic plan scope.
func (s *Service) HasSubcategory() bool {
	return s.Subcategory != ""
}

// NewService constructs an active service.
func NewService(serviceID id.ServiceID, name, category, subcategory string, price float64, serviceKey string, now time.Time) (*Service, error) {
	name = strings.TrimSpace(name)
	category = strings.TrimSpace(category)
	subcategory = strings.TrimSpace(subcategory)
	serviceKey = strings.TrimSpace(serviceKey)

	if serviceID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "service id cannot be empty")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "service name cannot be empty")
	}
	if category == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "service category cannot be empty")
	}
	if serviceKey == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "service key cannot be empty")
	}
	if len(serviceKey) > 64 || strings.ContainsAny(serviceKey, " /?#") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "service key must be at most 64 characters without spaces or path separators")
	}
	if price < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "service price must be non-negative")
	}
	return &Service{
		ID:          serviceID,
		Name:        name,
		Category:    category,
		Subcategory: subcategory,
		Price:       price,
		ServiceKey:  serviceKey,
		Active:      true,
		CreatedAt:   now,
	}, nil
}

// PricingPlan is a named bundle of services sold as one grant.
type PricingPlan struct {
	Name               string         `json:"name"`
	IncludedServiceIDs []id.ServiceID `json:"included_service_ids"`
	Price              float64        `json:"price"`
	DurationDays       int            `json:"duration_days"`
	CreatedAt          time.Time      `json:"created_at"`
}

// Includes reports whether the plan grants serviceID.
func (p *PricingPlan) Includes(serviceID id.ServiceID) bool {
	for _, included := range p.IncludedServiceIDs {
		if included == serviceID {
			return true
		}
	}
	return false
}

// NewPricingPlan dedupes the included ids and enforces a non-empty set.
func NewPricingPlan(name string, includedServiceIDs []string, price float64, durationDays int, now time.Time) (*PricingPlan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "plan name cannot be empty")
	}
	if price < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "plan price must be non-negative")
	}
	if durationDays <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "plan duration must be positive")
	}

	raw := platformstrings.DedupeAndTrim(includedServiceIDs)
	if len(raw) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "plan must include at least one service")
	}
	ids := make([]id.ServiceID, 0, len(raw))
	for _, s := range raw {
		serviceID, err := id.ParseServiceID(s)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "plan includes an invalid service id")
		}
		ids = append(ids, serviceID)
	}

	return &PricingPlan{
		Name:               name,
		IncludedServiceIDs: ids,
		Price:              price,
		DurationDays:       durationDays,
		CreatedAt:          now,
	}, nil
}
