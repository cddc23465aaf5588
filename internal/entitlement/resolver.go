// Package entitlement decides which catalog services a user may invoke and,
// for the rest, what they would have to buy.
//
// Resolve and Resolver.PurchaseTargetFor are pure: they take immutable
// snapshots of subscriptions, plans and services plus the evaluation time and
// perform no I/O. Loading, caching and HTTP live in the sub-packages.
package entitlement

import (
	"errors"
	"sort"
	"time"

	catalog "kycgate/internal/catalog/models"
	subscription "kycgate/internal/subscription/models"
	id "kycgate/pkg/domain"
)

// DefaultDynamicPlanPrice is the system-wide price of a one-time subcategory
// purchase when the service price is not used.
const DefaultDynamicPlanPrice = 1000

// ErrNoPurchasablePlan is returned when a service outside every subcategory
// has no "<category> Plan" to sell.
var ErrNoPurchasablePlan = errors.New("no purchasable plan for service")

// ServiceSet is the set of service ids a user is entitled to.
type ServiceSet map[id.ServiceID]struct{}

func (s ServiceSet) Has(serviceID id.ServiceID) bool {
	_, ok := s[serviceID]
	return ok
}

func (s ServiceSet) Len() int { return len(s) }

// IDs returns the members in lexical order.
func (s ServiceSet) IDs() []id.ServiceID {
	out := make([]id.ServiceID, 0, len(s))
	for serviceID := range s {
		out = append(out, serviceID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ServiceSetOf builds a set from ids.
func ServiceSetOf(ids ...id.ServiceID) ServiceSet {
	set := make(ServiceSet, len(ids))
	for _, serviceID := range ids {
		set[serviceID] = struct{}{}
	}
	return set
}

// Resolve unions the services reachable through every subscription active at
// now. A subscription whose category equals a plan name grants that plan's
// services and nothing else, even if the same string is also a subcategory.
// Otherwise it grants every service whose subcategory equals its category.
func Resolve(subs []*subscription.Subscription, plans []*catalog.PricingPlan, services []*catalog.Service, now time.Time) ServiceSet {
	set := make(ServiceSet)
	if len(subs) == 0 {
		return set
	}

	planServices := make(map[string][]id.ServiceID, len(plans))
	for _, plan := range plans {
		planServices[plan.Name] = plan.IncludedServiceIDs
	}

	for _, sub := range subs {
		if !sub.IsActive(now) {
			continue
		}
		if included, ok := planServices[sub.Category]; ok {
			for _, serviceID := range included {
				set[serviceID] = struct{}{}
			}
			continue
		}
		for _, svc := range services {
			if svc.HasSubcategory() && svc.Subcategory == sub.Category {
				set[svc.ID] = struct{}{}
			}
		}
	}
	return set
}

// TargetKind distinguishes a static plan from a one-time subcategory purchase.
type TargetKind string

const (
	TargetStaticPlan  TargetKind = "static_plan"
	TargetDynamicPlan TargetKind = "dynamic_plan"
)

// PricingMode selects the price quoted for dynamic targets.
type PricingMode string

const (
	// PricingFallback quotes the configured system-wide price.
	PricingFallback PricingMode = "fallback"
	// PricingCatalog quotes the service's own catalog price.
	PricingCatalog PricingMode = "catalog"
)

// PurchaseTarget describes what a user must buy to gain access to a service.
// Category is the value a resulting subscription is granted under: the plan
// name for static plans, the subcategory for dynamic ones.
type PurchaseTarget struct {
	Kind         TargetKind `json:"kind"`
	Category     string     `json:"category"`
	Price        float64    `json:"price"`
	CatalogPrice float64    `json:"catalog_price"`
	DurationDays int        `json:"duration_days,omitempty"`
	ServiceIDs   []string   `json:"service_ids,omitempty"`
}

// Resolver computes purchase targets under a pricing policy.
type Resolver struct {
	dynamicPrice float64
	pricing      PricingMode
}

type ResolverOption func(*Resolver)

// WithDynamicPlanPrice overrides DefaultDynamicPlanPrice.
func WithDynamicPlanPrice(price float64) ResolverOption {
	return func(r *Resolver) {
		if price >= 0 {
			r.dynamicPrice = price
		}
	}
}

// WithPricingMode selects fallback or catalog pricing for dynamic targets.
// Unknown modes are ignored.
func WithPricingMode(mode PricingMode) ResolverOption {
	return func(r *Resolver) {
		if mode == PricingFallback || mode == PricingCatalog {
			r.pricing = mode
		}
	}
}

func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{dynamicPrice: DefaultDynamicPlanPrice, pricing: PricingFallback}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PurchaseTargetFor returns what must be bought to reach svc. Services with a
// subcategory are sold as a one-time plan over that subcategory; the rest need
// the static plan named "<category> Plan".
func (r *Resolver) PurchaseTargetFor(svc *catalog.Service, plans []*catalog.PricingPlan) (PurchaseTarget, error) {
	if svc.HasSubcategory() {
		price := r.dynamicPrice
		if r.pricing == PricingCatalog {
			price = svc.Price
		}
		return PurchaseTarget{
			Kind:         TargetDynamicPlan,
			Category:     svc.Subcategory,
			Price:        price,
			CatalogPrice: svc.Price,
		}, nil
	}

	name := StaticPlanName(svc.Category)
	for _, plan := range plans {
		if plan.Name != name {
			continue
		}
		ids := make([]string, 0, len(plan.IncludedServiceIDs))
		for _, serviceID := range plan.IncludedServiceIDs {
			ids = append(ids, serviceID.String())
		}
		return PurchaseTarget{
			Kind:         TargetStaticPlan,
			Category:     plan.Name,
			Price:        plan.Price,
			CatalogPrice: svc.Price,
			DurationDays: plan.DurationDays,
			ServiceIDs:   ids,
		}, nil
	}
	return PurchaseTarget{}, ErrNoPurchasablePlan
}

// StaticPlanName is the plan name that sells a category.
func StaticPlanName(category string) string {
	return category + " Plan"
}
