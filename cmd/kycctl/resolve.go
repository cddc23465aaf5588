package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	catalog "kycgate/internal/catalog/models"
	"kycgate/internal/entitlement"
	subscription "kycgate/internal/subscription/models"
	id "kycgate/pkg/domain"
)

// resolveFixture is a point-in-time snapshot of a user's grants and the
// catalog they resolve against.
type resolveFixture struct {
	Now              time.Time             `yaml:"now"`
	DynamicPlanPrice *float64              `yaml:"dynamic_plan_price"`
	Pricing          string                `yaml:"pricing"`
	Services         []fixtureService      `yaml:"services"`
	Plans            []fixturePlan         `yaml:"plans"`
	Subscriptions    []fixtureSubscription `yaml:"subscriptions"`
}

type fixtureService struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Category    string  `yaml:"category"`
	Subcategory string  `yaml:"subcategory"`
	Price       float64 `yaml:"price"`
	ServiceKey  string  `yaml:"service_key"`
}

type fixturePlan struct {
	Name               string   `yaml:"name"`
	IncludedServiceIDs []string `yaml:"included_service_ids"`
	Price              float64  `yaml:"price"`
	DurationDays       int      `yaml:"duration_days"`
}

// fixtureSubscription bypasses the grant constructor so fixtures can hold
// expired and revoked grants.
type fixtureSubscription struct {
	Category  string     `yaml:"category"`
	ExpiresAt *time.Time `yaml:"expires_at"`
	RevokedAt *time.Time `yaml:"revoked_at"`
	Promoted  bool       `yaml:"promoted"`
}

type resolveResult struct {
	EvaluatedAt time.Time                 `json:"evaluated_at"`
	Entitled    []string                  `json:"entitled"`
	Services    map[string]serviceVerdict `json:"services"`
}

type serviceVerdict struct {
	Allowed bool                        `json:"allowed"`
	Target  *entitlement.PurchaseTarget `json:"purchase_target,omitempty"`
	Error   string                      `json:"error,omitempty"`
}

func resolveCmd() *cobra.Command {
	var fixturePath string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve entitlements and purchase targets for a YAML fixture",
		Long: `Resolve reads a fixture holding services, plans and one user's
subscriptions, and prints the entitled service ids plus, for every other
service, what the user would need to buy.

Example:
  kycctl resolve --fixture testdata/identity.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var fx resolveFixture
			if err := readYAML(cmd, fixturePath, &fx); err != nil {
				return err
			}
			result, err := evaluateFixture(fx)
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "fixture file (- for stdin)")
	_ = cmd.MarkFlagRequired("fixture")
	return cmd
}

func evaluateFixture(fx resolveFixture) (*resolveResult, error) {
	now := fx.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	services := make([]*catalog.Service, 0, len(fx.Services))
	for i, s := range fx.Services {
		serviceID, err := id.ParseServiceID(s.ID)
		if err != nil {
			return nil, fmt.Errorf("services[%d]: %w", i, err)
		}
		svc, err := catalog.NewService(serviceID, s.Name, s.Category, s.Subcategory, s.Price, s.ServiceKey, now)
		if err != nil {
			return nil, fmt.Errorf("services[%d]: %w", i, err)
		}
		services = append(services, svc)
	}

	plans := make([]*catalog.PricingPlan, 0, len(fx.Plans))
	for i, p := range fx.Plans {
		plan, err := catalog.NewPricingPlan(p.Name, p.IncludedServiceIDs, p.Price, p.DurationDays, now)
		if err != nil {
			return nil, fmt.Errorf("plans[%d]: %w", i, err)
		}
		plans = append(plans, plan)
	}

	userID := id.UserID(uuid.New())
	subs := make([]*subscription.Subscription, 0, len(fx.Subscriptions))
	for i, s := range fx.Subscriptions {
		if strings.TrimSpace(s.Category) == "" {
			return nil, fmt.Errorf("subscriptions[%d]: category is required", i)
		}
		subs = append(subs, &subscription.Subscription{
			ID:         id.SubscriptionID(uuid.New()),
			UserID:     userID,
			Category:   strings.TrimSpace(s.Category),
			ExpiresAt:  s.ExpiresAt,
			IsPromoted: s.Promoted,
			RevokedAt:  s.RevokedAt,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	var opts []entitlement.ResolverOption
	if fx.DynamicPlanPrice != nil {
		opts = append(opts, entitlement.WithDynamicPlanPrice(*fx.DynamicPlanPrice))
	}
	if fx.Pricing != "" {
		opts = append(opts, entitlement.WithPricingMode(entitlement.PricingMode(strings.ToLower(fx.Pricing))))
	}
	resolver := entitlement.NewResolver(opts...)

	set := entitlement.Resolve(subs, plans, services, now)
	result := &resolveResult{
		EvaluatedAt: now,
		Entitled:    make([]string, 0, set.Len()),
		Services:    make(map[string]serviceVerdict, len(services)),
	}
	for _, serviceID := range set.IDs() {
		result.Entitled = append(result.Entitled, serviceID.String())
	}
	sort.Strings(result.Entitled)

	for _, svc := range services {
		if set.Has(svc.ID) {
			result.Services[svc.ID.String()] = serviceVerdict{Allowed: true}
			continue
		}
		target, err := resolver.PurchaseTargetFor(svc, plans)
		switch {
		case errors.Is(err, entitlement.ErrNoPurchasablePlan):
			result.Services[svc.ID.String()] = serviceVerdict{
				Error: "no purchasable plan named " + entitlement.StaticPlanName(svc.Category),
			}
		case err != nil:
			return nil, err
		default:
			result.Services[svc.ID.String()] = serviceVerdict{Target: &target}
		}
	}
	return result, nil
}
