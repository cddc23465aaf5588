package service

import (
	"context"
	"time"

	catalog "kycgate/internal/catalog/models"
	"kycgate/internal/coupon/models"
	"kycgate/internal/entitlement/cache"
	subscription "kycgate/internal/subscription/models"
	id "kycgate/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/ports-mocks.go -package=mocks

// SubscriptionSource lists a user's grants, revoked and expired included.
type SubscriptionSource interface {
	ListForUser(ctx context.Context, userID id.UserID) ([]*subscription.Subscription, error)
}

// CatalogSource reads the service catalog and pricing plans.
type CatalogSource interface {
	ListServices(ctx context.Context, includeInactive bool) ([]*catalog.Service, error)
	ListPlans(ctx context.Context) ([]*catalog.PricingPlan, error)
	GetService(ctx context.Context, serviceID id.ServiceID) (*catalog.Service, error)
}

// Cache stores resolved sets per user.
type Cache interface {
	Get(ctx context.Context, userID id.UserID) (cache.Entry, bool, error)
	Set(ctx context.Context, userID id.UserID, entry cache.Entry, ttl time.Duration) error
	Delete(ctx context.Context, userID id.UserID) error
	Flush(ctx context.Context) error
}

// CouponQuoter prices a purchase after a coupon.
type CouponQuoter interface {
	Quote(ctx context.Context, code, target string, basePrice float64) (*models.Quote, error)
}
