package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	catalog "kycgate/internal/catalog/models"
	"kycgate/internal/entitlement"
	"kycgate/internal/entitlement/cache"
	"kycgate/internal/entitlement/metrics"
	subscription "kycgate/internal/subscription/models"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/requestcontext"
)

const (
	defaultCacheTTL = 5 * time.Minute
	loadTimeout     = 3 * time.Second
)

// Service resolves entitlements for users and prices what they lack.
type Service struct {
	subscriptions SubscriptionSource
	catalog       CatalogSource
	resolver      *entitlement.Resolver
	cache         Cache
	cacheTTL      time.Duration
	coupons       CouponQuoter
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
}

type Option func(*Service)

func WithResolver(r *entitlement.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithCache enables caching with an upper bound on entry lifetime.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithCouponQuoter(q CouponQuoter) Option {
	return func(s *Service) {
		s.coupons = q
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(subscriptions SubscriptionSource, catalogSource CatalogSource, opts ...Option) (*Service, error) {
	if subscriptions == nil {
		return nil, errors.New("subscription source is required")
	}
	if catalogSource == nil {
		return nil, errors.New("catalog source is required")
	}
	s := &Service{
		subscriptions: subscriptions,
		catalog:       catalogSource,
		resolver:      entitlement.NewResolver(),
		cacheTTL:      defaultCacheTTL,
		tracer:        otel.Tracer("kycgate/entitlement"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AccessDecision tells the caller whether to execute or to sell.
type AccessDecision struct {
	ServiceID id.ServiceID
	Allowed   bool
	// Target is set when Allowed is false.
	Target *entitlement.PurchaseTarget
}

// CheckoutQuote prices the purchase that unlocks a service.
type CheckoutQuote struct {
	ServiceID      id.ServiceID
	Target         entitlement.PurchaseTarget
	CouponCode     string
	BasePrice      float64
	DiscountAmount float64
	FinalPrice     float64
}

type snapshot struct {
	subs     []*subscription.Subscription
	plans    []*catalog.PricingPlan
	services []*catalog.Service
}

// Entitlements returns the services the user may invoke at the request time.
func (s *Service) Entitlements(ctx context.Context, userID id.UserID) (entitlement.ServiceSet, error) {
	ctx, span := s.tracer.Start(ctx, "entitlement.Entitlements",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()

	// The cache write below is conditional on the version read here.
	set, version, hit, cacheable := s.cached(ctx, userID)
	if hit {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return set, nil
	}

	start := time.Now()
	snap, err := s.load(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, err
	}

	now := requestcontext.Now(ctx)
	set = entitlement.Resolve(snap.subs, snap.plans, snap.services, now)
	s.metrics.ObserveResolveLatency(time.Since(start))
	span.SetAttributes(attribute.Int("services", set.Len()))

	if cacheable {
		s.store(ctx, userID, set, version, s.ttlFor(snap.subs, now))
	}
	return set, nil
}

func (s *Service) load(ctx context.Context, userID id.UserID) (*snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	snap := &snapshot{}

	g.Go(func() error {
		subs, err := s.subscriptions.ListForUser(ctx, userID)
		if err != nil {
			return err
		}
		snap.subs = subs
		return nil
	})
	g.Go(func() error {
		plans, err := s.catalog.ListPlans(ctx)
		if err != nil {
			return err
		}
		snap.plans = plans
		return nil
	})
	g.Go(func() error {
		services, err := s.catalog.ListServices(ctx, true)
		if err != nil {
			return err
		}
		snap.services = services
		return nil
	})

	if err := g.Wait(); err != nil {
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entitlement inputs")
	}
	return snap, nil
}

// ttlFor bounds the cache lifetime by the earliest active expiry so an entry
// never outlives the grant it reflects.
func (s *Service) ttlFor(subs []*subscription.Subscription, now time.Time) time.Duration {
	ttl := s.cacheTTL
	if earliest, ok := subscription.EarliestExpiry(subs, now); ok {
		if until := earliest.Sub(now); until < ttl {
			ttl = until
		}
	}
	return ttl
}

// cached reports the cached set on a hit. On a miss it returns the cache
// version observed, and cacheable is false when the result must not be written.
func (s *Service) cached(ctx context.Context, userID id.UserID) (set entitlement.ServiceSet, version cache.Version, hit, cacheable bool) {
	if s.cache == nil {
		return nil, cache.Version{}, false, false
	}
	entry, ok, err := s.cache.Get(ctx, userID)
	if err != nil {
		s.metrics.IncrementCache("error")
		s.warn(ctx, "entitlement cache read failed", userID, err)
		return nil, cache.Version{}, false, false
	}
	if !ok {
		s.metrics.IncrementCache("miss")
		return nil, entry.Version, false, true
	}
	s.metrics.IncrementCache("hit")
	return entitlement.ServiceSetOf(entry.ServiceIDs...), entry.Version, true, false
}

func (s *Service) store(ctx context.Context, userID id.UserID, set entitlement.ServiceSet, version cache.Version, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	err := s.cache.Set(ctx, userID, cache.Entry{ServiceIDs: set.IDs(), Version: version}, ttl)
	if errors.Is(err, cache.ErrStale) {
		s.metrics.IncrementCache("stale")
		return
	}
	if err != nil {
		s.warn(ctx, "entitlement cache write failed", userID, err)
	}
}

// Access decides whether the user may invoke serviceID, and if not, what they
// would need to buy.
func (s *Service) Access(ctx context.Context, userID id.UserID, serviceID id.ServiceID) (*AccessDecision, error) {
	ctx, span := s.tracer.Start(ctx, "entitlement.Access",
		trace.WithAttributes(attribute.String("service_id", serviceID.String())))
	defer span.End()

	svc, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	set, err := s.Entitlements(ctx, userID)
	if err != nil {
		return nil, err
	}
	if set.Has(serviceID) {
		s.metrics.IncrementAccess(true, "")
		return &AccessDecision{ServiceID: serviceID, Allowed: true}, nil
	}

	target, err := s.purchaseTarget(ctx, svc)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementAccess(false, string(target.Kind))
	span.SetAttributes(attribute.String("target", target.Category))
	return &AccessDecision{ServiceID: serviceID, Allowed: false, Target: &target}, nil
}

func (s *Service) purchaseTarget(ctx context.Context, svc *catalog.Service) (entitlement.PurchaseTarget, error) {
	var plans []*catalog.PricingPlan
	if !svc.HasSubcategory() {
		var err error
		plans, err = s.catalog.ListPlans(ctx)
		if err != nil {
			return entitlement.PurchaseTarget{}, err
		}
	}
	target, err := s.resolver.PurchaseTargetFor(svc, plans)
	if err != nil {
		if errors.Is(err, entitlement.ErrNoPurchasablePlan) {
			return entitlement.PurchaseTarget{}, dErrors.Wrap(err, dErrors.CodeNotFound,
				"no purchasable plan for category "+svc.Category)
		}
		return entitlement.PurchaseTarget{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute purchase target")
	}
	return target, nil
}

// Quote prices the purchase that unlocks serviceID, applying couponCode when
// it is not empty. The coupon target is the purchase category, so for a
// one-time purchase a coupon's applicable categories are matched against the
// service subcategory.
func (s *Service) Quote(ctx context.Context, userID id.UserID, serviceID id.ServiceID, couponCode string) (*CheckoutQuote, error) {
	decision, err := s.Access(ctx, userID, serviceID)
	if err != nil {
		return nil, err
	}
	if decision.Allowed {
		return nil, dErrors.New(dErrors.CodeConflict, "service is already accessible")
	}

	target := *decision.Target
	q := &CheckoutQuote{
		ServiceID:  serviceID,
		Target:     target,
		BasePrice:  target.Price,
		FinalPrice: target.Price,
	}
	if couponCode == "" {
		return q, nil
	}
	if s.coupons == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "coupons are not enabled")
	}
	priced, err := s.coupons.Quote(ctx, couponCode, target.Category, target.Price)
	if err != nil {
		return nil, err
	}
	q.CouponCode = priced.Code
	q.DiscountAmount = priced.DiscountAmount
	q.FinalPrice = priced.FinalPrice
	return q, nil
}

// Invalidate drops the cached set of one user.
func (s *Service) Invalidate(ctx context.Context, userID id.UserID) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, userID)
}

// CatalogChanged drops every cached set; plan contents or subcategories may
// have moved.
func (s *Service) CatalogChanged(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Flush(ctx); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "entitlement cache flush failed", "error", err)
	}
}

func (s *Service) warn(ctx context.Context, msg string, userID id.UserID, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg,
			"user_id", userID.String(),
			"error", err,
		)
	}
}
