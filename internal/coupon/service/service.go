package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kycgate/internal/coupon"
	"kycgate/internal/coupon/models"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/sentinel"
	platformstrings "kycgate/pkg/platform/strings"
	"kycgate/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, c *models.Coupon) error
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context) ([]*models.Coupon, error)
	IncrementUsage(ctx context.Context, code string) (*models.Coupon, error)
}

// Service validates, prices and redeems coupons.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("coupon store is required")
	}
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateCommand carries admin input for a new coupon.
type CreateCommand struct {
	Code                 string
	Discount             models.Discount
	ExpiryDate           time.Time
	MaxUses              *int
	MinAmount            float64
	ApplicableCategories []string
	Actor                string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*models.Coupon, error) {
	c, err := models.NewCoupon(cmd.Code, cmd.Discount, cmd.ExpiryDate, cmd.MaxUses, cmd.MinAmount, cmd.ApplicableCategories, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "coupon code already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create coupon")
	}

	s.logAudit(ctx, audit.EventCouponCreated,
		"subject", c.Code,
		"actor_id", cmd.Actor,
		"discount_type", string(c.Discount.Type),
	)
	return c, nil
}

func (s *Service) Get(ctx context.Context, code string) (*models.Coupon, error) {
	normalized := platformstrings.NormalizeCode(code)
	if normalized == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "coupon code is required")
	}
	c, err := s.store.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "coupon not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load coupon")
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Coupon, error) {
	coupons, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list coupons")
	}
	return coupons, nil
}

// Quote prices basePrice for target after the coupon. Ineligible coupons
// fail with a validation error whose message is the ineligibility reason and
// whose cause is a *coupon.IneligibleError.
func (s *Service) Quote(ctx context.Context, code, target string, basePrice float64) (*models.Quote, error) {
	if basePrice < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "base price must be non-negative")
	}
	c, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := coupon.CheckEligibility(c, target, basePrice, requestcontext.Now(ctx)); err != nil {
		var ineligible *coupon.IneligibleError
		if errors.As(err, &ineligible) {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, ineligible.Reason)
		}
		return nil, err
	}

	result := coupon.ApplyDiscount(basePrice, c)
	return &models.Quote{
		Code:           c.Code,
		Target:         target,
		BasePrice:      basePrice,
		DiscountAmount: result.DiscountAmount,
		FinalPrice:     result.FinalPrice,
	}, nil
}

// Redeem records one use. Expired coupons are refused; the usage cap is
// enforced atomically by the store.
func (s *Service) Redeem(ctx context.Context, code string) (*models.Coupon, error) {
	c, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if c.IsExpired(requestcontext.Now(ctx)) {
		return nil, dErrors.Wrap(&coupon.IneligibleError{Reason: coupon.ReasonExpired}, dErrors.CodeValidation, coupon.ReasonExpired)
	}

	redeemed, err := s.store.IncrementUsage(ctx, c.Code)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrExhausted):
			return nil, dErrors.Wrap(&coupon.IneligibleError{Reason: coupon.ReasonUsageLimit}, dErrors.CodeConflict, coupon.ReasonUsageLimit)
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "coupon not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to redeem coupon")
		}
	}

	s.logAudit(ctx, audit.EventCouponRedeemed,
		"subject", redeemed.Code,
		"times_used", redeemed.TimesUsed,
	)
	return redeemed, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	ev := audit.Event{UserID: requestcontext.UserID(ctx)}
	if err := audit.Log(ctx, s.logger, s.auditPublisher, event, ev, attributes...); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"event", string(event),
			"error", err,
		)
	}
}
