package models

import (
	"time"

	dErrors "kycgate/pkg/domain-errors"
	platformstrings "kycgate/pkg/platform/strings"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// ParseDiscountType validates a discount type from external input.
func ParseDiscountType(s string) (DiscountType, error) {
	switch DiscountType(s) {
	case DiscountPercentage, DiscountFixed:
		return DiscountType(s), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "discount type must be percentage or fixed")
	}
}

type Discount struct {
	Type  DiscountType `json:"type"`
	Value float64      `json:"value"`
}

// Coupon is a discount rule redeemable against plan purchases.
//
// Invariants:
//   - Code is trimmed and upper-case; lookups are case-insensitive
//   - A zero ExpiryDate means the coupon never expires
//   - A nil MaxUses means unlimited redemptions
//   - An empty ApplicableCategories applies to every plan
type Coupon struct {
	Code                 string    `json:"code"`
	Discount             Discount  `json:"discount"`
	ExpiryDate           time.Time `json:"expiry_date"`
	MaxUses              *int      `json:"max_uses,omitempty"`
	TimesUsed            int       `json:"times_used"`
	MinAmount            float64   `json:"min_amount"`
	ApplicableCategories []string  `json:"applicable_categories"`
	CreatedAt            time.Time `json:"created_at"`
}

// NewCoupon validates admin input for a fresh coupon.
func NewCoupon(code string, discount Discount, expiry time.Time, maxUses *int, minAmount float64, categories []string, now time.Time) (*Coupon, error) {
	code = platformstrings.NormalizeCode(code)
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "coupon code cannot be empty")
	}
	if len(code) > 64 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "coupon code must be at most 64 characters")
	}
	switch discount.Type {
	case DiscountPercentage:
		if discount.Value <= 0 || discount.Value > 100 {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "percentage discount must be in (0, 100]")
		}
	case DiscountFixed:
		if discount.Value <= 0 {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "fixed discount must be positive")
		}
	default:
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown discount type")
	}
	if !expiry.IsZero() && !expiry.After(now) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "expiry date must be in the future")
	}
	if maxUses != nil && *maxUses < 1 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "max uses must be at least 1")
	}
	if minAmount < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "minimum amount must be non-negative")
	}

	var limit *int
	if maxUses != nil {
		n := *maxUses
		limit = &n
	}
	return &Coupon{
		Code:                 code,
		Discount:             discount,
		ExpiryDate:           expiry,
		MaxUses:              limit,
		MinAmount:            minAmount,
		ApplicableCategories: platformstrings.DedupeAndTrim(categories),
		CreatedAt:            now,
	}, nil
}

// IsExpired reports whether the expiry date lies before now.
func (c *Coupon) IsExpired(now time.Time) bool {
	return !c.ExpiryDate.IsZero() && c.ExpiryDate.Before(now)
}

// UsageExhausted reports whether the redemption cap is reached.
func (c *Coupon) UsageExhausted() bool {
	return c.MaxUses != nil && c.TimesUsed >= *c.MaxUses
}

// AppliesTo reports whether the coupon may be used for the plan or category.
func (c *Coupon) AppliesTo(category string) bool {
	if len(c.ApplicableCategories) == 0 {
		return true
	}
	for _, allowed := range c.ApplicableCategories {
		if allowed == category {
			return true
		}
	}
	return false
}

func (c *Coupon) Clone() *Coupon {
	out := *c
	if c.MaxUses != nil {
		n := *c.MaxUses
		out.MaxUses = &n
	}
	out.ApplicableCategories = append([]string(nil), c.ApplicableCategories...)
	return &out
}

// Quote is a priced purchase after an optional coupon.
type Quote struct {
	Code           string  `json:"code,omitempty"`
	Target         string  `json:"target"`
	BasePrice      float64 `json:"base_price"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalPrice     float64 `json:"final_price"`
}
