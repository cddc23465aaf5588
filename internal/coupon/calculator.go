// Package coupon holds the discount arithmetic and eligibility rules for
// coupons. Both are pure functions over a coupon snapshot.
package coupon

import (
	"math"
	"time"

	"kycgate/internal/coupon/models"
)

// Ineligibility reasons, shown to users verbatim.
const (
	ReasonExpired       = "expired"
	ReasonUsageLimit    = "usage limit reached"
	ReasonNotApplicable = "not valid for this plan"
	ReasonBelowMinimum  = "below minimum amount"
)

// IneligibleError reports why a coupon cannot be applied.
type IneligibleError struct {
	Reason string
}

func (e *IneligibleError) Error() string {
	return "coupon not eligible: " + e.Reason
}

// Result is the outcome of applying a discount.
type Result struct {
	FinalPrice     float64
	DiscountAmount float64
}

// ApplyDiscount prices basePrice after coupon. Fixed discounts are returned
// unclamped; only the final price is floored at zero.
func ApplyDiscount(basePrice float64, c *models.Coupon) Result {
	if c == nil {
		return Result{FinalPrice: basePrice}
	}
	var discount float64
	switch c.Discount.Type {
	case models.DiscountFixed:
		discount = c.Discount.Value
	case models.DiscountPercentage:
		discount = basePrice * c.Discount.Value / 100
	}
	return Result{
		FinalPrice:     math.Max(0, basePrice-discount),
		DiscountAmount: discount,
	}
}

// CheckEligibility fails closed, checking expiry, usage cap, plan scope and
// minimum amount in that order. It returns nil or an *IneligibleError.
func CheckEligibility(c *models.Coupon, target string, basePrice float64, now time.Time) error {
	if c.IsExpired(now) {
		return &IneligibleError{Reason: ReasonExpired}
	}
	if c.UsageExhausted() {
		return &IneligibleError{Reason: ReasonUsageLimit}
	}
	if !c.AppliesTo(target) {
		return &IneligibleError{Reason: ReasonNotApplicable}
	}
	if c.MinAmount > 0 && basePrice < c.MinAmount {
		return &IneligibleError{Reason: ReasonBelowMinimum}
	}
	return nil
}
