package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kycgate/internal/coupon"
	"kycgate/internal/coupon/models"
	platformstrings "kycgate/pkg/platform/strings"
)

type couponFixture struct {
	Code                 string    `yaml:"code"`
	DiscountType         string    `yaml:"discount_type"`
	DiscountValue        float64   `yaml:"discount_value"`
	ExpiryDate           time.Time `yaml:"expiry_date"`
	MaxUses              *int      `yaml:"max_uses"`
	TimesUsed            int       `yaml:"times_used"`
	MinAmount            float64   `yaml:"min_amount"`
	ApplicableCategories []string  `yaml:"applicable_categories"`
}

type quoteResult struct {
	models.Quote
	Eligible         bool   `json:"eligible"`
	IneligibleReason string `json:"ineligible_reason,omitempty"`
}

func quoteCmd() *cobra.Command {
	var (
		price      float64
		target     string
		couponFile string
		at         string
	)
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a purchase after an optional coupon",
		Long: `Quote applies the coupon eligibility rules and discount arithmetic to
a base price. Without --coupon-file the base price is returned unchanged.

Example:
  kycctl quote --price 2500 --target "Identity Plan" --coupon-file save10.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if price < 0 {
				return errors.New("--price must be non-negative")
			}
			now := time.Now().UTC()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = parsed
			}

			result := quoteResult{
				Quote:    models.Quote{Target: target, BasePrice: price, FinalPrice: price},
				Eligible: true,
			}
			if couponFile == "" {
				return writeJSON(cmd, result)
			}

			var fx couponFixture
			if err := readYAML(cmd, couponFile, &fx); err != nil {
				return err
			}
			c, err := fx.coupon()
			if err != nil {
				return err
			}
			result.Code = c.Code

			if err := coupon.CheckEligibility(c, target, price, now); err != nil {
				var ineligible *coupon.IneligibleError
				if !errors.As(err, &ineligible) {
					return err
				}
				result.Eligible = false
				result.IneligibleReason = ineligible.Reason
				return writeJSON(cmd, result)
			}

			applied := coupon.ApplyDiscount(price, c)
			result.DiscountAmount = applied.DiscountAmount
			result.FinalPrice = applied.FinalPrice
			return writeJSON(cmd, result)
		},
	}
	cmd.Flags().Float64Var(&price, "price", 0, "base price")
	cmd.Flags().StringVar(&target, "target", "", "purchase target category or plan name")
	cmd.Flags().StringVar(&couponFile, "coupon-file", "", "coupon YAML file (- for stdin)")
	cmd.Flags().StringVar(&at, "at", "", "evaluation time (RFC3339), defaults to now")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

// coupon builds a snapshot without the creation-time checks, so fixtures can
// describe expired or exhausted coupons.
func (fx couponFixture) coupon() (*models.Coupon, error) {
	discountType, err := models.ParseDiscountType(fx.DiscountType)
	if err != nil {
		return nil, err
	}
	return &models.Coupon{
		Code:                 platformstrings.NormalizeCode(fx.Code),
		Discount:             models.Discount{Type: discountType, Value: fx.DiscountValue},
		ExpiryDate:           fx.ExpiryDate,
		MaxUses:              fx.MaxUses,
		TimesUsed:            fx.TimesUsed,
		MinAmount:            fx.MinAmount,
		ApplicableCategories: fx.ApplicableCategories,
	}, nil
}
