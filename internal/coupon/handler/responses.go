package handler

import (
	"time"

	"kycgate/internal/coupon/models"
)

type CouponResponse struct {
	Code                 string     `json:"code"`
	DiscountType         string     `json:"discount_type"`
	DiscountValue        float64    `json:"discount_value"`
	ExpiryDate           *time.Time `json:"expiry_date,omitempty"`
	MaxUses              *int       `json:"max_uses,omitempty"`
	TimesUsed            int        `json:"times_used"`
	MinAmount            float64    `json:"min_amount"`
	ApplicableCategories []string   `json:"applicable_categories"`
}

type CouponListResponse struct {
	Coupons []CouponResponse `json:"coupons"`
}

func toResponse(c *models.Coupon) CouponResponse {
	resp := CouponResponse{
		Code:                 c.Code,
		DiscountType:         string(c.Discount.Type),
		DiscountValue:        c.Discount.Value,
		MaxUses:              c.MaxUses,
		TimesUsed:            c.TimesUsed,
		MinAmount:            c.MinAmount,
		ApplicableCategories: c.ApplicableCategories,
	}
	if resp.ApplicableCategories == nil {
		resp.ApplicableCategories = []string{}
	}
	if !c.ExpiryDate.IsZero() {
		expiry := c.ExpiryDate
		resp.ExpiryDate = &expiry
	}
	return resp
}
