package handler

import (
	"strings"
	"time"

	"kycgate/internal/coupon/models"
	"kycgate/internal/coupon/service"
	dErrors "kycgate/pkg/domain-errors"
)

// ValidateRequest is the body of POST /coupons/validate.
type ValidateRequest struct {
	Code      string  `json:"code"`
	Target    string  `json:"target"`
	BasePrice float64 `json:"base_price"`
}

func (r *ValidateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Code) > 64 || len(r.Target) > 200 {
		return dErrors.New(dErrors.CodeValidation, "code or target is too long")
	}
	r.Code = strings.TrimSpace(r.Code)
	r.Target = strings.TrimSpace(r.Target)
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	if r.Target == "" {
		return dErrors.New(dErrors.CodeValidation, "target is required")
	}
	if r.BasePrice < 0 {
		return dErrors.New(dErrors.CodeValidation, "base_price must be non-negative")
	}
	return nil
}

// CreateRequest is the body of POST /admin/coupons.
type CreateRequest struct {
	Code                 string     `json:"code"`
	DiscountType         string     `json:"discount_type"`
	DiscountValue        float64    `json:"discount_value"`
	ExpiryDate           *time.Time `json:"expiry_date,omitempty"`
	MaxUses              *int       `json:"max_uses,omitempty"`
	MinAmount            float64    `json:"min_amount"`
	ApplicableCategories []string   `json:"applicable_categories"`

	parsedType models.DiscountType
}

func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.ApplicableCategories) > 100 {
		return dErrors.New(dErrors.CodeValidation, "too many applicable categories")
	}
	r.Code = strings.TrimSpace(r.Code)
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	discountType, err := models.ParseDiscountType(strings.ToLower(strings.TrimSpace(r.DiscountType)))
	if err != nil {
		return err
	}
	r.parsedType = discountType
	return nil
}

func (r *CreateRequest) Command() service.CreateCommand {
	var expiry time.Time
	if r.ExpiryDate != nil {
		expiry = *r.ExpiryDate
	}
	return service.CreateCommand{
		Code:                 r.Code,
		Discount:             models.Discount{Type: r.parsedType, Value: r.DiscountValue},
		ExpiryDate:           expiry,
		MaxUses:              r.MaxUses,
		MinAmount:            r.MinAmount,
		ApplicableCategories: r.ApplicableCategories,
	}
}
