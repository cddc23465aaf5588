package handler

import (
	"strings"

	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// QuoteRequest is the body of POST /me/checkout/quote.
type QuoteRequest struct {
	ServiceID  string `json:"service_id"`
	CouponCode string `json:"coupon_code,omitempty"`

	serviceID id.ServiceID
}

func (r *QuoteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ServiceID = strings.TrimSpace(r.ServiceID)
	r.CouponCode = strings.TrimSpace(r.CouponCode)
	if r.ServiceID == "" {
		return dErrors.New(dErrors.CodeValidation, "service_id is required")
	}
	if len(r.CouponCode) > 64 {
		return dErrors.New(dErrors.CodeValidation, "coupon_code is too long")
	}
	serviceID, err := id.ParseServiceID(r.ServiceID)
	if err != nil {
		return err
	}
	r.serviceID = serviceID
	return nil
}
