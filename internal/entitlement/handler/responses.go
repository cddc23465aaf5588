package handler

import (
	"time"

	"kycgate/internal/entitlement"
	"kycgate/internal/entitlement/service"
	id "kycgate/pkg/domain"
)

type EntitlementsResponse struct {
	UserID      string    `json:"user_id"`
	ServiceIDs  []string  `json:"service_ids"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

type AccessResponse struct {
	ServiceID string                      `json:"service_id"`
	Allowed   bool                        `json:"allowed"`
	Target    *entitlement.PurchaseTarget `json:"purchase_target,omitempty"`
}

type QuoteResponse struct {
	ServiceID      string                     `json:"service_id"`
	Target         entitlement.PurchaseTarget `json:"purchase_target"`
	CouponCode     string                     `json:"coupon_code,omitempty"`
	BasePrice      float64                    `json:"base_price"`
	DiscountAmount float64                    `json:"discount_amount"`
	FinalPrice     float64                    `json:"final_price"`
}

func toEntitlementsResponse(userID id.UserID, set entitlement.ServiceSet, now time.Time) *EntitlementsResponse {
	ids := set.IDs()
	out := make([]string, 0, len(ids))
	for _, serviceID := range ids {
		out = append(out, serviceID.String())
	}
	return &EntitlementsResponse{UserID: userID.String(), ServiceIDs: out, EvaluatedAt: now}
}

func toAccessResponse(d *service.AccessDecision) *AccessResponse {
	return &AccessResponse{
		ServiceID: d.ServiceID.String(),
		Allowed:   d.Allowed,
		Target:    d.Target,
	}
}

func toQuoteResponse(q *service.CheckoutQuote) *QuoteResponse {
	return &QuoteResponse{
		ServiceID:      q.ServiceID.String(),
		Target:         q.Target,
		CouponCode:     q.CouponCode,
		BasePrice:      q.BasePrice,
		DiscountAmount: q.DiscountAmount,
		FinalPrice:     q.FinalPrice,
	}
}
