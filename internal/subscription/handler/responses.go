package handler

import (
	"time"

	"kycgate/internal/subscription/models"
)

type SubscriptionResponse struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Category     string     `json:"category"`
	ExpiresAt    *time.Time `json:"expires_at"`
	NeverExpires bool       `json:"never_expires"`
	IsPromoted   bool       `json:"is_promoted"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
}

type SubscriptionListResponse struct {
	Subscriptions []SubscriptionResponse `json:"subscriptions"`
}

func toResponse(sub *models.Subscription, now time.Time) SubscriptionResponse {
	return SubscriptionResponse{
		ID:           sub.ID.String(),
		UserID:       sub.UserID.String(),
		Category:     sub.Category,
		ExpiresAt:    sub.ExpiresAt,
		NeverExpires: sub.NeverExpires(),
		IsPromoted:   sub.IsPromoted,
		RevokedAt:    sub.RevokedAt,
		Active:       sub.IsActive(now),
		CreatedAt:    sub.CreatedAt,
	}
}

func toListResponse(subs []*models.Subscription, now time.Time) SubscriptionListResponse {
	out := make([]SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toResponse(sub, now))
	}
	return SubscriptionListResponse{Subscriptions: out}
}
