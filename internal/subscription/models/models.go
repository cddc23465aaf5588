package models

import (
	"strings"
	"time"

	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// Subscription grants a user access to a plan (Category matches a plan name)
// or to a dynamic subcategory scope (Category matches service subcategories).
//
// A nil ExpiresAt means the grant never expires. Revoked grants are kept for
// history and are never active again.
type Subscription struct {
	ID         id.SubscriptionID `json:"id"`
	UserID     id.UserID         `json:"user_id"`
	Category   string            `json:"category"`
	ExpiresAt  *time.Time        `json:"expires_at,omitempty"`
	IsPromoted bool              `json:"is_promoted"`
	RevokedAt  *time.Time        `json:"revoked_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// NewSubscription validates a fresh grant. A set expiry must lie in the future.
func NewSubscription(subID id.SubscriptionID, userID id.UserID, category string, expiresAt *time.Time, promoted bool, now time.Time) (*Subscription, error) {
	category = strings.TrimSpace(category)
	if subID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "subscription id cannot be empty")
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user id cannot be empty")
	}
	if category == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "subscription category cannot be empty")
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "expiry must be in the future")
	}
	var expiry *time.Time
	if expiresAt != nil {
		t := *expiresAt
		expiry = &t
	}
	return &Subscription{
		ID:         subID,
		UserID:     userID,
		Category:   category,
		ExpiresAt:  expiry,
		IsPromoted: promoted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// NeverExpires reports whether the grant carries no expiry.
func (s *Subscription) NeverExpires() bool {
	return s.ExpiresAt == nil
}

// IsRevoked reports whether the grant was revoked.
func (s *Subscription) IsRevoked() bool {
	return s.RevokedAt != nil
}

// IsActive reports whether the grant counts at now.
func (s *Subscription) IsActive(now time.Time) bool {
	if s.IsRevoked() {
		return false
	}
	return s.NeverExpires() || s.ExpiresAt.After(now)
}

// Extend moves the expiry forward.
func (s *Subscription) Extend(newExpiry, now time.Time) error {
	if s.IsRevoked() {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot extend a revoked subscription")
	}
	if s.NeverExpires() {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot extend a subscription that never expires")
	}
	if !newExpiry.After(*s.ExpiresAt) {
		return dErrors.New(dErrors.CodeInvariantViolation, "new expiry must be later than the current expiry")
	}
	s.ExpiresAt = &newExpiry
	s.UpdatedAt = now
	return nil
}

// Revoke marks the grant revoked. It reports false when it already was.
func (s *Subscription) Revoke(now time.Time) bool {
	if s.IsRevoked() {
		return false
	}
	s.RevokedAt = &now
	s.UpdatedAt = now
	return true
}

// Clone returns a deep copy.
func (s *Subscription) Clone() *Subscription {
	c := *s
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		c.ExpiresAt = &t
	}
	if s.RevokedAt != nil {
		t := *s.RevokedAt
		c.RevokedAt = &t
	}
	return &c
}

// EarliestExpiry returns the soonest expiry among subscriptions active at now,
// or false when every active grant is open-ended (or none is active).
func EarliestExpiry(subs []*Subscription, now time.Time) (time.Time, bool) {
	var (
		earliest time.Time
		found    bool
	)
	for _, s := range subs {
		if !s.IsActive(now) || s.NeverExpires() {
			continue
		}
		if !found || s.ExpiresAt.Before(earliest) {
			earliest = *s.ExpiresAt
			found = true
		}
	}
	return earliest, found
}
