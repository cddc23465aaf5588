package audit

import (
	"context"
	"time"

	id "kycgate/pkg/domain"
)

// EventCategory drives retention and routing of audit events.
type EventCategory string

const (
	// CategoryCompliance covers grants, revocations and verification outcomes.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers denied access and admin overrides.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine catalog and coupon activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain services. It never carries raw PII: verification
// subjects are referenced by their keyed hash.
type Event struct {
	Category      EventCategory `json:"category"`
	Timestamp     time.Time     `json:"timestamp"`
	UserID        id.UserID     `json:"user_id"`
	Subject       string        `json:"subject,omitempty"`
	Action        string        `json:"action"`
	Decision      string        `json:"decision,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	RequestID     string        `json:"request_id,omitempty"`
	ActorID       string        `json:"actor_id,omitempty"`
	SubjectIDHash string        `json:"subject_id_hash,omitempty"`
}

type AuditEvent string

const (
	// Subscription events
	EventSubscriptionGranted  AuditEvent = "subscription_granted"
	EventSubscriptionExtended AuditEvent = "subscription_extended"
	EventSubscriptionRevoked  AuditEvent = "subscription_revoked"

	// Verification events
	EventVerificationExecuted AuditEvent = "verification_executed"
	EventVerificationDenied   AuditEvent = "verification_denied"

	// Coupon events
	EventCouponCreated  AuditEvent = "coupon_created"
	EventCouponRedeemed AuditEvent = "coupon_redeemed"

	// Catalog events
	EventServiceCreated AuditEvent = "service_created"
	EventServiceToggled AuditEvent = "service_toggled"
	EventPlanCreated    AuditEvent = "plan_created"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventSubscriptionGranted:  CategoryCompliance,
	EventSubscriptionExtended: CategoryCompliance,
	EventSubscriptionRevoked:  CategoryCompliance,
	EventVerificationExecuted: CategoryCompliance,

	EventVerificationDenied: CategorySecurity,
	EventServiceToggled:     CategorySecurity,

	EventCouponCreated:  CategoryOperations,
	EventCouponRedeemed: CategoryOperations,
	EventServiceCreated: CategoryOperations,
	EventPlanCreated:    CategoryOperations,
}

// Category returns the category of the event; unknown events are operations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists or forwards audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
