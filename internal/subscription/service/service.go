package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"kycgate/internal/subscription/models"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/platform/tx"
	"kycgate/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, sub *models.Subscription) error
	Update(ctx context.Context, sub *models.Subscription) error
	FindByID(ctx context.Context, subID id.SubscriptionID) (*models.Subscription, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Subscription, error)
}

// Transactor runs a read-modify-write sequence atomically.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EntitlementInvalidator drops cached entitlement state for a user after a
// subscription change.
type EntitlementInvalidator interface {
	Invalidate(ctx context.Context, userID id.UserID) error
}

// Service grants, extends and revokes subscriptions.
type Service struct {
	store          Store
	tx             Transactor
	invalidator    EntitlementInvalidator
	logger         *slog.Logger
	auditPublisher audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithTransactor overrides the default in-process transactor, e.g. with a
// database transaction runner.
func WithTransactor(t Transactor) Option {
	return func(s *Service) {
		s.tx = t
	}
}

func WithEntitlementInvalidator(inv EntitlementInvalidator) Option {
	return func(s *Service) {
		s.invalidator = inv
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("subscription store is required")
	}
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewLocalTransactor()
	}
	return s, nil
}

// GrantCommand describes a new grant. A nil ExpiresAt grants open-ended access.
type GrantCommand struct {
	UserID    id.UserID
	Category  string
	ExpiresAt *time.Time
	Promoted  bool
	Actor     string
}

func (s *Service) Grant(ctx context.Context, cmd GrantCommand) (*models.Subscription, error) {
	sub, err := models.NewSubscription(id.SubscriptionID(uuid.New()), cmd.UserID, cmd.Category, cmd.ExpiresAt, cmd.Promoted, requestcontext.Now(ctx))
	if err != nil {
		return nil, toValidation(err)
	}
	if err := s.store.Create(ctx, sub); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "subscription already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create subscription")
	}

	s.afterMutation(ctx, sub, audit.EventSubscriptionGranted, cmd.Actor)
	return sub, nil
}

// Extend moves the expiry of an existing, expiring, non-revoked grant later.
func (s *Service) Extend(ctx context.Context, subID id.SubscriptionID, newExpiry time.Time, actor string) (*models.Subscription, error) {
	var sub *models.Subscription
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		sub, err = s.store.FindByID(ctx, subID)
		if err != nil {
			return translate(err, "failed to load subscription")
		}
		if err := sub.Extend(newExpiry, requestcontext.Now(ctx)); err != nil {
			return toValidation(err)
		}
		if err := s.store.Update(ctx, sub); err != nil {
			return translate(err, "failed to update subscription")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, sub, audit.EventSubscriptionExtended, actor)
	return sub, nil
}

// Revoke ends a grant. Revoking an already revoked grant returns it unchanged.
func (s *Service) Revoke(ctx context.Context, subID id.SubscriptionID, actor string) (*models.Subscription, error) {
	var (
		sub     *models.Subscription
		changed bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		sub, err = s.store.FindByID(ctx, subID)
		if err != nil {
			return translate(err, "failed to load subscription")
		}
		if changed = sub.Revoke(requestcontext.Now(ctx)); !changed {
			return nil
		}
		if err := s.store.Update(ctx, sub); err != nil {
			return translate(err, "failed to update subscription")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.afterMutation(ctx, sub, audit.EventSubscriptionRevoked, actor)
	}
	return sub, nil
}

// ListForUser returns every grant of the user, newest first.
func (s *Service) ListForUser(ctx context.Context, userID id.UserID) ([]*models.Subscription, error) {
	subs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list subscriptions")
	}
	return subs, nil
}

// ListActive returns the grants of the user that count at the request time.
func (s *Service) ListActive(ctx context.Context, userID id.UserID) ([]*models.Subscription, error) {
	subs, err := s.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	active := make([]*models.Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.IsActive(now) {
			active = append(active, sub)
		}
	}
	return active, nil
}

func (s *Service) afterMutation(ctx context.Context, sub *models.Subscription, event audit.AuditEvent, actor string) {
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, sub.UserID); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to invalidate entitlements",
				"user_id", sub.UserID.String(),
				"error", err,
			)
		}
	}

	attrs := []any{
		"subject", sub.Category,
		"subscription_id", sub.ID.String(),
		"promoted", sub.IsPromoted,
	}
	if actor != "" {
		attrs = append(attrs, "actor_id", actor)
	}
	if sub.ExpiresAt != nil {
		attrs = append(attrs, "expires_at", sub.ExpiresAt.Format(time.RFC3339))
	}
	if err := audit.Log(ctx, s.logger, s.auditPublisher, event, audit.Event{UserID: sub.UserID}, attrs...); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"event", string(event),
			"error", err,
		)
	}
}

func toValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	return err
}

func translate(err error, internal string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "subscription not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internal)
}
