package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	catalog "kycgate/internal/catalog/models"
	"kycgate/internal/entitlement"
	"kycgate/internal/verification"
	"kycgate/internal/verification/metrics"
	"kycgate/internal/verification/models"
	"kycgate/internal/verification/provider"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/requestcontext"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// AccessDeniedError carries what the caller would need to buy.
type AccessDeniedError struct {
	ServiceID id.ServiceID
	Target    *entitlement.PurchaseTarget
}

func (e *AccessDeniedError) Error() string {
	return "no entitlement for service " + e.ServiceID.String()
}

// Service runs verifications for entitled users and keeps their history.
type Service struct {
	catalog        ServiceCatalog
	access         AccessChecker
	provider       Provider
	store          Store
	classifier     *verification.Classifier
	hasher         *verification.SubjectHasher
	historyLimit   int
	logger         *slog.Logger
	auditPublisher audit.Publisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithClassifier(c *verification.Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.classifier = c
		}
	}
}

func WithSubjectHasher(h *verification.SubjectHasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithHistoryLimit sets the page size used when callers pass no limit.
func WithHistoryLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 && limit <= MaxHistoryLimit {
			s.historyLimit = limit
		}
	}
}

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

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(catalogSource ServiceCatalog, access AccessChecker, upstream Provider, store Store, opts ...Option) (*Service, error) {
	if catalogSource == nil {
		return nil, errors.New("service catalog is required")
	}
	if access == nil {
		return nil, errors.New("access checker is required")
	}
	if upstream == nil {
		return nil, errors.New("provider is required")
	}
	if store == nil {
		return nil, errors.New("history store is required")
	}
	hasher, err := verification.NewSubjectHasher(nil)
	if err != nil {
		return nil, err
	}
	s := &Service{
		catalog:      catalogSource,
		access:       access,
		provider:     upstream,
		store:        store,
		classifier:   verification.NewClassifier(),
		hasher:       hasher,
		historyLimit: DefaultHistoryLimit,
		tracer:       otel.Tracer("kycgate/verification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Execute runs serviceKey for userID and records the classified outcome.
// Provider transport failures are returned as errors and leave no record.
func (s *Service) Execute(ctx context.Context, userID id.UserID, serviceKey string, params map[string]string) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Execute",
		trace.WithAttributes(attribute.String("service_key", serviceKey)))
	defer span.End()

	svc, err := s.catalog.FindByKey(ctx, serviceKey)
	if err != nil {
		return nil, err
	}
	subjectHash := s.hasher.Hash(params)

	decision, err := s.access.Access(ctx, userID, svc.ID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		s.metrics.IncrementDenied(svc.ServiceKey)
		s.logAudit(ctx, audit.EventVerificationDenied, userID,
			"subject", svc.ID.String(),
			"decision", "denied",
			"reason", "no_entitlement",
			"subject_id_hash", subjectHash,
		)
		span.SetAttributes(attribute.Bool("allowed", false))
		return nil, dErrors.Wrap(&AccessDeniedError{ServiceID: svc.ID, Target: decision.Target},
			dErrors.CodeForbidden, "purchase required to use "+svc.Name)
	}

	outcome, err := s.call(ctx, svc, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("classification", string(outcome.Classification)))

	rec, err := models.NewRecord(
		id.VerificationID(uuid.New()),
		userID,
		svc.ID,
		svc.ServiceKey,
		subjectHash,
		outcome,
		requestcontext.Device(ctx),
		requestcontext.Now(ctx),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build verification record")
	}
	if err := s.store.Save(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "verification record already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification record")
	}

	s.metrics.IncrementOutcome(svc.ServiceKey, string(outcome.Classification), string(outcome.Cause))
	s.logAudit(ctx, audit.EventVerificationExecuted, userID,
		"subject", svc.ID.String(),
		"decision", string(outcome.Classification),
		"reason", outcome.Reason,
		"subject_id_hash", subjectHash,
		"verification_id", rec.ID.String(),
	)
	return rec, nil
}

func (s *Service) call(ctx context.Context, svc *catalog.Service, params map[string]string) (verification.Outcome, error) {
	resp, err := s.provider.Execute(ctx, svc.ServiceKey, params)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "verification provider call failed",
				"service_key", svc.ServiceKey,
				"error", err,
			)
		}
		if errors.Is(err, provider.ErrUnavailable) {
			return verification.Outcome{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "verification provider is unavailable")
		}
		return verification.Outcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "verification provider call failed")
	}
	return s.classifier.Classify(verification.DecodeEnvelope(resp.Body)), nil
}

// History lists the user's records, newest first. A non-positive limit uses
// the configured default; larger limits are capped.
func (s *Service) History(ctx context.Context, userID id.UserID, limit int) ([]*models.Record, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	records, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list verification history")
	}
	return records, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, userID id.UserID, attributes ...any) {
	if err := audit.Log(ctx, s.logger, s.auditPublisher, event, audit.Event{UserID: userID}, attributes...); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"event", string(event),
			"error", err,
		)
	}
}
