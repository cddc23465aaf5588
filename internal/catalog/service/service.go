package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"kycgate/internal/catalog/models"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/requestcontext"
)

type ServiceStore interface {
	Create(ctx context.Context, svc *models.Service) error
	Update(ctx context.Context, svc *models.Service) error
	FindByID(ctx context.Context, serviceID id.ServiceID) (*models.Service, error)
	FindByKey(ctx context.Context, serviceKey string) (*models.Service, error)
	List(ctx context.Context) ([]*models.Service, error)
}

type PlanStore interface {
	Create(ctx context.Context, plan *models.PricingPlan) error
	FindByName(ctx context.Context, name string) (*models.PricingPlan, error)
	List(ctx context.Context) ([]*models.PricingPlan, error)
}

// ChangeListener is told when the catalog changes shape so cached
// entitlement sets can be dropped.
type ChangeListener interface {
	CatalogChanged(ctx context.Context)
}

// Service manages catalog services and pricing plans.
type Service struct {
	services       ServiceStore
	plans          PlanStore
	logger         *slog.Logger
	auditPublisher audit.Publisher
	listener       ChangeListener
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

func WithChangeListener(listener ChangeListener) Option {
	return func(s *Service) {
		s.listener = listener
	}
}

func New(services ServiceStore, plans PlanStore, opts ...Option) (*Service, error) {
	if services == nil {
		return nil, errors.New("service store is required")
	}
	if plans == nil {
		return nil, errors.New("plan store is required")
	}
	s := &Service{services: services, plans: plans}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateServiceCommand carries admin input for a new catalog entry.
type CreateServiceCommand struct {
	ID          id.ServiceID
	Name        string
	Category    string
	Subcategory string
	Price       float64
	ServiceKey  string
}

// ListServices returns the catalog; inactive entries are included only on request.
func (s *Service) ListServices(ctx context.Context, includeInactive bool) ([]*models.Service, error) {
	all, err := s.services.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list services")
	}
	if includeInactive {
		return all, nil
	}
	active := make([]*models.Service, 0, len(all))
	for _, svc := range all {
		if svc.Active {
			active = append(active, svc)
		}
	}
	return active, nil
}

func (s *Service) GetService(ctx context.Context, serviceID id.ServiceID) (*models.Service, error) {
	svc, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		return nil, translate(err, "service not found", "failed to load service")
	}
	return svc, nil
}

// FindByKey resolves the key used in verification URLs.
func (s *Service) FindByKey(ctx context.Context, serviceKey string) (*models.Service, error) {
	serviceKey = strings.TrimSpace(serviceKey)
	if serviceKey == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "service key is required")
	}
	svc, err := s.services.FindByKey(ctx, serviceKey)
	if err != nil {
		return nil, translate(err, "service not found", "failed to load service")
	}
	return svc, nil
}

func (s *Service) CreateService(ctx context.Context, cmd CreateServiceCommand) (*models.Service, error) {
	serviceID := cmd.ID
	if serviceID.IsNil() {
		serviceID = id.NewServiceID()
	}
	svc, err := models.NewService(serviceID, cmd.Name, cmd.Category, cmd.Subcategory, cmd.Price, cmd.ServiceKey, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.services.Create(ctx, svc); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "service id and key must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create service")
	}

	s.logAudit(ctx, audit.EventServiceCreated,
		"subject", svc.ID.String(),
		"service_key", svc.ServiceKey,
	)
	s.notifyChanged(ctx)
	return svc, nil
}

// SetServiceActive toggles catalog visibility.
func (s *Service) SetServiceActive(ctx context.Context, serviceID id.ServiceID, active bool, actor string) (*models.Service, error) {
	svc, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		return nil, translate(err, "service not found", "failed to load service")
	}
	if svc.Active == active {
		return svc, nil
	}
	svc.Active = active
	if err := s.services.Update(ctx, svc); err != nil {
		return nil, translate(err, "service not found", "failed to update service")
	}

	decision := "deactivated"
	if active {
		decision = "activated"
	}
	s.logAudit(ctx, audit.EventServiceToggled,
		"subject", svc.ID.String(),
		"decision", decision,
		"actor_id", actor,
	)
	return svc, nil
}

func (s *Service) ListPlans(ctx context.Context) ([]*models.PricingPlan, error) {
	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list plans")
	}
	return plans, nil
}

// CreatePlan requires every included service to exist.
func (s *Service) CreatePlan(ctx context.Context, name string, includedServiceIDs []string, price float64, durationDays int) (*models.PricingPlan, error) {
	plan, err := models.NewPricingPlan(name, includedServiceIDs, price, durationDays, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	for _, serviceID := range plan.IncludedServiceIDs {
		if _, err := s.services.FindByID(ctx, serviceID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeValidation, "plan includes unknown service "+serviceID.String())
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load service")
		}
	}

	if err := s.plans.Create(ctx, plan); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "plan name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create plan")
	}

	s.logAudit(ctx, audit.EventPlanCreated, "subject", plan.Name)
	s.notifyChanged(ctx)
	return plan, nil
}

func (s *Service) notifyChanged(ctx context.Context) {
	if s.listener != nil {
		s.listener.CatalogChanged(ctx)
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	if err := audit.Log(ctx, s.logger, s.auditPublisher, event, audit.Event{}, attributes...); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"event", string(event),
			"error", err,
		)
	}
}

func translate(err error, notFound, internal string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFound)
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeConflict, "service key must be unique")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internal)
}
