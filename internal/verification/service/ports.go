package service

import (
	"context"

	catalog "kycgate/internal/catalog/models"
	entitlementsvc "kycgate/internal/entitlement/service"
	"kycgate/internal/verification/models"
	"kycgate/internal/verification/provider"
	id "kycgate/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/ports-mocks.go -package=mocks

// ServiceCatalog resolves the key in the verification URL.
type ServiceCatalog interface {
	FindByKey(ctx context.Context, serviceKey string) (*catalog.Service, error)
}

// AccessChecker decides whether the caller may run a service.
type AccessChecker interface {
	Access(ctx context.Context, userID id.UserID, serviceID id.ServiceID) (*entitlementsvc.AccessDecision, error)
}

// Provider executes a check upstream.
type Provider interface {
	Execute(ctx context.Context, serviceKey string, params map[string]string) (*provider.Response, error)
}

// Store persists verification history.
type Store interface {
	Save(ctx context.Context, rec *models.Record) error
	ListByUser(ctx context.Context, userID id.UserID, limit int) ([]*models.Record, error)
}
