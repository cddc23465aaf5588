package main

import (
	"context"
	"sync/atomic"

	entsvc "kycgate/internal/entitlement/service"
	id "kycgate/pkg/domain"
)

// entitlementHooks forwards catalog and subscription change notifications to
// the entitlement service once it has been constructed.
type entitlementHooks struct {
	target atomic.Pointer[entsvc.Service]
}

func (h *entitlementHooks) bind(svc *entsvc.Service) {
	h.target.Store(svc)
}

func (h *entitlementHooks) CatalogChanged(ctx context.Context) {
	if svc := h.target.Load(); svc != nil {
		svc.CatalogChanged(ctx)
	}
}

func (h *entitlementHooks) Invalidate(ctx context.Context, userID id.UserID) error {
	if svc := h.target.Load(); svc != nil {
		return svc.Invalidate(ctx, userID)
	}
	return nil
}
