package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/entitlement"
	"kycgate/internal/entitlement/service"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/entitlement-mocks.go -package=mocks Service

// Service is the entitlement surface consumed by the HTTP layer.
type Service interface {
	Entitlements(ctx context.Context, userID id.UserID) (entitlement.ServiceSet, error)
	Access(ctx context.Context, userID id.UserID, serviceID id.ServiceID) (*service.AccessDecision, error)
	Quote(ctx context.Context, userID id.UserID, serviceID id.ServiceID, couponCode string) (*service.CheckoutQuote, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authenticated user routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/me/entitlements", h.HandleEntitlements)
	r.Get("/me/services/{id}/access", h.HandleAccess)
	r.Post("/me/checkout/quote", h.HandleQuote)
}

// HandleEntitlements handles GET /me/entitlements.
func (h *Handler) HandleEntitlements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}

	set, err := h.service.Entitlements(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to resolve entitlements",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEntitlementsResponse(userID, set, requestcontext.Now(ctx)))
}

// HandleAccess handles GET /me/services/{id}/access.
func (h *Handler) HandleAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}
	serviceID, err := id.ParseServiceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	decision, err := h.service.Access(ctx, userID, serviceID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to decide access",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"service_id", serviceID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAccessResponse(decision))
}

// HandleQuote handles POST /me/checkout/quote.
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[QuoteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	quote, err := h.service.Quote(ctx, userID, req.serviceID, req.CouponCode)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to quote checkout",
			"request_id", requestID,
			"user_id", userID.String(),
			"service_id", req.ServiceID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "checkout quoted",
		"request_id", requestID,
		"user_id", userID.String(),
		"service_id", req.ServiceID,
		"final_price", quote.FinalPrice,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, toQuoteResponse(quote))
}

func requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}
