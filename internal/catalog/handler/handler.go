package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/catalog/models"
	"kycgate/internal/catalog/service"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// HeaderAdminActor optionally names the operator behind an admin request.
const HeaderAdminActor = "X-Admin-Actor"

// Service is the catalog surface consumed by the HTTP layer.
type Service interface {
	ListServices(ctx context.Context, includeInactive bool) ([]*models.Service, error)
	GetService(ctx context.Context, serviceID id.ServiceID) (*models.Service, error)
	CreateService(ctx context.Context, cmd service.CreateServiceCommand) (*models.Service, error)
	SetServiceActive(ctx context.Context, serviceID id.ServiceID, active bool, actor string) (*models.Service, error)
	ListPlans(ctx context.Context) ([]*models.PricingPlan, error)
	CreatePlan(ctx context.Context, name string, includedServiceIDs []string, price float64, durationDays int) (*models.PricingPlan, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public catalog endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/services", h.HandleListServices)
	r.Get("/services/{id}", h.HandleGetService)
	r.Get("/plans", h.HandleListPlans)
}

// RegisterAdmin mounts catalog management endpoints. The caller is responsible
// for guarding the router with admin authentication.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/services", h.HandleAdminListServices)
	r.Post("/admin/services", h.HandleCreateService)
	r.Patch("/admin/services/{id}", h.HandleUpdateService)
	r.Post("/admin/plans", h.HandleCreatePlan)
}

// HandleListServices handles GET /services.
func (h *Handler) HandleListServices(w http.ResponseWriter, r *http.Request) {
	h.listServices(w, r, false)
}

// HandleAdminListServices handles GET /admin/services, inactive entries included.
func (h *Handler) HandleAdminListServices(w http.ResponseWriter, r *http.Request) {
	h.listServices(w, r, true)
}

func (h *Handler) listServices(w http.ResponseWriter, r *http.Request, includeInactive bool) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	services, err := h.service.ListServices(ctx, includeInactive)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list services",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toServiceList(services))
}

// HandleGetService handles GET /services/{id}.
func (h *Handler) HandleGetService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	serviceID, err := id.ParseServiceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	svc, err := h.service.GetService(ctx, serviceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toServiceResponse(svc))
}

// HandleListPlans handles GET /plans.
func (h *Handler) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	plans, err := h.service.ListPlans(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list plans",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPlanList(plans))
}

// HandleCreateService handles POST /admin/services.
func (h *Handler) HandleCreateService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CreateServiceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	svc, err := h.service.CreateService(ctx, req.Command())
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create service",
			"request_id", requestID,
			"service_key", req.ServiceKey,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "service created",
		"request_id", requestID,
		"service_id", svc.ID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, toServiceResponse(svc))
}

// HandleUpdateService handles PATCH /admin/services/{id}.
func (h *Handler) HandleUpdateService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	serviceID, err := id.ParseServiceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateServiceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	svc, err := h.service.SetServiceActive(ctx, serviceID, *req.Active, actorFrom(r))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to update service",
			"request_id", requestID,
			"service_id", serviceID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "service updated",
		"request_id", requestID,
		"service_id", serviceID.String(),
		"active", svc.Active,
	)
	httputil.WriteJSON(w, http.StatusOK, toServiceResponse(svc))
}

// HandleCreatePlan handles POST /admin/plans.
func (h *Handler) HandleCreatePlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreatePlanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	plan, err := h.service.CreatePlan(ctx, req.Name, req.IncludedServiceIDs, req.Price, req.DurationDays)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create plan",
			"request_id", requestID,
			"plan", req.Name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "plan created",
		"request_id", requestID,
		"plan", plan.Name,
		"services", len(plan.IncludedServiceIDs),
	)
	httputil.WriteJSON(w, http.StatusCreated, toPlanResponse(plan))
}

func actorFrom(r *http.Request) string {
	if actor := r.Header.Get(HeaderAdminActor); actor != "" {
		return actor
	}
	return "admin"
}
