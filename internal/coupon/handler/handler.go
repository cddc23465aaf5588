package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/coupon/models"
	"kycgate/internal/coupon/service"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/coupon-mocks.go -package=mocks Service
type Service interface {
	Create(ctx context.Context, cmd service.CreateCommand) (*models.Coupon, error)
	Get(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context) ([]*models.Coupon, error)
	Quote(ctx context.Context, code, target string, basePrice float64) (*models.Quote, error)
	Redeem(ctx context.Context, code string) (*models.Coupon, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authenticated coupon routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/coupons/validate", h.HandleValidate)
}

// RegisterAdmin mounts coupon management routes. Redemption is called by the
// payment integration once a purchase is captured.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/coupons", h.HandleList)
	r.Post("/admin/coupons", h.HandleCreate)
	r.Get("/admin/coupons/{code}", h.HandleGet)
	r.Post("/admin/coupons/{code}/redeem", h.HandleRedeem)
}

// HandleValidate handles POST /coupons/validate.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[ValidateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	quote, err := h.service.Quote(ctx, req.Code, req.Target, req.BasePrice)
	if err != nil {
		h.logger.InfoContext(ctx, "coupon rejected",
			"request_id", requestID,
			"user_id", userID.String(),
			"reason", dErrors.MessageOf(err),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quote)
}

// HandleCreate handles POST /admin/coupons.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	cmd := req.Command()
	cmd.Actor = r.Header.Get("X-Admin-Actor")

	c, err := h.service.Create(ctx, cmd)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create coupon",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(c))
}

// HandleList handles GET /admin/coupons.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]CouponResponse, 0, len(coupons))
	for _, c := range coupons {
		out = append(out, toResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, CouponListResponse{Coupons: out})
}

// HandleGet handles GET /admin/coupons/{code}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(c))
}

// HandleRedeem handles POST /admin/coupons/{code}/redeem.
func (h *Handler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.service.Redeem(ctx, chi.URLParam(r, "code"))
	if err != nil {
		h.logger.WarnContext(ctx, "coupon redemption failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(c))
}
