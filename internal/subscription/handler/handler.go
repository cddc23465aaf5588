package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/subscription/models"
	"kycgate/internal/subscription/service"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

const headerAdminActor = "X-Admin-Actor"

type Service interface {
	Grant(ctx context.Context, cmd service.GrantCommand) (*models.Subscription, error)
	Extend(ctx context.Context, subID id.SubscriptionID, newExpiry time.Time, actor string) (*models.Subscription, error)
	Revoke(ctx context.Context, subID id.SubscriptionID, actor string) (*models.Subscription, error)
	ListForUser(ctx context.Context, userID id.UserID) ([]*models.Subscription, error)
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
	r.Get("/me/subscriptions", h.HandleListMine)
}

// RegisterAdmin mounts subscription management routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/users/{userID}/subscriptions", h.HandleListForUser)
	r.Post("/admin/users/{userID}/subscriptions", h.HandleGrant)
	r.Patch("/admin/subscriptions/{id}", h.HandleExtend)
	r.Delete("/admin/subscriptions/{id}", h.HandleRevoke)
}

// HandleListMine handles GET /me/subscriptions.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	h.writeList(w, r, userID)
}

// HandleListForUser handles GET /admin/users/{userID}/subscriptions.
func (h *Handler) HandleListForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.writeList(w, r, userID)
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, userID id.UserID) {
	ctx := r.Context()
	subs, err := h.service.ListForUser(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list subscriptions",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(subs, requestcontext.Now(ctx)))
}

// HandleGrant handles POST /admin/users/{userID}/subscriptions.
func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[GrantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sub, err := h.service.Grant(ctx, service.GrantCommand{
		UserID:    userID,
		Category:  req.Category,
		ExpiresAt: req.ExpiresAt,
		Promoted:  req.Promoted,
		Actor:     actorFrom(r),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to grant subscription",
			"request_id", requestID,
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "subscription granted",
		"request_id", requestID,
		"user_id", userID.String(),
		"subscription_id", sub.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, toResponse(sub, requestcontext.Now(ctx)))
}

// HandleExtend handles PATCH /admin/subscriptions/{id}.
func (h *Handler) HandleExtend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	subID, err := id.ParseSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ExtendRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sub, err := h.service.Extend(ctx, subID, *req.ExpiresAt, actorFrom(r))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to extend subscription",
			"request_id", requestID,
			"subscription_id", subID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(sub, requestcontext.Now(ctx)))
}

// HandleRevoke handles DELETE /admin/subscriptions/{id}.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	subID, err := id.ParseSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sub, err := h.service.Revoke(ctx, subID, actorFrom(r))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to revoke subscription",
			"request_id", requestID,
			"subscription_id", subID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(sub, requestcontext.Now(ctx)))
}

func actorFrom(r *http.Request) string {
	if actor := r.Header.Get(headerAdminActor); actor != "" {
		return actor
	}
	return "admin"
}
