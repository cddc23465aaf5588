package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/verification/models"
	"kycgate/internal/verification/service"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/verification-mocks.go -package=mocks Service

// Service is the verification surface consumed by the HTTP layer.
type Service interface {
	Execute(ctx context.Context, userID id.UserID, serviceKey string, params map[string]string) (*models.Record, error)
	History(ctx context.Context, userID id.UserID, limit int) ([]*models.Record, error)
}

type Handler struct {
	service   Service
	logger    *slog.Logger
	executeMW []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithExecuteMiddleware wraps only the execute route, which is the one that
// reaches the paid provider.
func WithExecuteMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.executeMW = append(h.executeMW, mw...)
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the authenticated user routes.
func (h *Handler) Register(r chi.Router) {
	r.With(h.executeMW...).Post("/me/verifications/{serviceKey}", h.HandleExecute)
	r.Get("/me/verifications", h.HandleHistory)
}

// HandleExecute handles POST /me/verifications/{serviceKey}.
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	serviceKey := chi.URLParam(r, "serviceKey")

	req, ok := httputil.DecodeAndPrepare[ExecuteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.Execute(ctx, userID, serviceKey, req.Params)
	if err != nil {
		var denied *service.AccessDeniedError
		if errors.As(err, &denied) {
			h.logger.InfoContext(ctx, "verification denied",
				"request_id", requestID,
				"user_id", userID.String(),
				"service_key", serviceKey,
			)
			httputil.WriteJSON(w, http.StatusForbidden, &DeniedResponse{
				Error:            string(dErrors.CodeForbidden),
				ErrorDescription: dErrors.MessageOf(err),
				ServiceID:        denied.ServiceID.String(),
				Target:           denied.Target,
			})
			return
		}
		h.logger.WarnContext(ctx, "verification failed",
			"request_id", requestID,
			"user_id", userID.String(),
			"service_key", serviceKey,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification executed",
		"request_id", requestID,
		"user_id", userID.String(),
		"service_key", serviceKey,
		"classification", string(rec.Classification),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec, true))
}

// HandleHistory handles GET /me/verifications?limit=N.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	records, err := h.service.History(ctx, userID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list verification history",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toHistoryResponse(records))
}
