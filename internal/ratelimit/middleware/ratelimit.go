// Package middleware enforces per-user request quotas on chi routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"kycgate/internal/ratelimit/metrics"
	"kycgate/internal/ratelimit/models"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// BucketStore counts requests per key over a sliding window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error)
}

type Middleware struct {
	store    BucketStore
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(mw *Middleware) {
		mw.metrics = m
	}
}

func New(store BucketStore, logger *slog.Logger, opts ...Option) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Middleware{store: store, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.disabled = true
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// PerUser limits authenticated callers by user ID. It must run after the auth
// middleware. Store failures let the request through.
func (m *Middleware) PerUser(class models.EndpointClass, limit models.Limit) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m.disabled || !limit.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := requestcontext.UserID(ctx)
			if userID.IsNil() {
				next.ServeHTTP(w, r)
				return
			}

			result, err := m.store.Allow(ctx, models.NewUserKey(class, userID.String()), limit)
			if err != nil {
				m.metrics.IncrementStoreError(string(class))
				m.logger.ErrorContext(ctx, "failed to check user rate limit",
					"error", err,
					"class", string(class),
					"user_id", userID.String(),
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			m.metrics.IncrementDecision(string(class), result.Allowed)
			addRateLimitHeaders(w, result)
			if !result.Allowed {
				m.logger.WarnContext(ctx, "user rate limit exceeded",
					"class", string(class),
					"user_id", userID.String(),
					"retry_after", result.RetryAfter,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUserRateLimitExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeUserRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:            "rate_limit_exceeded",
		ErrorDescription: "request quota exceeded, try again later",
		Limit:            result.Limit,
		Remaining:        result.Remaining,
		ResetAt:          result.ResetAt,
		RetryAfter:       result.RetryAfter,
	})
}
