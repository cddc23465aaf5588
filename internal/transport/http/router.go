// Package httptransport assembles the gateway's chi router from the module
// handlers and the shared middleware chain.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kycgate/pkg/platform/httputil"
	adminmw "kycgate/pkg/platform/middleware/admin"
	authmw "kycgate/pkg/platform/middleware/auth"
	"kycgate/pkg/platform/middleware/metadata"
	"kycgate/pkg/platform/middleware/request"
	"kycgate/pkg/platform/middleware/requesttime"
)

const healthCheckTimeout = 2 * time.Second

// Registrar mounts routes that share the router's auth rules.
type Registrar interface {
	Register(r chi.Router)
}

// AdminRegistrar mounts operator routes under the admin token check.
type AdminRegistrar interface {
	RegisterAdmin(r chi.Router)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config lists everything the router mounts.
type Config struct {
	Logger     *slog.Logger
	Validator  authmw.JWTValidator
	AdminToken string

	// Public routes need no credentials.
	Public []Registrar
	// Authenticated routes run behind bearer token validation.
	Authenticated []Registrar
	Admin         []AdminRegistrar

	HealthChecks map[string]HealthCheck
	// MetricsHandler defaults to the Prometheus default registry.
	MetricsHandler http.Handler
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewRouter builds the HTTP handler for the gateway.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(request.Logger(logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/health", handleHealth(cfg.HealthChecks, logger))
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	for _, reg := range cfg.Public {
		reg.Register(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(cfg.Validator, logger))
		for _, reg := range cfg.Authenticated {
			reg.Register(r)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(cfg.AdminToken, logger))
		for _, reg := range cfg.Admin {
			reg.RegisterAdmin(r)
		}
	})

	return r
}

func handleHealth(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for name, check := range checks {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(checks))
			}
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
