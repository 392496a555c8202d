package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"regulus/pkg/platform/middleware/admin"
	"regulus/pkg/platform/middleware/auth"
	"regulus/pkg/platform/middleware/device"
	"regulus/pkg/platform/middleware/metadata"
	"regulus/pkg/platform/middleware/request"
	"regulus/pkg/platform/middleware/requesttime"
)

// RouterConfig carries what NewRouter needs besides the handler.
type RouterConfig struct {
	Sessions   auth.SessionValidator
	Revocation auth.TokenRevocationChecker
	// Metrics is served at /metrics when set.
	Metrics http.Handler
	// OpsToken guards /metrics when non-empty.
	OpsToken string
	// Checks back /healthz, keyed by component name.
	Checks map[string]HealthCheck
	Logger *slog.Logger
}

// NewRouter mounts h under /v1 behind the session middleware. /healthz and
// /metrics sit outside it.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(request.Logger(logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(device.Fingerprint)

	r.Get("/healthz", healthHandler(cfg.Checks, h))
	if cfg.Metrics != nil {
		if cfg.OpsToken != "" {
			r.With(admin.RequireOpsToken(cfg.OpsToken, logger)).Method(http.MethodGet, "/metrics", cfg.Metrics)
		} else {
			r.Method(http.MethodGet, "/metrics", cfg.Metrics)
		}
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(auth.RequireAuth(cfg.Sessions, cfg.Revocation, logger))
		h.Register(v1)
	})
	return r
}
