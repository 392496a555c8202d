package httptransport

import (
	"context"
	"net/http"
	"sort"
	"time"

	"regulus/pkg/platform/httputil"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

// HealthResponse lists failing components by name. Healthy components are
// omitted.
type HealthResponse struct {
	Status string            `json:"status"`
	Failed map[string]string `json:"failed,omitempty"`
}

// healthHandler runs every check and answers 503 if any fails. Check errors
// are logged, and only their names are exposed.
func healthHandler(checks map[string]HealthCheck, h *Handler) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := HealthResponse{Status: "ok"}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				h.logger.WarnContext(ctx, "health check failed", "component", name, "error", err)
				if resp.Failed == nil {
					resp.Failed = make(map[string]string)
				}
				resp.Failed[name] = "unavailable"
			}
		}
		if len(resp.Failed) > 0 {
			resp.Status = "degraded"
			httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}
