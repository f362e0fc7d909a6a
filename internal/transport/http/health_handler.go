package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rinze/analisis-mesas-2011/internal/config"
	"github.com/rinze/analisis-mesas-2011/internal/services"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts"
)

// HealthChecker is the part of services.HealthService the health endpoints use.
type HealthChecker interface {
	LivenessCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
}

// HealthHandler serves the health and version endpoints. None of them are
// rate limited.
type HealthHandler struct {
	checker HealthChecker
	logger  *slog.Logger
}

func NewHealthHandler(checker HealthChecker, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		checker: checker,
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// RegisterRoutes registers /healthz, /readyz and /version.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get(config.HealthEndpoint, h.Liveness)
	r.Get(config.ReadyEndpoint, h.Readiness)
	r.Get(config.VersionEndpoint, h.Version)
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.checker.LivenessCheck(r.Context()))
}

// Readiness answers 503 with the same body while the service cannot write
// reports.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	status := h.checker.ReadinessCheck(r.Context())
	if !status.IsReady() {
		h.logger.WarnContext(r.Context(), "readiness check failed", slog.Any("checks", status.Checks))
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, status)
}

// Version reports the build and the supported rules and layouts.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, contracts.Build())
}
