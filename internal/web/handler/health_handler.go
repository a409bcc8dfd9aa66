package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/freekieb7/neurovault-users/internal/health"
	"github.com/freekieb7/neurovault-users/internal/web/middleware"
	"github.com/freekieb7/neurovault-users/internal/web/response"
)

type HealthHandler struct {
	HealthChecker *health.Checker
}

func NewHealthHandler(healthChecker *health.Checker) HealthHandler {
	return HealthHandler{
		HealthChecker: healthChecker,
	}
}

// RegisterRoutes sets up Kubernetes-compatible health endpoints
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	noCache := middleware.NoCache()

	mux.Handle("/health", noCache(h.probe(10*time.Second, h.HealthChecker.CheckHealth)))
	mux.Handle("/health/live", noCache(h.probe(3*time.Second, h.HealthChecker.CheckLiveness)))
	mux.Handle("/health/ready", noCache(h.probe(5*time.Second, h.HealthChecker.CheckReadiness)))
}

// probe answers 503 when check reports the service unhealthy.
func (h *HealthHandler) probe(timeout time.Duration, check func(context.Context) health.HealthStatus) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w, http.MethodGet)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		status := check(ctx)

		httpStatus := http.StatusOK
		if status.Status == health.StatusUnhealthy {
			httpStatus = http.StatusServiceUnavailable
		}

		response.JSONResponse(w, r, httpStatus, status)
	})
}
