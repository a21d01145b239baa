package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/labportal/reagent-portal/internal/platform/httpx"
	"github.com/labportal/reagent-portal/internal/rbac"
	"github.com/labportal/reagent-portal/internal/shared"
)

// Handler serves the admin dashboard.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountAdminRoutes registers GET /dashboard on the admin router.
// ?refresh=1 discards cached stats first.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermDashboardView)).Get("/dashboard", h.stats)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "1" {
		if err := h.service.Refresh(r.Context()); err != nil && h.logger != nil {
			h.logger.Warn("dashboard refresh failed", slog.Any("error", err))
		}
	}
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		if h.logger != nil {
			h.logger.Error("dashboard stats failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
