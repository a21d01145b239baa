package export

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/labportal/reagent-portal/internal/platform/httpx"
	"github.com/labportal/reagent-portal/internal/rbac"
	"github.com/labportal/reagent-portal/internal/shared"
)

// Handler serves CSV downloads.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountAdminRoutes registers GET /export/{kind}.csv on the admin router.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermExportRun)).Get("/export/{kind}.csv", h.download)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	kind := Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		httpx.RespondError(w, ErrUnknownKind)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, kind))
	w.WriteHeader(http.StatusOK)
	// Headers are already sent; a failure can only be logged.
	if err := h.service.Write(r.Context(), w, kind); err != nil && h.logger != nil {
		h.logger.Error("csv export failed", slog.String("kind", string(kind)), slog.Any("error", err))
	}
}
