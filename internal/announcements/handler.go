package announcements

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/labportal/reagent-portal/internal/platform/httpx"
	"github.com/labportal/reagent-portal/internal/rbac"
	"github.com/labportal/reagent-portal/internal/shared"
)

// Handler serves announcement endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers the announcement feed.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermAnnouncementsView)).Get("/", h.list)
}

// MountAdminRoutes registers announcement maintenance on the admin router.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAnnouncementsEdit))
		r.Post("/announcements", h.create)
		r.Post("/announcements/{id}/deactivate", h.deactivate)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListActive(r.Context())
	if err != nil {
		h.fail(w, "list announcements", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateAnnouncementRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	a, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		h.fail(w, "create announcement", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.Deactivate(r.Context(), actor, id); err != nil {
		h.fail(w, "deactivate announcement", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.IsServerError(err) && h.logger != nil {
		h.logger.Error(op+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
