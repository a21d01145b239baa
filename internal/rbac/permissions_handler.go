package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/labportal/reagent-portal/internal/platform/httpx"
	"github.com/labportal/reagent-portal/internal/shared"
)

// PermissionsHandler exposes permission listings.
type PermissionsHandler struct {
	logger  *slog.Logger
	service *Service
	rbac    Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated())
		r.Get("/mine", h.mine)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCustomersEdit))
		r.Get("/", h.listPermissions)
	})
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.ListPermissions(r.Context()))
}

func (h *PermissionsHandler) mine(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	perms, err := h.service.EffectivePermissions(r.Context(), actor)
	if err != nil {
		h.logger.Error("effective permissions", slog.Any("error", err))
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	httpx.JSON(w, http.StatusOK, Grant{Role: actor.Role, Permissions: perms})
}
