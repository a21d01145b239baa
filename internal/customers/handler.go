package customers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/labportal/reagent-portal/internal/platform/httpx"
	"github.com/labportal/reagent-portal/internal/rbac"
	"github.com/labportal/reagent-portal/internal/shared"
)

// Handler serves customer administration endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountProfileRoutes lets a signed-in account read its own record.
func (h *Handler) MountProfileRoutes(r chi.Router) {
	r.With(h.rbac.RequireAuthenticated()).Get("/", h.profile)
}

// MountAdminRoutes registers customer routes on the admin router.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCustomersView))
		r.Get("/customers", h.list)
		r.Get("/customers/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCustomersEdit))
		r.Post("/customers", h.create)
		r.Patch("/customers/{id}", h.update)
		r.Post("/customers/{id}/password", h.resetPassword)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	includeAdmin, _ := strconv.ParseBool(r.URL.Query().Get("include_admin"))
	out, err := h.service.List(r.Context(), ListCustomersRequest{
		Search:       r.URL.Query().Get("search"),
		IncludeAdmin: includeAdmin,
	})
	if err != nil {
		h.fail(w, "list customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	c, err := h.service.Get(r.Context(), actor.ID)
	if err != nil {
		h.fail(w, "get profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	c, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		h.fail(w, "create customer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateCustomerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	c, err := h.service.Update(r.Context(), actor, id, req)
	if err != nil {
		h.fail(w, "update customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ResetPasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.ResetPassword(r.Context(), actor, id, req); err != nil {
		h.fail(w, "reset password", err)
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
