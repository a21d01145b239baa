package orders

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/labportal/reagent-portal/internal/platform/httpx"
	"github.com/labportal/reagent-portal/internal/rbac"
	"github.com/labportal/reagent-portal/internal/shared"
)

// Handler serves order endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers the customer order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrdersOwn, shared.PermOrdersManage))
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.detail)
		r.Get("/{id}/lines", h.lines)
		r.Post("/{id}/pending", h.step(h.service.MarkPending, "mark pending"))
		r.Post("/{id}/pr", h.step(h.service.GeneratePR, "generate pr"))
		r.Post("/{id}/submit", h.step(h.service.Submit, "submit order"))
		r.Post("/{id}/cancel", h.step(h.service.Cancel, "cancel order"))
	})
}

// MountAdminRoutes registers order management routes on the admin router.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrdersManage))
		r.Get("/orders", h.list)
		r.Put("/orders/{id}/status", h.override)
		r.Delete("/orders/{id}", h.delete)
	})
}

// FilterFromQuery reads order filters from URL query parameters.
func FilterFromQuery(q url.Values) ListFilter {
	customerID, _ := strconv.ParseInt(q.Get("customer_id"), 10, 64)
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return ListFilter{
		CustomerID: customerID,
		Status:     Status(q.Get("status")),
		Page:       page,
		PerPage:    perPage,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	result, err := h.service.List(r.Context(), actor, FilterFromQuery(r.URL.Query()))
	if err != nil {
		h.fail(w, "list orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.IdempotencyKey = r.Header.Get(shared.IdempotencyHeader)
	order, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		h.fail(w, "create order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	detail, err := h.service.Detail(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "order detail", err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) lines(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lines, err := h.service.Lines(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "order lines", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lines)
}

type stepFunc func(ctx context.Context, actor shared.Actor, id int64) (*Order, error)

func (h *Handler) step(fn stepFunc, op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := shared.ActorFromContext(r.Context())
		id, err := httpx.PathID(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		order, err := fn(r.Context(), actor, id)
		if err != nil {
			h.fail(w, op, err)
			return
		}
		httpx.JSON(w, http.StatusOK, order)
	}
}

func (h *Handler) override(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req OverrideStatusRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.AdminOverride(r.Context(), actor, id, req)
	if err != nil {
		h.fail(w, "override status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.fail(w, "delete order", err)
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
