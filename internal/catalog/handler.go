package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/labportal/reagent-portal/internal/platform/httpx"
	"github.com/labportal/reagent-portal/internal/rbac"
	"github.com/labportal/reagent-portal/internal/shared"
)

// PriceLister resolves catalog prices for a customer.
type PriceLister interface {
	PriceList(ctx context.Context, customerID int64, f Filter) ([]PricedProduct, error)
}

// Handler serves catalog endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	prices  PriceLister
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, prices PriceLister, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, prices: prices, rbac: rbac}
}

// MountRoutes registers the catalog browsing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCatalogView))
		r.Get("/", h.browse)
		r.Get("/options", h.options)
		r.Get("/{code}", h.show)
	})
}

// MountAdminRoutes registers catalog maintenance routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCatalogEdit))
		r.Get("/", h.list)
		r.Put("/", h.upsert)
		r.Delete("/{code}", h.delete)
	})
}

// FilterFromQuery reads catalog filters from URL query parameters.
func FilterFromQuery(q url.Values) Filter {
	return Filter{
		Section:  Section(q.Get("section")),
		Analyser: Analyser(q.Get("analyser")),
		KitSize:  q.Get("kit_size"),
		Search:   q.Get("search"),
	}
}

func (h *Handler) browse(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	products, err := h.prices.PriceList(r.Context(), actor.ID, FilterFromQuery(r.URL.Query()))
	if err != nil {
		h.fail(w, "price list", err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) options(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"sections":  Sections,
		"analysers": Analysers,
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context(), FilterFromQuery(r.URL.Query()))
	if err != nil {
		h.fail(w, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertProductRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	result, err := h.service.Upsert(r.Context(), actor, req)
	if err != nil {
		h.fail(w, "upsert product", err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, result)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.DeleteByCode(r.Context(), actor, chi.URLParam(r, "code")); err != nil {
		h.fail(w, "delete product", err)
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
