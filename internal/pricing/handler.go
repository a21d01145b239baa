package pricing

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/labportal/reagent-portal/internal/catalog"
	"github.com/labportal/reagent-portal/internal/platform/httpx"
	"github.com/labportal/reagent-portal/internal/rbac"
	"github.com/labportal/reagent-portal/internal/shared"
)

// Handler serves fixed-price maintenance and quoting endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers customer quoting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrdersOwn))
		r.Post("/quote", h.quote)
	})
}

// MountAdminRoutes registers per-customer price routes on the admin router.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPricingEdit))
		r.Get("/customers/{id}/prices", h.list)
		r.Get("/customers/{id}/catalog", h.preview)
		r.Put("/customers/{id}/prices/{productID}", h.set)
		r.Delete("/customers/{id}/prices/{productID}", h.remove)
	})
}

type setPriceRequest struct {
	Price decimal.Decimal `json:"price_usd"`
}

type quoteRequest struct {
	Lines []LineItem `json:"lines"`
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	var req quoteRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	for _, line := range req.Lines {
		if line.ProductID <= 0 || line.Qty <= 0 || line.Qty > MaxLineQty {
			httpx.RespondError(w, shared.Invalid("lines", fmt.Sprintf("need a product_id and a qty between 1 and %d", MaxLineQty)))
			return
		}
	}
	total, err := h.service.Total(r.Context(), actor.ID, req.Lines)
	if err != nil {
		h.fail(w, "quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, total)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	prices, err := h.service.ListFixedPrices(r.Context(), customerID)
	if err != nil {
		h.fail(w, "list fixed prices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, prices)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	products, err := h.service.PriceList(r.Context(), customerID, catalog.FilterFromQuery(r.URL.Query()))
	if err != nil {
		h.fail(w, "price list preview", err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) set(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	var req setPriceRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.SetFixedPrice(r.Context(), actor, customerID, productID, req.Price); err != nil {
		h.fail(w, "set fixed price", err)
		return
	}
	quote, err := h.service.ResolvePrice(r.Context(), customerID, productID)
	if err != nil {
		h.fail(w, "resolve price", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.RemoveFixedPrice(r.Context(), actor, customerID, productID); err != nil {
		h.fail(w, "remove fixed price", err)
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

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := httpx.PathID(r, name)
	if err != nil {
		httpx.RespondError(w, err)
		return 0, false
	}
	return id, true
}
