package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/labportal/reagent-portal/internal/announcements"
	"github.com/labportal/reagent-portal/internal/audit"
	"github.com/labportal/reagent-portal/internal/auth"
	"github.com/labportal/reagent-portal/internal/catalog"
	"github.com/labportal/reagent-portal/internal/customers"
	"github.com/labportal/reagent-portal/internal/dashboard"
	"github.com/labportal/reagent-portal/internal/export"
	"github.com/labportal/reagent-portal/internal/observability"
	"github.com/labportal/reagent-portal/internal/orders"
	"github.com/labportal/reagent-portal/internal/pricing"
	"github.com/labportal/reagent-portal/internal/rbac"
	"github.com/labportal/reagent-portal/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler         *auth.Handler
	CatalogHandler      *catalog.Handler
	PricingHandler      *pricing.Handler
	CustomersHandler    *customers.Handler
	OrdersHandler       *orders.Handler
	AnnouncementHandler *announcements.Handler
	DashboardHandler    *dashboard.Handler
	ExportHandler       *export.Handler
	AuditHandler        *audit.Handler
	PermissionsHandler  *rbac.PermissionsHandler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with portal defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/catalog", params.CatalogHandler.MountRoutes)
	r.Route("/pricing", params.PricingHandler.MountRoutes)
	r.Route("/orders", params.OrdersHandler.MountRoutes)
	r.Route("/announcements", params.AnnouncementHandler.MountRoutes)
	r.Route("/profile", params.CustomersHandler.MountProfileRoutes)
	if params.PermissionsHandler != nil {
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
	}

	r.Route("/admin", func(r chi.Router) {
		r.Route("/products", params.CatalogHandler.MountAdminRoutes)
		params.CustomersHandler.MountAdminRoutes(r)
		params.PricingHandler.MountAdminRoutes(r)
		params.OrdersHandler.MountAdminRoutes(r)
		params.AnnouncementHandler.MountAdminRoutes(r)
		params.DashboardHandler.MountAdminRoutes(r)
		params.ExportHandler.MountAdminRoutes(r)
		params.AuditHandler.MountAdminRoutes(r)
	})

	return r
}
