package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/labportal/reagent-portal/internal/announcements"
	"github.com/labportal/reagent-portal/internal/app"
	"github.com/labportal/reagent-portal/internal/audit"
	"github.com/labportal/reagent-portal/internal/auth"
	"github.com/labportal/reagent-portal/internal/catalog"
	"github.com/labportal/reagent-portal/internal/customers"
	"github.com/labportal/reagent-portal/internal/dashboard"
	"github.com/labportal/reagent-portal/internal/export"
	"github.com/labportal/reagent-portal/internal/observability"
	"github.com/labportal/reagent-portal/internal/orders"
	"github.com/labportal/reagent-portal/internal/platform/cache"
	"github.com/labportal/reagent-portal/internal/platform/db"
	"github.com/labportal/reagent-portal/internal/pricing"
	"github.com/labportal/reagent-portal/internal/rbac"
	"github.com/labportal/reagent-portal/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	hasher := auth.NewHasher(bcrypt.DefaultCost)
	adminHash, err := hasher.Hash(cfg.AdminPassword)
	if err != nil {
		logger.Error("hash admin password", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.Migrate(ctx, dbpool, shared.AdminUsername, adminHash); err != nil {
		logger.Error("migrate schema", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "portal_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	rbacService := rbac.NewService()
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}
	metrics := observability.NewMetrics()

	authService := auth.NewService(auth.NewRepository(dbpool), hasher)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, rbacMiddleware, cfg.LoginRateLimitPerMinute)

	catalogService := catalog.NewService(catalog.NewRepository(dbpool))
	pricingService := pricing.NewService(pricing.NewRepository(dbpool))
	customerService := customers.NewService(customers.NewRepository(dbpool), hasher)
	orderService := orders.NewService(orders.NewRepository(dbpool), pricingService, metrics, logger)
	idempotency := shared.NewIdempotencyStore(dbpool)
	if removed, err := idempotency.Cleanup(ctx, 7*24*time.Hour); err != nil {
		logger.Warn("idempotency cleanup", slog.Any("error", err))
	} else if removed > 0 {
		logger.Info("idempotency cleanup", slog.Int64("removed", removed))
	}
	orderService.UseIdempotencyKeys(idempotency)
	announcementService := announcements.NewService(announcements.NewRepository(dbpool))
	dashboardService := dashboard.NewService(orderService, catalogService, customerService,
		dashboard.NewCache(redisClient, cfg.DashboardCacheTTL))
	exportService := export.NewService(export.NewSource(dbpool))

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		CSRFManager:         csrfManager,
		AuthHandler:         authHandler,
		CatalogHandler:      catalog.NewHandler(logger, catalogService, pricingService, rbacMiddleware),
		PricingHandler:      pricing.NewHandler(logger, pricingService, rbacMiddleware),
		CustomersHandler:    customers.NewHandler(logger, customerService, rbacMiddleware),
		OrdersHandler:       orders.NewHandler(logger, orderService, rbacMiddleware),
		AnnouncementHandler: announcements.NewHandler(logger, announcementService, rbacMiddleware),
		DashboardHandler:    dashboard.NewHandler(logger, dashboardService, rbacMiddleware),
		ExportHandler:       export.NewHandler(logger, exportService, rbacMiddleware),
		AuditHandler:        audit.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), rbacMiddleware),
		PermissionsHandler:  rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware),
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
