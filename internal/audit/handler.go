package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/labportal/reagent-portal/internal/platform/httpx"
	"github.com/labportal/reagent-portal/internal/rbac"
	"github.com/labportal/reagent-portal/internal/shared"
)

const (
	exportRateLimit  = 10
	exportRateWindow = time.Minute
	maxRangeDays     = 90
)

// Handler serves the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

// MountAdminRoutes registers GET /audit and the CSV export on the admin router.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	limiter := httprate.Limit(exportRateLimit, exportRateWindow, httprate.WithKeyFuncs(rateLimitKey))
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAuditView))
		r.Get("/audit", h.timeline)
		r.With(h.rbac.RequireAll(shared.PermAuditView, shared.PermExportRun), limiter).Get("/audit/export.csv", h.export)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor, ok := shared.ActorFromContext(r.Context()); ok {
		return "actor:" + strconv.FormatInt(actor.ID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := WriteCSV(w, rows); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

// parseFilters reads from/to as YYYY-MM-DD; to is inclusive and defaults to
// today, from defaults to a week earlier.
func (h *Handler) parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	today := h.now().UTC().Truncate(24 * time.Hour)

	to := today
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return TimelineFilters{}, shared.Invalid("to", "must be YYYY-MM-DD")
		}
		to = parsed
	}
	from := to.AddDate(0, 0, -7)
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return TimelineFilters{}, shared.Invalid("from", "must be YYYY-MM-DD")
		}
		from = parsed
	}
	if from.After(to) {
		return TimelineFilters{}, shared.Invalid("from", "must not be after to")
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		return TimelineFilters{}, shared.Invalid("to", "range exceeds 90 days")
	}

	var actorID int64
	if v := strings.TrimSpace(q.Get("actor_id")); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			return TimelineFilters{}, shared.Invalid("actor_id", "must be a positive integer")
		}
		actorID = parsed
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	return TimelineFilters{
		From:     from,
		To:       to.AddDate(0, 0, 1),
		ActorID:  actorID,
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Action:   q.Get("action"),
		Page:     page,
		PageSize: pageSize,
	}, nil
}
