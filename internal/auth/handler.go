package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/labportal/reagent-portal/internal/platform/httpx"
	"github.com/labportal/reagent-portal/internal/rbac"
	"github.com/labportal/reagent-portal/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	rbac           rbac.Middleware
	loginLimit     int
}

// NewHandler constructs a Handler instance. loginLimit caps login attempts per
// IP and minute; zero disables the limit.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, rbac rbac.Middleware, loginLimit int) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		rbac:           rbac,
		loginLimit:     loginLimit,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.csrf)
	r.Group(func(r chi.Router) {
		if h.loginLimit > 0 {
			r.Use(httprate.LimitByIP(h.loginLimit, time.Minute))
		}
		r.Post("/login", h.login)
	})
	r.Post("/logout", h.logout)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated())
		r.Get("/me", h.me)
		r.Post("/password", h.changePassword)
	})
}

func (h *Handler) csrf(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfManager.EnsureToken(shared.SessionFromContext(r.Context()))
	if err != nil {
		h.fail(w, "issue csrf token", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.fail(w, "login", errors.New("session missing during login"))
		return
	}

	account, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) && h.logger != nil {
			h.logger.Info("login rejected", slog.String("username", req.Username), slog.String("remote", r.RemoteAddr))
		}
		h.fail(w, "login", err)
		return
	}

	actor := account.Actor()
	h.sessionManager.Renew(sess)
	sess.Delete(shared.CSRFSessionKey)
	sess.SetActor(actor)
	token, err := h.csrfManager.EnsureToken(sess)
	if err != nil {
		h.fail(w, "issue csrf token", err)
		return
	}
	httpx.JSON(w, http.StatusOK, LoginResponse{Actor: actor, CSRFToken: token})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.sessionManager.Destroy(shared.SessionFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, actor)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	var req ChangePasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), actor, req); err != nil {
		h.fail(w, "change password", err)
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
