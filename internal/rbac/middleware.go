package rbac

import (
	"net/http"
	"strings"

	"log/slog"

	"github.com/labportal/reagent-portal/internal/platform/httpx"
	"github.com/labportal/reagent-portal/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAuthenticated rejects requests without a logged-in actor.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := shared.ActorFromContext(r.Context()); !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require(normalizePermissions(perms), hasAnyPermission)
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require(normalizePermissions(perms), hasAllPermissions)
}

func (m Middleware) require(required []string, match func(granted, required []string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			granted, err := m.Service.EffectivePermissions(r.Context(), actor)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac resolve permissions", slog.Any("error", err), slog.Int64("actor_id", actor.ID))
				}
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			if match(granted, required) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
