package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labportal/reagent-portal/internal/observability"
	"github.com/labportal/reagent-portal/internal/platform/httpx"
	"github.com/labportal/reagent-portal/internal/shared"
)

func newStackRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "portal_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf")
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:         &Config{AppEnv: "development", RateLimitPerMinute: 100},
		SessionManager: sessions,
		CSRFManager:    csrf,
		Metrics:        observability.NewMetrics(),
	}) {
		r.Use(mw)
	}

	r.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
		token, err := csrf.EnsureToken(shared.SessionFromContext(r.Context()))
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
	})
	// Binds an actor without writing a response body or status.
	r.Post("/bind", func(w http.ResponseWriter, r *http.Request) {
		shared.SessionFromContext(r.Context()).SetActor(shared.NewActor(5, "lab-north"))
	})
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		actor, ok := shared.ActorFromContext(r.Context())
		if !ok {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		httpx.JSON(w, http.StatusOK, actor)
	})
	return r
}

func sessionCookie(res *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range res.Result().Cookies() {
		if c.Name == "portal_session" {
			return c
		}
	}
	return nil
}

func TestMiddlewareStackSessionAndCSRF(t *testing.T) {
	router := newStackRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/csrf", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "DENY", res.Header().Get("X-Frame-Options"))
	cookie := sessionCookie(res)
	require.NotNil(t, cookie)
	var body map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	token := body["csrf_token"]
	require.NotEmpty(t, token)

	req := httptest.NewRequest(http.MethodPost, "/bind", nil)
	req.AddCookie(cookie)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusForbidden, res.Code, "missing csrf header")

	req = httptest.NewRequest(http.MethodPost, "/bind", nil)
	req.AddCookie(cookie)
	req.Header.Set(shared.CSRFHeader, token)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	var actor shared.Actor
	require.NoError(t, json.NewDecoder(res.Body).Decode(&actor))
	assert.Equal(t, "lab-north", actor.Username)
	assert.Equal(t, shared.RoleCustomer, actor.Role)
}
