package customers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labportal/reagent-portal/internal/rbac"
	"github.com/labportal/reagent-portal/internal/shared"
)

func newTestRouter(repo Repository) http.Handler {
	h := NewHandler(nil, NewService(repo, plainHasher{}), rbac.Middleware{Service: rbac.NewService()})
	r := chi.NewRouter()
	r.Route("/admin", h.MountAdminRoutes)
	r.Route("/profile", h.MountProfileRoutes)
	return r
}

func do(router http.Handler, method, path, body string, actor shared.Actor) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if actor.ID != 0 {
		req = req.WithContext(shared.ContextWithActor(req.Context(), actor))
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestCustomerAdminEndpoints(t *testing.T) {
	router := newTestRouter(newMockRepository())
	admin := shared.NewActor(1, shared.AdminUsername)

	res := do(router, http.MethodPost, "/admin/customers", `{"username":"lab-north","password":"long-enough","name":"North Lab","type":"GPPRR"}`, admin)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var created Customer
	require.NoError(t, json.NewDecoder(res.Body).Decode(&created))
	assert.NotContains(t, res.Body.String(), "password")

	res = do(router, http.MethodPost, "/admin/customers", `{"username":"lab-north","password":"long-enough","name":"Again"}`, admin)
	assert.Equal(t, http.StatusConflict, res.Code)

	res = do(router, http.MethodPatch, "/admin/customers/1", `{"location":"Building 4"}`, admin)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var updated Customer
	require.NoError(t, json.NewDecoder(res.Body).Decode(&updated))
	require.NotNil(t, updated.Location)
	assert.Equal(t, "Building 4", *updated.Location)

	res = do(router, http.MethodPatch, "/admin/customers/1", `{"unknown":"x"}`, admin)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = do(router, http.MethodPost, "/admin/customers/1/password", `{"password":"another-pass"}`, admin)
	assert.Equal(t, http.StatusNoContent, res.Code)

	res = do(router, http.MethodGet, "/admin/customers/7", "", admin)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = do(router, http.MethodGet, "/admin/customers/abc", "", admin)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = do(router, http.MethodGet, "/admin/customers?search=north", "", admin)
	require.Equal(t, http.StatusOK, res.Code)
	var list []Customer
	require.NoError(t, json.NewDecoder(res.Body).Decode(&list))
	assert.Len(t, list, 1)
}

func TestCustomerRoutesForbidCustomers(t *testing.T) {
	router := newTestRouter(newMockRepository())
	customer := shared.NewActor(5, "lab-north")

	assert.Equal(t, http.StatusForbidden, do(router, http.MethodGet, "/admin/customers", "", customer).Code)
	assert.Equal(t, http.StatusForbidden, do(router, http.MethodPost, "/admin/customers", `{}`, customer).Code)
}

func TestProfileShowsOwnRecordOnly(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, plainHasher{})
	north := newCustomer(t, svc, "lab-north")
	south := newCustomer(t, svc, "lab-south")
	router := newTestRouter(repo)

	res := do(router, http.MethodGet, "/profile/", "", shared.NewActor(north.ID, north.Username))
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var got Customer
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, north.ID, got.ID)
	assert.Equal(t, "Lab lab-north", got.Name)
	require.NotNil(t, got.Phone)
	assert.Equal(t, "555-0100", *got.Phone)
	assert.NotContains(t, res.Body.String(), "hashed:")

	res = do(router, http.MethodGet, "/profile/", "", shared.NewActor(south.ID, south.Username))
	require.Equal(t, http.StatusOK, res.Code)
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, south.ID, got.ID)

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/profile/", "", shared.Actor{}).Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/profile/?id=1", "", shared.NewActor(404, "ghost")).Code)
}
