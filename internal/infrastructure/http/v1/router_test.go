package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/core/tenant"
	v1 "distripos/internal/infrastructure/http/v1"
	"distripos/internal/infrastructure/storage/memory"
	"distripos/pkg/logger"
)

type testAPI struct {
	t      *testing.T
	svc    *memory.Services
	router *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	svc := memory.NewServices()
	router := v1.NewRouter(v1.RouterConfig{
		Services: v1.Services{
			Auth:        svc.Auth,
			Products:    svc.Products,
			References:  svc.References,
			Customers:   svc.Customers,
			Receivables: svc.Receivable,
			Sales:       svc.Sales,
			Cash:        svc.Cash,
			Accounting:  svc.Accounting,
			Reports:     svc.Reports,
		},
		JWTValidator: svc.JWT,
		Tenants:      svc.Store.Tenants(),
		Logger:       logger.Nop(),
	})
	return &testAPI{t: t, svc: svc, router: router}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type loginBody struct {
	Tokens struct {
		AccessToken string `json:"accessToken"`
	} `json:"tokens"`
}

// registerAndLogin bootstraps a tenant and returns its id and an admin token.
func (a *testAPI) registerAndLogin() (id.ID, string) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/auth/register-tenant", "", gin.H{
		"empresa":       "Distribuidora Sur",
		"adminEmail":    "admin@sur.com",
		"adminPassword": "secret123",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[struct {
		Tenant struct {
			ID id.ID `json:"id"`
		} `json:"tenant"`
	}](a.t, w)

	return reg.Tenant.ID, a.login("admin@sur.com", "secret123")
}

func (a *testAPI) login(email, password string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return decode[loginBody](a.t, w).Tokens.AccessToken
}

func TestHealthLive(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/health/live", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestProtectedRoute_RequiresToken(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/products", "", nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, apperror.CodeUnauthorized, body["code"])
}

func TestCheckoutFlow(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerAndLogin()

	w := api.do(http.MethodPost, "/api/v1/products", token, gin.H{
		"sku":          "T-100",
		"nombre":       "Tornillo",
		"precioCompra": "60",
		"precioVenta":  "100",
		"stockActual":  10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		ID id.ID `json:"id"`
	}](t, w)

	w = api.do(http.MethodPost, "/api/v1/cash/open", token, gin.H{"montoApertura": "1000"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(http.MethodPost, "/api/v1/sales", token, gin.H{
		"items":      []gin.H{{"productoId": created.ID, "cantidad": 3}},
		"metodoPago": "EFECTIVO",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sold := decode[map[string]any](t, w)
	assert.NotEmpty(t, sold["numero"])

	w = api.do(http.MethodGet, "/api/v1/products/"+created.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[struct {
		StockActual int64 `json:"stockActual"`
	}](t, w)
	assert.Equal(t, int64(7), p.StockActual)

	w = api.do(http.MethodGet, "/api/v1/cash/current", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[map[string]any](t, w)
	assert.NotNil(t, view["session"])
	assert.NotEmpty(t, view["movements"])
}

func TestSale_InsufficientStock(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerAndLogin()

	w := api.do(http.MethodPost, "/api/v1/products", token, gin.H{
		"sku": "T-1", "nombre": "Tuerca", "precioVenta": "10", "stockActual": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		ID id.ID `json:"id"`
	}](t, w)

	require.Equal(t, http.StatusCreated,
		api.do(http.MethodPost, "/api/v1/cash/open", token, gin.H{"montoApertura": "0"}).Code)

	w = api.do(http.MethodPost, "/api/v1/sales", token, gin.H{
		"items":      []gin.H{{"productoId": created.ID, "cantidad": 5}},
		"metodoPago": "EFECTIVO",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, apperror.CodeInsufficientStock, decode[map[string]any](t, w)["code"])
}

func TestVendedor_CannotCreateProducts(t *testing.T) {
	api := newTestAPI(t)
	_, admin := api.registerAndLogin()

	w := api.do(http.MethodPost, "/api/v1/users", admin, gin.H{
		"email":      "caja@sur.com",
		"password":   "secret123",
		"legacyRole": "VENDEDOR",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	vendedor := api.login("caja@sur.com", "secret123")

	w = api.do(http.MethodPost, "/api/v1/products", vendedor, gin.H{"sku": "X", "nombre": "X"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodGet, "/api/v1/products", vendedor, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/api/v1/users", vendedor, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSuspendedTenant_IsRejected(t *testing.T) {
	api := newTestAPI(t)
	tenantID, token := api.registerAndLogin()

	api.svc.Store.Tenants().SetStatus(tenantID, tenant.StatusSuspended)

	w := api.do(http.MethodGet, "/api/v1/products", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestInvalidPathID(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerAndLogin()

	w := api.do(http.MethodGet, "/api/v1/products/not-a-uuid", token, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeValidation, decode[map[string]any](t, w)["code"])
}

func TestPermissionCatalog(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerAndLogin()

	w := api.do(http.MethodGet, "/api/v1/permissions", token, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Items []struct {
			Key string `json:"key"`
		} `json:"items"`
	}](t, w)
	require.NotEmpty(t, body.Items)
	assert.Equal(t, "INVENTARIO", body.Items[0].Key)
}
