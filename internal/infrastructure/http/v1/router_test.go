package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magasin/internal/core/apperror"
	appctx "magasin/internal/core/context"
	"magasin/internal/core/idempotency"
	"magasin/internal/core/types"
	"magasin/internal/domain/auth"
	"magasin/internal/domain/catalogs/customer"
	"magasin/internal/domain/catalogs/product"
	"magasin/internal/domain/documents/sale"
	"magasin/internal/domain/registers/credit"
	"magasin/internal/domain/registers/stock"
	v1 "magasin/internal/infrastructure/http/v1"
	"magasin/internal/infrastructure/http/v1/dto"
	"magasin/internal/infrastructure/http/v1/handlers"
	"magasin/internal/infrastructure/http/v1/middleware"
	"magasin/internal/infrastructure/storage/memory"
	"magasin/pkg/logger"
)

// memoryIdempotency is a map-backed idempotency.Store.
type memoryIdempotency struct {
	mu      sync.Mutex
	entries map[string]*idemEntry
}

type idemEntry struct {
	hash   string
	replay *idempotency.Replay
}

func (m *memoryIdempotency) AcquireKey(_ context.Context, key, _, operation, requestHash string) (*idempotency.Replay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		m.entries[key] = &idemEntry{hash: operation + requestHash}
		return nil, nil
	}
	if e.hash != operation+requestHash {
		return nil, apperror.NewIdempotencyMismatch(key)
	}
	if e.replay == nil {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return e.replay, nil
}

func (m *memoryIdempotency) CompleteKey(_ context.Context, key string, status int, ct string, response any) error {
	return m.finish(key, status, ct, response)
}

func (m *memoryIdempotency) FailKey(_ context.Context, key string, status int, ct string, response any) error {
	return m.finish(key, status, ct, response)
}

func (m *memoryIdempotency) finish(key string, status int, ct string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key].replay = &idempotency.Replay{StatusCode: status, ContentType: ct, Body: body}
	return nil
}

type api struct {
	router *gin.Engine
	token  string
	jwt    *auth.JWTService
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	products := memory.NewProductRepo(store)
	customers := memory.NewCustomerRepo(store)
	stockSvc := stock.NewService(memory.NewStockRepo(store), products, store, nil)
	sales := sale.NewService(sale.Deps{
		Repo:      memory.NewSaleRepo(store),
		Products:  products,
		Customers: customers,
		Stock:     stockSvc,
		Credit:    credit.NewService(memory.NewCreditRepo(store), customers, store),
		Numbers:   memory.NewNumerator(store),
		TxManager: store,
		Audit:     memory.NewAuditLog(),
	})

	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("router-test"))
	token, _, err := jwtSvc.GenerateAccessToken(appctx.UserContext{UserID: "cashier-1", TenantID: "shop-1"})
	require.NoError(t, err)

	router := v1.NewRouter(v1.RouterConfig{
		Logger:       logger.NewNop(),
		JWTValidator: jwtSvc,
		Sales:        sales,
		Products:     product.NewService(products, store),
		Customers:    customer.NewService(customers, store),
		Stock:        stockSvc,
		Idempotency:  &memoryIdempotency{entries: map[string]*idemEntry{}},
		HealthChecks: map[string]handlers.Pinger{
			"store": handlers.PingFunc(func(context.Context) error { return nil }),
		},
	})
	return &api{router: router, token: token, jwt: jwtSvc}
}

func (a *api) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *api) createProduct(t *testing.T, code string, qty int) dto.ProductResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/products", map[string]any{
		"code": code, "name": "Product " + code,
		"stockQuantity": qty, "salePrice": "10", "taxRate": "20",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[dto.ProductResponse](t, rec)
}

func (a *api) createCustomer(t *testing.T, limit string) dto.CustomerResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/customers", map[string]any{"name": "Yasmine", "creditLimit": limit})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[dto.CustomerResponse](t, rec)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAuthRequired(t *testing.T) {
	a := newAPI(t)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sales", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperror.CodeUnauthorized, decode[dto.ErrorResponse](t, rec).Code)

	a.token = "not-a-token"
	rec = a.do(t, http.MethodGet, "/api/v1/sales", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSaleEndpoints(t *testing.T) {
	a := newAPI(t)
	p := a.createProduct(t, "P1", 10)

	rec := a.do(t, http.MethodPost, "/api/v1/sales", map[string]any{
		"documentType":  "ticket",
		"paymentMethod": "cash",
		"lines":         []map[string]any{{"productId": p.ID, "quantity": 3, "discountPct": "10"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[dto.SaleResponse](t, rec)
	assert.Equal(t, "32.40", created.AmountTotal)
	assert.Equal(t, sale.StatusValid, created.Status)
	assert.True(t, created.Recognized)
	require.Len(t, created.Lines, 1)

	rec = a.do(t, http.MethodGet, "/api/v1/sales/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.Number, decode[dto.SaleResponse](t, rec).Number)

	rec = a.do(t, http.MethodGet, "/api/v1/sales?documentType=ticket&status=valid", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[dto.ListResponse[dto.SaleResponse]](t, rec)
	assert.EqualValues(t, 1, list.TotalCount)

	rec = a.do(t, http.MethodPost, "/api/v1/sales/"+created.ID.String()+"/cancel", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperror.CodeMissingReason, decode[dto.ErrorResponse](t, rec).Code)

	rec = a.do(t, http.MethodPost, "/api/v1/sales/"+created.ID.String()+"/cancel", map[string]any{"reason": "typo"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, sale.StatusCancelled, decode[dto.SaleResponse](t, rec).Status)

	rec = a.do(t, http.MethodPost, "/api/v1/sales/"+created.ID.String()+"/cancel", map[string]any{"reason": "again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/sales/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSale_ErrorMapping(t *testing.T) {
	a := newAPI(t)
	p := a.createProduct(t, "P2", 1)

	rec := a.do(t, http.MethodPost, "/api/v1/sales", map[string]any{
		"documentType": "ticket", "paymentMethod": "cash",
		"lines": []map[string]any{{"productId": p.ID, "quantity": 5}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[dto.ErrorResponse](t, rec)
	assert.Equal(t, apperror.CodeInsufficientStock, body.Code)
	assert.Equal(t, p.Name, body.Details["product_name"])

	rec = a.do(t, http.MethodPost, "/api/v1/sales", map[string]any{"documentType": "ticket", "lines": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperror.CodeValidation, decode[dto.ErrorResponse](t, rec).Code)
}

func TestCreateSale_IdempotentRetry(t *testing.T) {
	a := newAPI(t)
	p := a.createProduct(t, "P3", 10)
	body := map[string]any{
		"documentType": "ticket", "paymentMethod": "card",
		"lines": []map[string]any{{"productId": p.ID, "quantity": 1}},
	}

	first := a.do(t, http.MethodPost, "/api/v1/sales", body, middleware.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, first.Code)
	second := a.do(t, http.MethodPost, "/api/v1/sales", body, middleware.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, decode[dto.SaleResponse](t, first).Number, decode[dto.SaleResponse](t, second).Number)

	rec := a.do(t, http.MethodGet, "/api/v1/products/"+p.ID.String(), nil)
	assert.Equal(t, types.NewQuantity(9), decode[dto.ProductResponse](t, rec).StockQuantity)

	body["paymentMethod"] = "cash"
	rec = a.do(t, http.MethodPost, "/api/v1/sales", body, middleware.HeaderIdempotencyKey, "k-1")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCheckAndCreditEndpoints(t *testing.T) {
	a := newAPI(t)
	p := a.createProduct(t, "P4", 10)
	c := a.createCustomer(t, "500")

	rec := a.do(t, http.MethodPost, "/api/v1/sales", map[string]any{
		"documentType": "ticket", "paymentMethod": "check",
		"customerId": c.ID, "paymentReference": "CHQ-1", "checkDueDate": "2026-12-01T00:00:00Z",
		"lines": []map[string]any{{"productId": p.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	checkSale := decode[dto.SaleResponse](t, rec)
	assert.False(t, checkSale.Recognized)
	require.NotNil(t, checkSale.CheckStatus)
	assert.Equal(t, sale.CheckStatusPending, *checkSale.CheckStatus)

	path := "/api/v1/sales/" + checkSale.ID.String() + "/check-status"
	rec = a.do(t, http.MethodPatch, path, map[string]any{"checkStatus": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperror.CodeInvalidStatus, decode[dto.ErrorResponse](t, rec).Code)

	rec = a.do(t, http.MethodPatch, path, map[string]any{"checkStatus": "unpaid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/v1/customers/"+c.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "24.00", decode[dto.CustomerResponse](t, rec).Balance)

	rec = a.do(t, http.MethodPost, "/api/v1/customers/"+c.ID.String()+"/payments",
		map[string]any{"amount": "30", "method": "cash"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apperror.CodeExceedsBalance, decode[dto.ErrorResponse](t, rec).Code)

	rec = a.do(t, http.MethodPost, "/api/v1/customers/"+c.ID.String()+"/payments",
		map[string]any{"amount": "20", "method": "cash", "tendered": "50"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	paid := decode[dto.CreditPaymentResponse](t, rec)
	assert.Equal(t, "4.00", paid.NewBalance)
	assert.Equal(t, "30.00", paid.Change)
	assert.Equal(t, sale.TypeCreditPayment, paid.Payment.DocumentType)
}

func TestStockEndpoints(t *testing.T) {
	a := newAPI(t)
	p := a.createProduct(t, "P5", 2)
	base := "/api/v1/products/" + p.ID.String() + "/stock"

	rec := a.do(t, http.MethodPost, base+"/in", map[string]any{"quantity": 8, "unitPrice": "4", "reason": "delivery"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, base+"/out", map[string]any{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperror.CodeMissingReason, decode[dto.ErrorResponse](t, rec).Code)

	rec = a.do(t, http.MethodPost, base+"/return", map[string]any{"quantity": 3})
	assert.Equal(t, apperror.CodeMissingReason, decode[dto.ErrorResponse](t, rec).Code)

	rec = a.do(t, http.MethodPost, base+"/return", map[string]any{"quantity": 40, "reason": "damaged lot"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apperror.CodeInsufficientStock, decode[dto.ErrorResponse](t, rec).Code)

	rec = a.do(t, http.MethodPost, base+"/return", map[string]any{"quantity": 3, "reason": "damaged lot", "reference": "RMA-12"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	returned := decode[dto.MovementResponse](t, rec)
	assert.True(t, returned.IsReversal)
	assert.Equal(t, stock.MovementOut, returned.Type)

	rec = a.do(t, http.MethodPost, base+"/adjust", map[string]any{"newQuantity": 6, "reason": "count"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, base+"/movements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	movements := decode[dto.ListResponse[dto.MovementResponse]](t, rec)
	require.Len(t, movements.Items, 3)
	assert.Equal(t, stock.MovementAdjustment, movements.Items[0].Type)
	assert.Equal(t, "RMA-12", movements.Items[1].ReferenceDocument)
}

func TestTenantIsolation(t *testing.T) {
	a := newAPI(t)
	p := a.createProduct(t, "P6", 2)

	other, _, err := a.jwt.GenerateAccessToken(appctx.UserContext{UserID: "u9", TenantID: "shop-2"})
	require.NoError(t, err)
	a.token = other

	rec := a.do(t, http.MethodGet, "/api/v1/products/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
