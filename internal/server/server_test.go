package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"eyewear/internal/config"
	"eyewear/internal/domain/model"
	"eyewear/internal/handler"
	"eyewear/internal/infra/repository/memory"
	"eyewear/internal/observability"
	"eyewear/internal/server"
	"eyewear/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type ErrorResponse struct {
	Error   string         `json:"error"`
	Kind    string         `json:"kind"`
	Details map[string]any `json:"details"`
}

type OrderItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
	Subtotal  int64 `json:"subtotal"`
}

type Order struct {
	ID             int64       `json:"id"`
	OrderNumber    string      `json:"order_number"`
	UserID         int64       `json:"user_id"`
	TotalAmount    int64       `json:"total_amount"`
	PaymentStatus  string      `json:"payment_status"`
	OrderStatus    string      `json:"order_status"`
	TrackingNumber string      `json:"tracking_number"`
	Items          []OrderItem `json:"items"`
}

type OrderList struct {
	Items []Order `json:"items"`
	Total int64   `json:"total"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
}

type testApp struct {
	e      *echo.Echo
	store  *memory.Store
	frameA model.Product
	frameB model.Product
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	store := memory.NewStore()
	a := store.PutProduct(model.Product{Name: "Frame A", Price: 50, Stock: 10, IsActive: true})
	b := store.PutProduct(model.Product{Name: "Frame B", Price: 30, Stock: 10, IsActive: true})

	reg := prometheus.NewRegistry()
	uc := usecase.NewOrderUsecase(store, nil, nil, zap.NewNop(), observability.NewOrderMetrics(reg))

	e := server.New(server.Deps{
		Config:     config.Config{JWTSecret: testSecret},
		Logger:     zap.NewNop(),
		Metrics:    observability.NewServerMetrics(reg),
		Gatherer:   reg,
		Orders:     handler.NewOrderHandler(uc),
		AdminOrder: handler.NewAdminOrderHandler(uc),
	})
	return &testApp{e: e, store: store, frameA: a, frameB: b}
}

func token(t *testing.T, userID int64, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  9999999999,
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (a *testApp) do(t *testing.T, method, path, bearer string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("json.Unmarshal failed: %v body=%s", err, rec.Body.String())
	}
	return v
}

func (a *testApp) createBody(items ...map[string]int64) map[string]any {
	return map[string]any{
		"items": items,
		"shipping_address": map[string]string{
			"full_name": "Hanako Suzuki",
			"phone":     "080-1111-2222",
			"address":   "4-5-6 Umeda, Osaka",
		},
		"payment_method": "cash-on-delivery",
	}
}

func line(productID, qty int64) map[string]int64 {
	return map[string]int64{"product_id": productID, "quantity": qty}
}

// =====================
// 基本
// =====================

func TestServer_Healthz(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Orders_RequiresAuth(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_AdminOrders_ForbiddenForCustomer(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/admin/orders", token(t, 1, "customer"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =====================
// 注文の流れ
// =====================

func TestServer_CreateOrder_Created(t *testing.T) {
	app := newTestApp(t)
	customer := token(t, 1, "customer")

	rec := app.do(t, http.MethodPost, "/orders", customer, app.createBody(line(app.frameA.ID, 2), line(app.frameB.ID, 1)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	o := decode[Order](t, rec)
	assert.Equal(t, int64(130), o.TotalAmount)
	assert.Equal(t, "pending", o.OrderStatus)
	assert.Equal(t, "pending", o.PaymentStatus)
	assert.True(t, strings.HasPrefix(o.OrderNumber, "ORD-"))

	// 詳細
	rec = app.do(t, http.MethodGet, fmt.Sprintf("/orders/%d", o.ID), customer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// 他人は見られない
	rec = app.do(t, http.MethodGet, fmt.Sprintf("/orders/%d", o.ID), token(t, 2, "customer"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_CreateOrder_IdempotencyHeader(t *testing.T) {
	app := newTestApp(t)
	customer := token(t, 1, "customer")
	body := app.createBody(line(app.frameA.ID, 1))

	first := decode[Order](t, app.do(t, http.MethodPost, "/orders", customer, body, "X-Idempotency-Key", "abc"))
	second := decode[Order](t, app.do(t, http.MethodPost, "/orders", customer, body, "X-Idempotency-Key", "abc"))

	assert.Equal(t, first.ID, second.ID)
	p, _ := app.store.Product(app.frameA.ID)
	assert.Equal(t, int64(9), p.Stock)
}

func TestServer_CreateOrder_InsufficientStock(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/orders", token(t, 1, "customer"), app.createBody(line(app.frameA.ID, 11)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "insufficient_stock", body.Kind)
	assert.Equal(t, float64(10), body.Details["available"])
	assert.Equal(t, float64(11), body.Details["requested"])
}

func TestServer_CreateOrder_ValidationError(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/orders", token(t, 1, "customer"), app.createBody())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "validation_error", body.Kind)
	assert.Equal(t, "items", body.Details["field"])
}

func TestServer_OrderLifecycle(t *testing.T) {
	app := newTestApp(t)
	customer := token(t, 1, "customer")
	admin := token(t, 99, "ADMIN")

	o := decode[Order](t, app.do(t, http.MethodPost, "/orders", customer, app.createBody(line(app.frameA.ID, 2))))
	base := fmt.Sprintf("/orders/%d", o.ID)
	adminBase := fmt.Sprintf("/admin/orders/%d", o.ID)

	// 明細変更
	rec := app.do(t, http.MethodPut, base+"/items", customer, map[string]any{"items": []map[string]int64{line(app.frameA.ID, 1), line(app.frameB.ID, 1)}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(80), decode[Order](t, rec).TotalAmount)

	// 顧客は進められない
	rec = app.do(t, http.MethodPut, base+"/status", customer, map[string]any{"status": "processing"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode[ErrorResponse](t, rec).Kind)

	// 管理者が発送まで進める
	rec = app.do(t, http.MethodPut, adminBase+"/status", admin, map[string]any{"status": "processing"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = app.do(t, http.MethodPut, adminBase+"/status", admin, map[string]any{"status": "shipped", "tracking_number": "JP-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "JP-1", decode[Order](t, rec).TrackingNumber)

	// 発送後はキャンセル不可
	rec = app.do(t, http.MethodPut, base+"/cancel", customer, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// 支払い
	rec = app.do(t, http.MethodPut, adminBase+"/payment", admin, map[string]any{"payment_status": "paid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "paid", decode[Order](t, rec).PaymentStatus)

	// 一覧（管理者はuser_idで絞れる）
	rec = app.do(t, http.MethodGet, "/admin/orders?user_id=1&status=shipped&payment_status=paid", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[OrderList](t, rec)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 20, list.Limit)
}

func TestServer_CancelOrder_RestoresStock(t *testing.T) {
	app := newTestApp(t)
	customer := token(t, 1, "customer")

	o := decode[Order](t, app.do(t, http.MethodPost, "/orders", customer, app.createBody(line(app.frameA.ID, 3))))

	rec := app.do(t, http.MethodPut, fmt.Sprintf("/orders/%d/cancel", o.ID), customer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decode[Order](t, rec).OrderStatus)

	p, _ := app.store.Product(app.frameA.ID)
	assert.Equal(t, int64(10), p.Stock)
}

func TestServer_ListOrders_BadQuery(t *testing.T) {
	app := newTestApp(t)
	customer := token(t, 1, "customer")
	admin := token(t, 99, "admin")

	rec := app.do(t, http.MethodGet, "/orders?page=abc", customer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/orders?limit=500", customer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/admin/orders?from=yesterday", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/admin/orders?from=2026-10-02T00:00:00Z&to=2026-10-01T00:00:00Z", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/orders/abc", customer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/orders/12345", customer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Metrics_Exposed(t *testing.T) {
	app := newTestApp(t)

	app.do(t, http.MethodGet, "/healthz", "", nil)
	rec := app.do(t, http.MethodGet, "/metrics", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "eyewear_http_requests_total")
}
