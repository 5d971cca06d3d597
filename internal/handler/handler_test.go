package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-scan-pos/internal/eventbus"
	"go-scan-pos/internal/idempotency"
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository/memory"
	"go-scan-pos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app     *fiber.App
	store   *memory.Store
	manager string
	cashier string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := memory.New(2 * time.Second)
	events := &eventbus.Recorder{}
	ledger := service.NewStockLedger()
	recorder := service.NewAdjustmentRecorder(nil)

	authService := service.NewAuthService(store.Users(), store.Roles())
	userService := service.NewUserService(store.Users(), store.Roles())
	require.NoError(t, authService.EnsureAdmin(ctx, "manager@store.test", "manager-pass"))

	app := fiber.New()
	Register(app, Handlers{
		Auth:      NewAuthHandler(authService),
		Inventory: NewInventoryHandler(service.NewProductService(store.Products(), events), service.NewAdjustmentService(store, ledger, recorder, events)),
		Orders:    NewOrderHandler(service.NewOrderService(store, ledger, recorder, idempotency.NewLocalGuard(), events)),
		Outbound:  NewOutboundHandler(service.NewOutboundService(store.Outbound(), store.Products(), events)),
		Dashboard: NewDashboardHandler(service.NewDashboardService(store, 0)),
		Users:     NewUserHandler(userService),
		Roles:     NewRoleHandler(store.Roles(), store.Privileges()),
	}, store.Users())

	s := &testServer{app: app, store: store}
	s.manager = s.login(t, "manager@store.test", "manager-pass")

	status, _ := s.do(t, http.MethodPost, "/api/v1/users", s.manager, map[string]interface{}{
		"email": "cashier@store.test", "password": "cashier-pass", "full_name": "Front Desk", "role_code": model.RoleCashier,
	})
	require.Equal(t, http.StatusCreated, status)
	s.cashier = s.login(t, "cashier@store.test", "cashier-pass")
	return s
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, status, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body
}

func (s *testServer) createProduct(t *testing.T, barcode string, stock int) uint {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/v1/products", s.manager, map[string]interface{}{
		"barcode": barcode, "name": "Item " + barcode, "price": "2.50", "stock": stock,
	})
	require.Equal(t, http.StatusCreated, status, body)
	data := body["data"].(map[string]interface{})
	return uint(data["id"].(float64))
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/products", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "manager@store.test", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := s.do(t, http.MethodGet, "/api/v1/auth/me", s.cashier, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cashier@store.test", body["email"])
}

func TestPrivilegesEnforced(t *testing.T) {
	s := newTestServer(t)
	id := s.createProduct(t, "A1", 5)

	status, _ := s.do(t, http.MethodPost, "/api/v1/inventory/adjustments", s.cashier, map[string]interface{}{
		"product_id": id, "quantity_change": 1, "reason": "restock",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/users", s.cashier, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/%d/inventory-logs", id), s.cashier, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/orders", s.cashier, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestStockEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := s.createProduct(t, "A1", 10)

	status, body := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/products/%d/stock", id), s.manager, map[string]interface{}{
		"type": "subtract", "quantity": 4,
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(10), body["oldStock"])
	assert.Equal(t, float64(10), body["newStock"])
	assert.Equal(t, float64(6), body["newAvailableStock"])

	status, body = s.do(t, http.MethodPost, "/api/v1/inventory/adjustments", s.manager, map[string]interface{}{
		"barcode": "A1", "quantity_change": -3, "reason": "damage",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(7), body["new_stock"])
	assert.Equal(t, float64(3), body["new_available_stock"])

	status, body = s.do(t, http.MethodPost, "/api/v1/inventory/adjustments", s.manager, map[string]interface{}{
		"product_id": id, "quantity_change": -8, "reason": "damage",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["kind"])

	status, body = s.do(t, http.MethodPost, "/api/v1/inventory/adjustments", s.manager, map[string]interface{}{
		"product_id": id, "quantity_change": 1, "reason": "gift",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["kind"])

	status, body = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/%d/inventory-logs", id), s.manager, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 2)

	status, body = s.do(t, http.MethodPost, "/api/v1/products/99/stock", s.manager, map[string]interface{}{"type": "add", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["kind"])

	status, _ = s.do(t, http.MethodGet, "/api/v1/products/abc", s.manager, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(t, http.MethodGet, "/api/v1/products/barcode/A1", s.cashier, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(7), body["stock"])
}

func TestOrderEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.createProduct(t, "A1", 3)

	order := map[string]interface{}{
		"items":          []map[string]interface{}{{"barcode": "A1", "price": "2.50", "quantity": 2}},
		"totalAmount":    "5.00",
		"discountAmount": "1.00",
		"finalAmount":    "4.00",
		"idempotencyKey": "cart-1",
	}
	status, body := s.do(t, http.MethodPost, "/api/v1/orders", s.cashier, order)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Regexp(t, `^ORD-\d{8}-\d{6}-[0-9A-F]{8}$`, body["order_number"])
	assert.Equal(t, false, body["replayed"])
	orderID := body["order_id"]
	orderPath := fmt.Sprintf("/api/v1/orders/%v", orderID)

	status, body = s.do(t, http.MethodPost, "/api/v1/orders", s.cashier, order)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["replayed"])
	assert.Equal(t, orderID, body["order_id"])

	order["idempotencyKey"] = "cart-2"
	status, body = s.do(t, http.MethodPost, "/api/v1/orders", s.cashier, order)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["kind"])

	status, body = s.do(t, http.MethodPost, "/api/v1/orders", s.cashier, map[string]interface{}{"items": []interface{}{}, "totalAmount": "0"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["kind"])

	status, body = s.do(t, http.MethodGet, "/api/v1/orders", s.cashier, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])

	status, _ = s.do(t, http.MethodPatch, orderPath+"/status", s.cashier, map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodDelete, orderPath, s.manager, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(t, http.MethodPatch, orderPath+"/status", s.manager, map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, status, body)
	status, _ = s.do(t, http.MethodDelete, orderPath, s.manager, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestOutboundEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.createProduct(t, "A1", 3)

	status, body := s.do(t, http.MethodPost, "/api/v1/outbound", s.cashier, map[string]interface{}{"barcode": "A1", "quantity": 2})
	require.Equal(t, http.StatusCreated, status, body)
	assert.NotNil(t, body["product_id"])

	status, body = s.do(t, http.MethodPost, "/api/v1/outbound", s.cashier, map[string]interface{}{"barcode": ""})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(t, http.MethodGet, "/api/v1/outbound/stats", s.cashier, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total_count"])
	assert.Equal(t, float64(2), body["total_quantity"])

	status, body = s.do(t, http.MethodGet, "/api/v1/products/barcode/A1", s.cashier, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), body["stock"], "outbound scans do not change stock")
}

func TestDashboardEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/v1/dashboard/stats", s.manager, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "products")

	status, body = s.do(t, http.MethodGet, "/api/v1/dashboard/sales-trend?days=120", s.manager, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["kind"])
}
