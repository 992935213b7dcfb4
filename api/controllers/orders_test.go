package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dropflowhq/dropflow-backend/internal/fulfillment"
	"github.com/dropflowhq/dropflow-backend/pkg/db/models"
	"github.com/dropflowhq/dropflow-backend/pkg/enums"
	pkgerrors "github.com/dropflowhq/dropflow-backend/pkg/errors"
	"github.com/dropflowhq/dropflow-backend/pkg/logger"
)

type stubFulfillmentService struct {
	order      *models.Order
	createErr  error
	statusView *fulfillment.OrderStatusView
	statusErr  error
	tracking   *fulfillment.TrackingInfo
	trackErr   error
	markErr    error
	processErr error

	lastInput fulfillment.CreateOrderInput
}

func (s *stubFulfillmentService) CreateOrder(ctx context.Context, input fulfillment.CreateOrderInput) (*models.Order, error) {
	s.lastInput = input
	return s.order, s.createErr
}

func (s *stubFulfillmentService) ProcessPendingOrders(ctx context.Context) error {
	return s.processErr
}

func (s *stubFulfillmentService) GetOrderStatus(ctx context.Context, orderID uuid.UUID) (*fulfillment.OrderStatusView, error) {
	return s.statusView, s.statusErr
}

func (s *stubFulfillmentService) TrackSupplierOrder(ctx context.Context, supplierOrderID uuid.UUID) (*fulfillment.TrackingInfo, error) {
	return s.tracking, s.trackErr
}

func (s *stubFulfillmentService) MarkOrderPaid(ctx context.Context, orderID uuid.UUID) error {
	return s.markErr
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func routeRequest(handler http.HandlerFunc, method, path, pattern string, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, handler)

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateOrderAccepts(t *testing.T) {
	svc := &stubFulfillmentService{order: &models.Order{
		ID:          uuid.New(),
		OrderNumber: "DF-20260820-ABC123",
		Status:      enums.OrderStatusPending,
	}}
	body := `{
		"customer_name": "Jamie Doe",
		"customer_email": "jamie@example.com",
		"shipping_address": {"line1": "1 Elm St", "city": "Denver", "postal_code": "80202", "country": "US"},
		"payment_method": "stripe",
		"payment_ref": "pi_123",
		"items": [
			{"product_id": "` + uuid.NewString() + `", "product_name": "Widget", "qty": 2, "unit_price_cents": 500, "margin_fraction": "0.30", "supplier_name": "aliexpress"}
		]
	}`

	rec := routeRequest(CreateOrder(svc, testLogger()), http.MethodPost, "/orders", "/orders", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}
	if svc.lastInput.PaymentMethod != enums.PaymentMethodStripe {
		t.Fatalf("payment method = %s", svc.lastInput.PaymentMethod)
	}
	if len(svc.lastInput.Items) != 1 || svc.lastInput.Items[0].MarginFraction == nil {
		t.Fatal("expected one item with parsed margin")
	}
	if svc.lastInput.Items[0].MarginFraction.String() != "0.3" {
		t.Fatalf("margin = %s", svc.lastInput.Items[0].MarginFraction.String())
	}
}

func TestCreateOrderRejectsMissingItems(t *testing.T) {
	svc := &stubFulfillmentService{}
	body := `{
		"customer_name": "Jamie Doe",
		"customer_email": "jamie@example.com",
		"shipping_address": {"line1": "1 Elm St", "city": "Denver", "postal_code": "80202", "country": "US"},
		"payment_method": "stripe",
		"items": []
	}`

	rec := routeRequest(CreateOrder(svc, testLogger()), http.MethodPost, "/orders", "/orders", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("code = %s, want VALIDATION_ERROR", envelope.Error.Code)
	}
}

func TestCreateOrderRejectsBadMargin(t *testing.T) {
	svc := &stubFulfillmentService{}
	body := `{
		"customer_name": "Jamie Doe",
		"customer_email": "jamie@example.com",
		"shipping_address": {"line1": "1 Elm St", "city": "Denver", "postal_code": "80202", "country": "US"},
		"payment_method": "stripe",
		"items": [
			{"product_id": "` + uuid.NewString() + `", "product_name": "Widget", "qty": 1, "unit_price_cents": 500, "margin_fraction": "lots", "supplier_name": "spocket"}
		]
	}`

	rec := routeRequest(CreateOrder(svc, testLogger()), http.MethodPost, "/orders", "/orders", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateOrderMapsDomainError(t *testing.T) {
	svc := &stubFulfillmentService{
		createErr: pkgerrors.New(pkgerrors.CodeUnsupportedPaymentMethod, `payment method "bank" is not supported`),
	}
	body := `{
		"customer_name": "Jamie Doe",
		"customer_email": "jamie@example.com",
		"shipping_address": {"line1": "1 Elm St", "city": "Denver", "postal_code": "80202", "country": "US"},
		"payment_method": "bank",
		"items": [
			{"product_id": "` + uuid.NewString() + `", "product_name": "Widget", "qty": 1, "unit_price_cents": 500, "supplier_name": "spocket"}
		]
	}`

	rec := routeRequest(CreateOrder(svc, testLogger()), http.MethodPost, "/orders", "/orders", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), string(pkgerrors.CodeUnsupportedPaymentMethod)) {
		t.Fatalf("expected UNSUPPORTED_PAYMENT_METHOD in body, got %s", rec.Body.String())
	}
}

func TestOrderStatusInvalidID(t *testing.T) {
	svc := &stubFulfillmentService{}
	rec := routeRequest(OrderStatus(svc, testLogger()), http.MethodGet, "/orders/not-a-uuid/status", "/orders/{orderId}/status", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestOrderStatusNotFound(t *testing.T) {
	svc := &stubFulfillmentService{statusErr: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	rec := routeRequest(OrderStatus(svc, testLogger()), http.MethodGet, "/orders/"+uuid.NewString()+"/status", "/orders/{orderId}/status", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestOrderStatusReturnsView(t *testing.T) {
	orderID := uuid.New()
	svc := &stubFulfillmentService{statusView: &fulfillment.OrderStatusView{
		Order: &models.Order{ID: orderID, Status: enums.OrderStatusCompleted},
	}}
	rec := routeRequest(OrderStatus(svc, testLogger()), http.MethodGet, "/orders/"+orderID.String()+"/status", "/orders/{orderId}/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), orderID.String()) {
		t.Fatal("expected order id in response body")
	}
}
