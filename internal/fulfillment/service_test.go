package fulfillment

import (
	"context"
	stdErrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dropflowhq/dropflow-backend/internal/suppliers"
	"github.com/dropflowhq/dropflow-backend/pkg/db/models"
	"github.com/dropflowhq/dropflow-backend/pkg/enums"
	pkgerrors "github.com/dropflowhq/dropflow-backend/pkg/errors"
	"github.com/dropflowhq/dropflow-backend/pkg/logger"
	"github.com/dropflowhq/dropflow-backend/pkg/outbox"
	"github.com/dropflowhq/dropflow-backend/pkg/types"
)

type stubVerifier struct {
	err   error
	calls int
}

func (v *stubVerifier) Verify(ctx context.Context, method enums.PaymentMethod, ref string) error {
	v.calls++
	return v.err
}

type stubCalculator struct {
	profit int64
	err    error
}

func (c *stubCalculator) Calculate(order *models.Order) (int64, error) {
	return c.profit, c.err
}

type stubDispatcher struct {
	failOn int
	err    error
	calls  int
	db     *gorm.DB
}

func (d *stubDispatcher) Dispatch(ctx context.Context, item *models.OrderItem, address types.Address) (*models.SupplierOrder, error) {
	d.calls++
	if d.failOn != 0 && d.calls >= d.failOn {
		return nil, d.err
	}
	id := uuid.New()
	item.SupplierOrderID = &id
	if d.db != nil {
		d.db.Model(&models.OrderItem{}).Where("id = ?", item.ID).
			Update("supplier_order_id", id)
	}
	return &models.SupplierOrder{ID: id, OrderItemID: item.ID}, nil
}

func (d *stubDispatcher) TrackShipment(ctx context.Context, supplierOrderID uuid.UUID) (*suppliers.TrackingInfo, error) {
	return &suppliers.TrackingInfo{}, nil
}

type stubInitiator struct {
	err   error
	calls int
}

func (i *stubInitiator) Initiate(ctx context.Context, order *models.Order, amountCents int64) (*models.ProfitTransfer, error) {
	i.calls++
	if i.err != nil {
		return &models.ProfitTransfer{Status: enums.TransferStatusFailed}, i.err
	}
	return &models.ProfitTransfer{Status: enums.TransferStatusPending, AmountCents: amountCents}, nil
}

type stubTransfers struct {
	rows []models.ProfitTransfer
}

func (s *stubTransfers) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ProfitTransfer, error) {
	return s.rows, nil
}

type serviceDeps struct {
	db         *gorm.DB
	verifier   *stubVerifier
	calculator *stubCalculator
	dispatcher *stubDispatcher
	initiator  *stubInitiator
	transfers  *stubTransfers
	batchSize  int
}

func newTestService(t *testing.T, deps *serviceDeps) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})
	svc, err := NewService(Params{
		DB:             deps.db,
		Repo:           NewRepository(deps.db),
		SupplierOrders: suppliers.NewRepository(deps.db),
		Verifier:       deps.verifier,
		Calculator:     deps.calculator,
		Dispatcher:     deps.dispatcher,
		Payouts:        deps.initiator,
		Transfers:      deps.transfers,
		Outbox:         outbox.NewService(outbox.NewRepository(deps.db), logg),
		Logger:         logg,
		BatchSize:      deps.batchSize,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func defaultDeps(t *testing.T) *serviceDeps {
	db := setupFulfillmentTestDB(t)
	return &serviceDeps{
		db:         db,
		verifier:   &stubVerifier{},
		calculator: &stubCalculator{profit: 1250},
		dispatcher: &stubDispatcher{db: db},
		initiator:  &stubInitiator{},
		transfers:  &stubTransfers{},
		batchSize:  10,
	}
}

func TestProcessCompletesOrder(t *testing.T) {
	deps := defaultDeps(t)
	svc := newTestService(t, deps)
	order := seedOrder(t, deps.db, enums.OrderStatusPending, enums.PaymentStatusPending, 2)

	if err := svc.ProcessPendingOrders(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}

	var stored models.Order
	if err := deps.db.First(&stored, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if stored.Status != enums.OrderStatusCompleted {
		t.Fatalf("status = %s, want completed", stored.Status)
	}
	if stored.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment_status = %s, want paid", stored.PaymentStatus)
	}
	if stored.ProfitCents == nil || *stored.ProfitCents != 1250 {
		t.Fatalf("profit_cents = %v, want 1250", stored.ProfitCents)
	}
	if stored.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
	if deps.verifier.calls != 1 {
		t.Fatalf("verifier calls = %d, want 1", deps.verifier.calls)
	}
	if deps.dispatcher.calls != 2 {
		t.Fatalf("dispatcher calls = %d, want 2", deps.dispatcher.calls)
	}
	if deps.initiator.calls != 1 {
		t.Fatalf("initiator calls = %d, want 1", deps.initiator.calls)
	}

	var events []models.OutboxEvent
	if err := deps.db.Find(&events, "aggregate_id = ?", order.ID).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 || events[0].EventType != enums.OutboxEventOrderCompleted {
		t.Fatalf("expected one order.completed event, got %v", events)
	}
}

func TestProcessPaymentFailureFailsOrderButNotBatch(t *testing.T) {
	deps := defaultDeps(t)
	deps.verifier.err = pkgerrors.New(pkgerrors.CodePaymentNotConfirmed, "stripe payment intent status is \"canceled\"")
	svc := newTestService(t, deps)

	failing := seedOrder(t, deps.db, enums.OrderStatusPending, enums.PaymentStatusPending, 1)
	// second order already settled, so verification is skipped and it completes
	settled := seedOrder(t, deps.db, enums.OrderStatusPending, enums.PaymentStatusPaid, 1)

	if err := svc.ProcessPendingOrders(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}

	var first models.Order
	if err := deps.db.First(&first, "id = ?", failing.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if first.Status != enums.OrderStatusFailed {
		t.Fatalf("status = %s, want failed", first.Status)
	}
	if first.ErrorMessage == nil {
		t.Fatal("error_message not set")
	}
	if deps.dispatcher.calls == 0 {
		t.Fatal("second order should still have been dispatched")
	}

	var second models.Order
	if err := deps.db.First(&second, "id = ?", settled.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if second.Status != enums.OrderStatusCompleted {
		t.Fatalf("second order status = %s, want completed", second.Status)
	}
}

func TestProcessLeavesOrderRetryableOnProcessorOutage(t *testing.T) {
	deps := defaultDeps(t)
	deps.verifier.err = pkgerrors.Wrap(pkgerrors.CodeDependency,
		stdErrors.New("dial tcp: i/o timeout"), "stripe get payment intent")
	svc := newTestService(t, deps)
	order := seedOrder(t, deps.db, enums.OrderStatusPending, enums.PaymentStatusPending, 1)

	err := svc.ProcessPendingOrders(context.Background())
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected DEPENDENCY_ERROR from batch, got %v", err)
	}

	var stored models.Order
	if err := deps.db.First(&stored, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if stored.Status != enums.OrderStatusPaymentVerifying {
		t.Fatalf("status = %s, want payment_verifying for retry on next trigger", stored.Status)
	}
	if stored.ErrorMessage != nil {
		t.Fatalf("error_message = %q, want unset", *stored.ErrorMessage)
	}

	var events []models.OutboxEvent
	if err := deps.db.Find(&events, "aggregate_id = ?", order.ID).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no outbox events for a retryable outage, got %d", len(events))
	}
}

func TestProcessSkipsVerificationWhenAlreadyPaid(t *testing.T) {
	deps := defaultDeps(t)
	svc := newTestService(t, deps)
	seedOrder(t, deps.db, enums.OrderStatusPending, enums.PaymentStatusPaid, 1)

	if err := svc.ProcessPendingOrders(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if deps.verifier.calls != 0 {
		t.Fatalf("verifier calls = %d, want 0 for already-paid order", deps.verifier.calls)
	}
}

func TestProcessPayoutFailureDoesNotFailOrder(t *testing.T) {
	deps := defaultDeps(t)
	deps.initiator.err = pkgerrors.New(pkgerrors.CodePayoutFailed, "balance insufficient")
	svc := newTestService(t, deps)
	order := seedOrder(t, deps.db, enums.OrderStatusPending, enums.PaymentStatusPending, 1)

	if err := svc.ProcessPendingOrders(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}

	var stored models.Order
	if err := deps.db.First(&stored, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if stored.Status != enums.OrderStatusCompleted {
		t.Fatalf("status = %s, want completed despite payout failure", stored.Status)
	}
}

func TestProcessDispatchFailureAbortsRemainingItems(t *testing.T) {
	deps := defaultDeps(t)
	deps.dispatcher.failOn = 2
	deps.dispatcher.err = pkgerrors.New(pkgerrors.CodeSupplierRejected, "out of stock")
	svc := newTestService(t, deps)
	order := seedOrder(t, deps.db, enums.OrderStatusPending, enums.PaymentStatusPending, 3)

	if err := svc.ProcessPendingOrders(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}

	var stored models.Order
	if err := deps.db.First(&stored, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if stored.Status != enums.OrderStatusFailed {
		t.Fatalf("status = %s, want failed", stored.Status)
	}
	if deps.dispatcher.calls != 2 {
		t.Fatalf("dispatcher calls = %d, want 2 (third item aborted)", deps.dispatcher.calls)
	}
	if deps.initiator.calls != 0 {
		t.Fatal("payout must not run for a failed order")
	}
}

func TestProcessSkipsPayoutWhenActiveTransferExists(t *testing.T) {
	deps := defaultDeps(t)
	deps.transfers.rows = []models.ProfitTransfer{{Status: enums.TransferStatusPending}}
	svc := newTestService(t, deps)
	seedOrder(t, deps.db, enums.OrderStatusPending, enums.PaymentStatusPaid, 1)

	if err := svc.ProcessPendingOrders(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if deps.initiator.calls != 0 {
		t.Fatalf("initiator calls = %d, want 0 with active transfer", deps.initiator.calls)
	}
}

func TestProcessResumesStaleFulfillingOrder(t *testing.T) {
	deps := defaultDeps(t)
	svc := newTestService(t, deps)

	order := seedOrder(t, deps.db, enums.OrderStatusFulfilling, enums.PaymentStatusPaid, 2)
	// one item already dispatched before the crash
	dispatched := order.Items[0].ID
	soID := uuid.New()
	if err := deps.db.Model(&models.OrderItem{}).Where("id = ?", dispatched).
		Update("supplier_order_id", soID).Error; err != nil {
		t.Fatalf("seed dispatched item: %v", err)
	}
	if err := deps.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("updated_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("age order: %v", err)
	}

	if err := svc.ProcessPendingOrders(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}

	var stored models.Order
	if err := deps.db.First(&stored, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if stored.Status != enums.OrderStatusCompleted {
		t.Fatalf("status = %s, want completed after resume", stored.Status)
	}
	if deps.verifier.calls != 0 {
		t.Fatal("paid order must not be re-verified on resume")
	}
	if deps.dispatcher.calls != 1 {
		t.Fatalf("dispatcher calls = %d, want 1 (dispatched item skipped)", deps.dispatcher.calls)
	}
}

func TestProcessRejectsInconsistentStatusTransition(t *testing.T) {
	deps := defaultDeps(t)
	svc := newTestService(t, deps)

	// fulfilling without a confirmed payment is corrupt state; the run
	// must refuse to move it rather than rewind the status
	order := seedOrder(t, deps.db, enums.OrderStatusFulfilling, enums.PaymentStatusPending, 1)
	if err := deps.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("updated_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("age order: %v", err)
	}

	err := svc.ProcessPendingOrders(context.Background())
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}

	var stored models.Order
	if err := deps.db.First(&stored, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if stored.Status != enums.OrderStatusFulfilling {
		t.Fatalf("status = %s, want fulfilling left untouched", stored.Status)
	}
	if stored.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("payment_status = %s, want pending left untouched", stored.PaymentStatus)
	}
}

func TestProcessBatchBoundCoversStaleResumes(t *testing.T) {
	deps := defaultDeps(t)
	deps.batchSize = 1
	svc := newTestService(t, deps)

	fresh := seedOrder(t, deps.db, enums.OrderStatusPending, enums.PaymentStatusPending, 1)
	stale := seedOrder(t, deps.db, enums.OrderStatusFulfilling, enums.PaymentStatusPaid, 1)
	if err := deps.db.Model(&models.Order{}).Where("id = ?", stale.ID).
		Update("updated_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("age order: %v", err)
	}

	if err := svc.ProcessPendingOrders(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	var first, second models.Order
	if err := deps.db.First(&first, "id = ?", fresh.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if first.Status != enums.OrderStatusCompleted {
		t.Fatalf("fresh order status = %s, want completed", first.Status)
	}
	if err := deps.db.First(&second, "id = ?", stale.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if second.Status != enums.OrderStatusFulfilling {
		t.Fatalf("stale order status = %s, want deferred to the next run", second.Status)
	}

	if err := svc.ProcessPendingOrders(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if err := deps.db.First(&second, "id = ?", stale.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if second.Status != enums.OrderStatusCompleted {
		t.Fatalf("stale order status = %s, want completed after resume", second.Status)
	}
}

func TestCreateOrderRejectsUnsupportedMethod(t *testing.T) {
	deps := defaultDeps(t)
	svc := newTestService(t, deps)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName:  "A",
		CustomerEmail: "a@b.c",
		PaymentMethod: enums.PaymentMethod("bank_transfer"),
		Items: []CreateOrderItemInput{
			{ProductID: uuid.New(), ProductName: "X", Qty: 1, UnitPriceCents: 100, SupplierName: "s"},
		},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnsupportedPaymentMethod) {
		t.Fatalf("expected UNSUPPORTED_PAYMENT_METHOD, got %v", err)
	}
}

func TestCreateOrderComputesTotals(t *testing.T) {
	deps := defaultDeps(t)
	svc := newTestService(t, deps)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName:  "Jamie Doe",
		CustomerEmail: "jamie@example.com",
		ShippingAddress: types.Address{
			Line1: "1 Elm St", City: "Denver", PostalCode: "80202", Country: "US",
		},
		PaymentMethod: enums.PaymentMethodManual,
		Items: []CreateOrderItemInput{
			{ProductID: uuid.New(), ProductName: "A", Qty: 2, UnitPriceCents: 500, SupplierName: "s1"},
			{ProductID: uuid.New(), ProductName: "B", Qty: 1, UnitPriceCents: 250, SupplierName: "s2"},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.TotalCents != 1250 {
		t.Fatalf("total = %d, want 1250", order.TotalCents)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("status = %s, want pending", order.Status)
	}
	if order.OrderNumber == "" {
		t.Fatal("order number not generated")
	}
}

func TestMarkOrderPaidConflicts(t *testing.T) {
	deps := defaultDeps(t)
	svc := newTestService(t, deps)

	paid := seedOrder(t, deps.db, enums.OrderStatusPending, enums.PaymentStatusPaid, 1)
	if err := svc.MarkOrderPaid(context.Background(), paid.ID); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT for already-paid order, got %v", err)
	}

	completed := seedOrder(t, deps.db, enums.OrderStatusCompleted, enums.PaymentStatusPaid, 1)
	if err := svc.MarkOrderPaid(context.Background(), completed.ID); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT for terminal order, got %v", err)
	}

	fresh := seedOrder(t, deps.db, enums.OrderStatusPending, enums.PaymentStatusPending, 1)
	if err := svc.MarkOrderPaid(context.Background(), fresh.ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	var stored models.Order
	if err := deps.db.First(&stored, "id = ?", fresh.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if stored.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment_status = %s, want paid", stored.PaymentStatus)
	}
}

func TestGetOrderStatusNotFound(t *testing.T) {
	deps := defaultDeps(t)
	svc := newTestService(t, deps)

	_, err := svc.GetOrderStatus(context.Background(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
