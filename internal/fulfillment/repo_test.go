package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dropflowhq/dropflow-backend/pkg/db/models"
	"github.com/dropflowhq/dropflow-backend/pkg/enums"
	"github.com/dropflowhq/dropflow-backend/pkg/types"
)

func setupFulfillmentTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	statements := []string{`
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  shipping_address TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  payment_ref TEXT,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  status TEXT NOT NULL DEFAULT 'pending',
  total_cents INTEGER NOT NULL,
  profit_cents INTEGER,
  error_message TEXT,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  margin_fraction TEXT,
  supplier_name TEXT NOT NULL,
  supplier_order_id TEXT,
  fulfillment_status TEXT NOT NULL DEFAULT 'pending',
  tracking_number TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS supplier_orders (
  id TEXT PRIMARY KEY,
  reference TEXT NOT NULL UNIQUE,
  supplier_name TEXT NOT NULL,
  order_item_id TEXT NOT NULL,
  shipping_address TEXT NOT NULL,
  total_cents INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'placed',
  estimated_delivery_at DATETIME,
  tracking_number TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS profit_transfers (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  method TEXT NOT NULL,
  transfer_ref TEXT,
  status TEXT NOT NULL,
  notes TEXT,
  attempt INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, status enums.OrderStatus, paymentStatus enums.PaymentStatus, itemCount int) *models.Order {
	t.Helper()
	ref := "pi_test"
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "DF-" + uuid.NewString()[:13],
		CustomerName:  "Jamie Doe",
		CustomerEmail: "jamie@example.com",
		ShippingAddress: types.Address{
			Line1: "1 Elm St", City: "Denver", PostalCode: "80202", Country: "US",
		},
		PaymentMethod: enums.PaymentMethodStripe,
		PaymentRef:    &ref,
		PaymentStatus: paymentStatus,
		Status:        status,
	}
	for i := 0; i < itemCount; i++ {
		order.Items = append(order.Items, models.OrderItem{
			ID:                uuid.New(),
			ProductID:         uuid.New(),
			ProductName:       "Widget",
			Qty:               1,
			UnitPriceCents:    1000,
			TotalCents:        1000,
			SupplierName:      "us-warehouse",
			FulfillmentStatus: enums.ItemFulfillmentPending,
		})
		order.TotalCents += 1000
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestClaimPendingIsExclusive(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	repo := NewRepository(db)
	order := seedOrder(t, db, enums.OrderStatusPending, enums.PaymentStatusPending, 1)

	claimed, err := repo.ClaimPending(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	again, err := repo.ClaimPending(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, again, "second claim must lose")

	stored, err := repo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaymentVerifying, stored.Status)
}

func TestFetchPendingOldestFirstWithItems(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	repo := NewRepository(db)

	older := seedOrder(t, db, enums.OrderStatusPending, enums.PaymentStatusPending, 2)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", older.ID).
		Update("created_at", time.Now().Add(-time.Hour)).Error)
	newer := seedOrder(t, db, enums.OrderStatusPending, enums.PaymentStatusPending, 1)
	seedOrder(t, db, enums.OrderStatusCompleted, enums.PaymentStatusPaid, 1)

	rows, err := repo.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, older.ID, rows[0].ID)
	assert.Equal(t, newer.ID, rows[1].ID)
	assert.Len(t, rows[0].Items, 2, "items must be eagerly loaded")
}

func TestFetchStaleInFlight(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	repo := NewRepository(db)

	stale := seedOrder(t, db, enums.OrderStatusFulfilling, enums.PaymentStatusPaid, 1)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", stale.ID).
		Update("updated_at", time.Now().Add(-time.Hour)).Error)
	fresh := seedOrder(t, db, enums.OrderStatusFulfilling, enums.PaymentStatusPaid, 1)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", fresh.ID).
		Update("updated_at", time.Now()).Error)
	seedOrder(t, db, enums.OrderStatusPending, enums.PaymentStatusPending, 1)

	rows, err := repo.FetchStaleInFlight(context.Background(), time.Now().Add(-15*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.ID, rows[0].ID)
}

func TestUpdateOrderUnknownID(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	repo := NewRepository(db)

	err := repo.UpdateOrder(context.Background(), uuid.New(), map[string]any{"status": enums.OrderStatusFailed})
	require.Error(t, err)
}
