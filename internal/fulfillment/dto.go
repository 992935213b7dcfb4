package fulfillment

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dropflowhq/dropflow-backend/internal/suppliers"
	"github.com/dropflowhq/dropflow-backend/pkg/db/models"
	"github.com/dropflowhq/dropflow-backend/pkg/enums"
	"github.com/dropflowhq/dropflow-backend/pkg/types"
)

// CreateOrderInput is the intake payload for a new order.
type CreateOrderInput struct {
	CustomerName    string
	CustomerEmail   string
	ShippingAddress types.Address
	PaymentMethod   enums.PaymentMethod
	PaymentRef      *string
	Items           []CreateOrderItemInput
}

type CreateOrderItemInput struct {
	ProductID      uuid.UUID
	ProductName    string
	Qty            int
	UnitPriceCents int64
	MarginFraction *decimal.Decimal
	SupplierName   string
}

// OrderStatusView is the status query result: the order plus the
// supplier orders backing its items.
type OrderStatusView struct {
	Order          *models.Order           `json:"order"`
	SupplierOrders []models.SupplierOrder  `json:"supplier_orders"`
	Transfers      []models.ProfitTransfer `json:"transfers,omitempty"`
}

// TrackingInfo re-exported for API callers.
type TrackingInfo = suppliers.TrackingInfo
