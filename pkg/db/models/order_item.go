package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dropflowhq/dropflow-backend/pkg/enums"
)

type OrderItem struct {
	ID                uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrderID           uuid.UUID                   `gorm:"column:order_id;type:uuid;index" json:"order_id"`
	ProductID         uuid.UUID                   `gorm:"column:product_id;type:uuid" json:"product_id"`
	ProductName       string                      `gorm:"column:product_name" json:"product_name"`
	Qty               int                         `gorm:"column:qty" json:"qty"`
	UnitPriceCents    int64                       `gorm:"column:unit_price_cents" json:"unit_price_cents"`
	TotalCents        int64                       `gorm:"column:total_cents" json:"total_cents"`
	MarginFraction    *decimal.Decimal            `gorm:"column:margin_fraction;type:numeric(5,4)" json:"margin_fraction,omitempty"`
	SupplierName      string                      `gorm:"column:supplier_name" json:"supplier_name"`
	SupplierOrderID   *uuid.UUID                  `gorm:"column:supplier_order_id;type:uuid" json:"supplier_order_id,omitempty"`
	FulfillmentStatus enums.ItemFulfillmentStatus `gorm:"column:fulfillment_status;default:pending" json:"fulfillment_status"`
	TrackingNumber    *string                     `gorm:"column:tracking_number" json:"tracking_number,omitempty"`
	CreatedAt         time.Time                   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time                   `gorm:"column:updated_at" json:"updated_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
