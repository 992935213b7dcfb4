package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dropflowhq/dropflow-backend/pkg/enums"
	"github.com/dropflowhq/dropflow-backend/pkg/types"
)

type SupplierOrder struct {
	ID                  uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Reference           string                    `gorm:"column:reference;uniqueIndex" json:"reference"`
	SupplierName        string                    `gorm:"column:supplier_name;index" json:"supplier_name"`
	OrderItemID         uuid.UUID                 `gorm:"column:order_item_id;type:uuid;index" json:"order_item_id"`
	ShippingAddress     types.Address             `gorm:"column:shipping_address;type:jsonb" json:"shipping_address"`
	TotalCents          int64                     `gorm:"column:total_cents" json:"total_cents"`
	Status              enums.SupplierOrderStatus `gorm:"column:status;default:placed" json:"status"`
	EstimatedDeliveryAt time.Time                 `gorm:"column:estimated_delivery_at" json:"estimated_delivery_at"`
	TrackingNumber      *string                   `gorm:"column:tracking_number" json:"tracking_number,omitempty"`
	CreatedAt           time.Time                 `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time                 `gorm:"column:updated_at" json:"updated_at"`
}

func (SupplierOrder) TableName() string {
	return "supplier_orders"
}
