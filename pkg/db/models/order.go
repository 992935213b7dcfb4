package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dropflowhq/dropflow-backend/pkg/enums"
	"github.com/dropflowhq/dropflow-backend/pkg/types"
)

type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrderNumber     string              `gorm:"column:order_number;uniqueIndex" json:"order_number"`
	CustomerName    string              `gorm:"column:customer_name" json:"customer_name"`
	CustomerEmail   string              `gorm:"column:customer_email" json:"customer_email"`
	ShippingAddress types.Address       `gorm:"column:shipping_address;type:jsonb" json:"shipping_address"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method" json:"payment_method"`
	PaymentRef      *string             `gorm:"column:payment_ref" json:"payment_ref,omitempty"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;default:pending" json:"payment_status"`
	Status          enums.OrderStatus   `gorm:"column:status;index;default:pending" json:"status"`
	TotalCents      int64               `gorm:"column:total_cents" json:"total_cents"`
	ProfitCents     *int64              `gorm:"column:profit_cents" json:"profit_cents,omitempty"`
	ErrorMessage    *string             `gorm:"column:error_message" json:"error_message,omitempty"`
	CompletedAt     *time.Time          `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time           `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"column:updated_at" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}
