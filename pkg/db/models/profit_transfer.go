package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dropflowhq/dropflow-backend/pkg/enums"
)

// ProfitTransfer rows are append-only per payout attempt; only status
// and notes are mutated after insert.
type ProfitTransfer struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;index" json:"order_id"`
	AmountCents int64                `gorm:"column:amount_cents" json:"amount_cents"`
	Method      enums.TransferMethod `gorm:"column:method" json:"method"`
	TransferRef *string              `gorm:"column:transfer_ref" json:"transfer_ref,omitempty"`
	Status      enums.TransferStatus `gorm:"column:status;index" json:"status"`
	Notes       *string              `gorm:"column:notes" json:"notes,omitempty"`
	Attempt     int                  `gorm:"column:attempt" json:"attempt"`
	CreatedAt   time.Time            `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time            `gorm:"column:updated_at" json:"updated_at"`
}

func (ProfitTransfer) TableName() string {
	return "profit_transfers"
}
