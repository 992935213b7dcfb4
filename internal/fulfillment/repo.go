package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/dropflowhq/dropflow-backend/pkg/db"
	"github.com/dropflowhq/dropflow-backend/pkg/db/models"
	"github.com/dropflowhq/dropflow-backend/pkg/enums"
)

// Repository is the ledger store for orders and their items.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return dbpkg.Translate(err, "order not found")
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.created_at ASC")
		}).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, dbpkg.Translate(err, "order not found")
	}
	return &order, nil
}

// FetchPending returns up to limit pending orders, oldest first, items
// eagerly loaded.
func (r *Repository) FetchPending(ctx context.Context, limit int) ([]models.Order, error) {
	var rows []models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.created_at ASC")
		}).
		Where("status = ?", enums.OrderStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, dbpkg.Translate(err, "orders not found")
	}
	return rows, nil
}

// FetchStaleInFlight returns in-flight orders whose last update is older
// than the cutoff, so interrupted runs get resumed.
func (r *Repository) FetchStaleInFlight(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.created_at ASC")
		}).
		Where("status IN ? AND updated_at < ?", []enums.OrderStatus{
			enums.OrderStatusPaymentVerifying,
			enums.OrderStatusPaid,
			enums.OrderStatusFulfilling,
		}, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, dbpkg.Translate(err, "orders not found")
	}
	return rows, nil
}

// ClaimPending flips pending -> payment_verifying atomically. A false
// return means another worker already claimed the order.
func (r *Repository) ClaimPending(ctx context.Context, orderID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":     enums.OrderStatusPaymentVerifying,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, dbpkg.Translate(res.Error, "order not found")
	}
	return res.RowsAffected > 0, nil
}

// UpdateOrder applies a partial update and bumps updated_at.
func (r *Repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(fields)
	if res.Error != nil {
		return dbpkg.Translate(res.Error, "order not found")
	}
	if res.RowsAffected == 0 {
		return dbpkg.Translate(gorm.ErrRecordNotFound, "order not found")
	}
	return nil
}

// UpdateItem applies a partial update on an order item.
func (r *Repository) UpdateItem(ctx context.Context, itemID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Updates(fields)
	if res.Error != nil {
		return dbpkg.Translate(res.Error, "order item not found")
	}
	if res.RowsAffected == 0 {
		return dbpkg.Translate(gorm.ErrRecordNotFound, "order item not found")
	}
	return nil
}
