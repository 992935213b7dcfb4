package suppliers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/dropflowhq/dropflow-backend/pkg/db"
	"github.com/dropflowhq/dropflow-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a clone bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Insert(ctx context.Context, so *models.SupplierOrder) error {
	if err := r.db.WithContext(ctx).Create(so).Error; err != nil {
		return dbpkg.Translate(err, "supplier order not found")
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.SupplierOrder, error) {
	var so models.SupplierOrder
	if err := r.db.WithContext(ctx).First(&so, "id = ?", id).Error; err != nil {
		return nil, dbpkg.Translate(err, "supplier order not found")
	}
	return &so, nil
}

func (r *Repository) GetByReference(ctx context.Context, reference string) (*models.SupplierOrder, error) {
	var so models.SupplierOrder
	if err := r.db.WithContext(ctx).First(&so, "reference = ?", reference).Error; err != nil {
		return nil, dbpkg.Translate(err, "supplier order not found")
	}
	return &so, nil
}

func (r *Repository) ListByOrderItemIDs(ctx context.Context, itemIDs []uuid.UUID) ([]models.SupplierOrder, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var rows []models.SupplierOrder
	if err := r.db.WithContext(ctx).
		Where("order_item_id IN ?", itemIDs).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, dbpkg.Translate(err, "supplier orders not found")
	}
	return rows, nil
}
