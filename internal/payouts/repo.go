package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/dropflowhq/dropflow-backend/pkg/db"
	"github.com/dropflowhq/dropflow-backend/pkg/db/models"
	"github.com/dropflowhq/dropflow-backend/pkg/enums"
)

// Repository persists profit transfers. Rows are append-only; only
// status and notes change after insert.
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

func (r *Repository) Insert(ctx context.Context, transfer *models.ProfitTransfer) error {
	if err := r.db.WithContext(ctx).Create(transfer).Error; err != nil {
		return dbpkg.Translate(err, "profit transfer not found")
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProfitTransfer, error) {
	var transfer models.ProfitTransfer
	if err := r.db.WithContext(ctx).First(&transfer, "id = ?", id).Error; err != nil {
		return nil, dbpkg.Translate(err, "profit transfer not found")
	}
	return &transfer, nil
}

func (r *Repository) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProfitTransfer{}).
		Where("order_id = ?", orderID).
		Count(&count).Error; err != nil {
		return 0, dbpkg.Translate(err, "profit transfers not found")
	}
	return count, nil
}

func (r *Repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ProfitTransfer, error) {
	var rows []models.ProfitTransfer
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("attempt ASC").
		Find(&rows).Error; err != nil {
		return nil, dbpkg.Translate(err, "profit transfers not found")
	}
	return rows, nil
}

// ListPendingProcessor returns processor transfers awaiting reconciliation.
func (r *Repository) ListPendingProcessor(ctx context.Context, limit int) ([]models.ProfitTransfer, error) {
	var rows []models.ProfitTransfer
	if err := r.db.WithContext(ctx).
		Where("status = ? AND method = ?", enums.TransferStatusPending, enums.TransferMethodProcessor).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, dbpkg.Translate(err, "profit transfers not found")
	}
	return rows, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.TransferStatus, notes *string) error {
	updates := map[string]any{"status": status}
	if notes != nil {
		updates["notes"] = *notes
	}
	res := r.db.WithContext(ctx).Model(&models.ProfitTransfer{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return dbpkg.Translate(res.Error, "profit transfer not found")
	}
	if res.RowsAffected == 0 {
		return dbpkg.Translate(gorm.ErrRecordNotFound, "profit transfer not found")
	}
	return nil
}
