package stock

import (
	"context"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes batch-level persistence for the stock ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, batch *models.Batch) (*models.Batch, error)
	FindBatchByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Batch, error)
	ListBatchesFEFO(ctx context.Context, tenantID, productID uuid.UUID) ([]models.Batch, error)
	DecrementBatchQty(ctx context.Context, batchID uuid.UUID, qty int) (bool, error)
	IncrementBatchQty(ctx context.Context, batchID uuid.UUID, qty int) error
	SumBatchQty(ctx context.Context, productID uuid.UUID) (int, error)
	SetProductStock(ctx context.Context, productID uuid.UUID, qty int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a stock repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, batch *models.Batch) (*models.Batch, error) {
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *repository) FindBatchByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// ListBatchesFEFO returns a product's batches in first-expired-first-out
// picking order; batches without an expiry sort last.
func (r *repository) ListBatchesFEFO(ctx context.Context, tenantID, productID uuid.UUID) ([]models.Batch, error) {
	var batches []models.Batch
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Order("expires_at ASC NULLS LAST, lot_no ASC").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

// DecrementBatchQty applies a guarded decrement; the qty >= ? predicate makes
// the non-negative invariant hold under concurrent deductions. Returns false
// when the guard rejected the row.
func (r *repository) DecrementBatchQty(ctx context.Context, batchID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE batches
		SET qty = qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND qty >= ?
	`, qty, batchID, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) IncrementBatchQty(ctx context.Context, batchID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE batches
		SET qty = qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, batchID).Error
}

func (r *repository) SumBatchQty(ctx context.Context, productID uuid.UUID) (int, error) {
	var total int
	err := r.db.WithContext(ctx).
		Model(&models.Batch{}).
		Select("COALESCE(SUM(qty), 0)").
		Where("product_id = ?", productID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) SetProductStock(ctx context.Context, productID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock_qty", qty).Error
}
