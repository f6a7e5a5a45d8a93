package outbound

import (
	"context"
	"time"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/arbormed/clinicstock-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryFilters narrows the dispensing history listing.
type HistoryFilters struct {
	From      *time.Time
	To        *time.Time
	ProductID *uuid.UUID
	Manager   string
	Query     string
}

// Page is one page of dispensing history.
type Page struct {
	Txns       []models.OutboundTxn
	NextCursor string
}

// Repository persists outbound transactions. Rows are append-only; there are
// no update or delete operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.OutboundTxn) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.OutboundTxn, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filters HistoryFilters) (*Page, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an outbound repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.OutboundTxn) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.OutboundTxn, error) {
	var txn models.OutboundTxn
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Batch").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filters HistoryFilters) (*Page, error) {
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.OutboundTxn{}).
		Preload("Product").
		Preload("Batch").
		Where("outbound_txns.tenant_id = ?", tenantID)

	if filters.From != nil {
		query = query.Where("outbound_txns.created_at >= ?", *filters.From)
	}
	if filters.To != nil {
		query = query.Where("outbound_txns.created_at <= ?", *filters.To)
	}
	if filters.ProductID != nil {
		query = query.Where("outbound_txns.product_id = ?", *filters.ProductID)
	}
	if filters.Manager != "" {
		query = query.Where("outbound_txns.manager_name = ?", filters.Manager)
	}
	if filters.Query != "" {
		like := "%" + filters.Query + "%"
		query = query.
			Joins("JOIN products ON products.id = outbound_txns.product_id").
			Where(
				"products.name LIKE ? OR outbound_txns.patient_name LIKE ? OR outbound_txns.chart_no LIKE ? OR outbound_txns.memo LIKE ?",
				like, like, like, like,
			)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(outbound_txns.created_at, outbound_txns.id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.OutboundTxn
	err = query.
		Order("outbound_txns.created_at DESC, outbound_txns.id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	page := &Page{Txns: rows}
	normalized := pagination.NormalizeLimit(params.Limit)
	if len(rows) > normalized {
		page.Txns = rows[:normalized]
		last := page.Txns[len(page.Txns)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}
