package returns

import (
	"context"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/arbormed/clinicstock-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Page is one page of the return listing.
type Page struct {
	Returns    []models.OrderReturn
	NextCursor string
}

// Repository exposes order-return persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ret *models.OrderReturn) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.OrderReturn, error)
	FindByNo(ctx context.Context, tenantID uuid.UUID, returnNo string) (*models.OrderReturn, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (*Page, error)
	Update(ctx context.Context, returnID uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a return repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ret *models.OrderReturn) error {
	return r.db.WithContext(ctx).Create(ret).Error
}

func (r *repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.OrderReturn, error) {
	var ret models.OrderReturn
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&ret).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *repository) FindByNo(ctx context.Context, tenantID uuid.UUID, returnNo string) (*models.OrderReturn, error) {
	var ret models.OrderReturn
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND return_no = ?", tenantID, returnNo).
		First(&ret).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (*Page, error) {
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.OrderReturn{}).
		Where("tenant_id = ?", tenantID)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.OrderReturn
	err = query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	page := &Page{Returns: rows}
	normalized := pagination.NormalizeLimit(params.Limit)
	if len(rows) > normalized {
		page.Returns = rows[:normalized]
		last := page.Returns[len(page.Returns)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

func (r *repository) Update(ctx context.Context, returnID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderReturn{}).
		Where("id = ?", returnID).
		Updates(updates).Error
}
