package drafts

import (
	"context"
	"time"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes draft persistence. Items are always loaded with their
// draft so services can merge lines without extra round trips.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, draft *models.OrderDraft) (*models.OrderDraft, error)
	FindBySession(ctx context.Context, tenantID uuid.UUID, sessionID string) (*models.OrderDraft, error)
	UpdateDraft(ctx context.Context, draftID uuid.UUID, updates map[string]any) error
	CreateItem(ctx context.Context, item *models.DraftItem) error
	UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	DeleteItems(ctx context.Context, draftID uuid.UUID) error
	Delete(ctx context.Context, draftID uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a draft repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, draft *models.OrderDraft) (*models.OrderDraft, error) {
	if err := r.db.WithContext(ctx).Create(draft).Error; err != nil {
		return nil, err
	}
	return draft, nil
}

func (r *repository) FindBySession(ctx context.Context, tenantID uuid.UUID, sessionID string) (*models.OrderDraft, error) {
	var draft models.OrderDraft
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND session_id = ?", tenantID, sessionID).
		First(&draft).Error
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *repository) UpdateDraft(ctx context.Context, draftID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderDraft{}).
		Where("id = ?", draftID).
		Updates(updates).Error
}

func (r *repository) CreateItem(ctx context.Context, item *models.DraftItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.DraftItem{}).
		Where("id = ?", itemID).
		Updates(updates).Error
}

func (r *repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", itemID).
		Delete(&models.DraftItem{}).Error
}

func (r *repository) DeleteItems(ctx context.Context, draftID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("draft_id = ?", draftID).
		Delete(&models.DraftItem{}).Error
}

func (r *repository) Delete(ctx context.Context, draftID uuid.UUID) error {
	if err := r.DeleteItems(ctx, draftID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", draftID).
		Delete(&models.OrderDraft{}).Error
}

// DeleteExpired removes drafts whose TTL lapsed before now, items first.
func (r *repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	err := r.db.WithContext(ctx).Exec(`
		DELETE FROM draft_items
		WHERE draft_id IN (SELECT id FROM order_drafts WHERE expires_at < ?)
	`, now).Error
	if err != nil {
		return 0, err
	}

	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.OrderDraft{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
