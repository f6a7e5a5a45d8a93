package suppliers

import (
	"context"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes supplier contact persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, contact *models.SupplierContact) (*models.SupplierContact, error)
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.SupplierContact, error)
	FindByLinkedTenant(ctx context.Context, tenantID, linkedTenantID uuid.UUID) (*models.SupplierContact, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.SupplierContact, error)
	Update(ctx context.Context, contact *models.SupplierContact) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a supplier repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, contact *models.SupplierContact) (*models.SupplierContact, error) {
	if err := r.db.WithContext(ctx).Create(contact).Error; err != nil {
		return nil, err
	}
	return contact, nil
}

func (r *repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.SupplierContact, error) {
	var contact models.SupplierContact
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *repository) FindByLinkedTenant(ctx context.Context, tenantID, linkedTenantID uuid.UUID) (*models.SupplierContact, error) {
	var contact models.SupplierContact
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND linked_tenant_id = ?", tenantID, linkedTenantID).
		First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.SupplierContact, error) {
	var contacts []models.SupplierContact
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *repository) Update(ctx context.Context, contact *models.SupplierContact) error {
	return r.db.WithContext(ctx).Save(contact).Error
}

func (r *repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.SupplierContact{}).Error
}
