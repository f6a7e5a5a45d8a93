package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/arbormed/clinicstock-backend/pkg/enums"
)

// OrderReturn tracks goods sent back to a supplier. Completion arrives as a
// webhook callback and must tolerate duplicate delivery: completing an already
// completed return is a logged no-op.
type OrderReturn struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID    uuid.UUID          `gorm:"column:tenant_id;type:uuid;not null;index:idx_returns_tenant_no,unique"`
	ReturnNo    string             `gorm:"column:return_no;not null;index:idx_returns_tenant_no,unique"`
	OrderID     *uuid.UUID         `gorm:"column:order_id;type:uuid"`
	ProductID   uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	BatchID     uuid.UUID          `gorm:"column:batch_id;type:uuid;not null"`
	Qty         int                `gorm:"column:qty;not null"`
	Reason      string             `gorm:"column:reason"`
	Status      enums.ReturnStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	CompletedAt *time.Time         `gorm:"column:completed_at"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
