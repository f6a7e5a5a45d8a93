package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/arbormed/clinicstock-backend/pkg/enums"
)

// OutboundTxn records one dispensing movement. Rows are immutable once
// created; the only side effect is the batch decrement committed in the same
// transaction.
type OutboundTxn struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID    uuid.UUID          `gorm:"column:tenant_id;type:uuid;not null;index"`
	Type        enums.OutboundType `gorm:"column:type;type:text;not null;default:'plain'"`
	ProductID   uuid.UUID          `gorm:"column:product_id;type:uuid;not null;index"`
	Product     *Product           `gorm:"foreignKey:ProductID"`
	BatchID     uuid.UUID          `gorm:"column:batch_id;type:uuid;not null"`
	Batch       *Batch             `gorm:"foreignKey:BatchID"`
	Qty         int                `gorm:"column:qty;not null"`
	ManagerName string             `gorm:"column:manager_name"`
	PatientName string             `gorm:"column:patient_name"`
	ChartNo     string             `gorm:"column:chart_no"`
	Damaged     bool               `gorm:"column:damaged;not null;default:false"`
	Defective   bool               `gorm:"column:defective;not null;default:false"`
	Memo        *string            `gorm:"column:memo"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}
