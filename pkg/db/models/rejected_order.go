package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RejectedOrder is a denormalized audit line written once per rejected order
// item at confirmation time. It exists purely for history display and plays no
// part in the order state machine.
type RejectedOrder struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID     uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;index"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	OrderItemID  *uuid.UUID      `gorm:"column:order_item_id;type:uuid"`
	SupplierName string          `gorm:"column:supplier_name"`
	ManagerName  string          `gorm:"column:manager_name"`
	ProductName  string          `gorm:"column:product_name;not null"`
	Qty          int             `gorm:"column:qty;not null"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	Reason       string          `gorm:"column:reason"`
	RejectedAt   time.Time       `gorm:"column:rejected_at;autoCreateTime"`
}
