package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arbormed/clinicstock-backend/pkg/enums"
)

// Order is a per-supplier purchase order produced by splitting a draft.
// OrderNo stores the suffixed external form; correlation with the remote
// platform always strips the split suffix first.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID    uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;index:idx_orders_tenant_no,unique"`
	OrderNo     string            `gorm:"column:order_no;not null;index:idx_orders_tenant_no,unique"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	SupplierID  *uuid.UUID        `gorm:"column:supplier_id;type:uuid"`
	Supplier    *SupplierContact  `gorm:"foreignKey:SupplierID"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(14,2);not null;default:0"`
	ConfirmedAt *time.Time        `gorm:"column:confirmed_at"`
	Adjustments *string           `gorm:"column:adjustments"`
	Memo        *string           `gorm:"column:memo"`
	CreatedBy   string            `gorm:"column:created_by"`
	Items       []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is one line of an order. Qty and UnitPrice may be overwritten by
// confirmed-adjustment reconciliation; that is a deliberate in-place mutation,
// not a new version. Memo carries supplier rejection reasons.
type OrderItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Product    *Product        `gorm:"foreignKey:ProductID"`
	BatchID    *uuid.UUID      `gorm:"column:batch_id;type:uuid"`
	Qty        int             `gorm:"column:qty;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice decimal.Decimal `gorm:"column:total_price;type:numeric(14,2);not null"`
	Memo       *string         `gorm:"column:memo"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
