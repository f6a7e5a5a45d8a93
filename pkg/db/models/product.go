package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry scoped to one clinic tenant. StockQty is a cached
// aggregate that is re-derived from the product's batches inside every
// stock-mutating transaction; it is never incremented in isolation.
type Product struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID   uuid.UUID        `gorm:"column:tenant_id;type:uuid;not null;index"`
	Name       string           `gorm:"column:name;not null"`
	Brand      string           `gorm:"column:brand"`
	Unit       string           `gorm:"column:unit"`
	UnitPrice  decimal.Decimal  `gorm:"column:unit_price;type:numeric(12,2);not null"`
	StockQty   int              `gorm:"column:stock_qty;not null;default:0"`
	SupplierID *uuid.UUID       `gorm:"column:supplier_id;type:uuid"`
	Supplier   *SupplierContact `gorm:"foreignKey:SupplierID"`
	Batches    []Batch          `gorm:"foreignKey:ProductID"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
