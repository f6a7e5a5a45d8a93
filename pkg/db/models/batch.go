package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Batch is one receipt lot of a product. Quantity may reach zero but rows are
// never physically deleted; outbound and return transactions mutate Qty only
// inside a transaction that also re-derives the product aggregate.
type Batch struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID   uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;index"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	LotNo      string          `gorm:"column:lot_no;not null"`
	Qty        int             `gorm:"column:qty;not null;default:0"`
	ExpiresAt  *time.Time      `gorm:"column:expires_at"`
	Location   string          `gorm:"column:location"`
	UnitCost   decimal.Decimal `gorm:"column:unit_cost;type:numeric(12,2);not null;default:0"`
	ReceivedAt time.Time       `gorm:"column:received_at;autoCreateTime"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
