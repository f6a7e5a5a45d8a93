package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderDraft is the session-scoped scratch cart preceding order creation,
// keyed uniquely by (tenant, session). It is recreated whenever absent or
// expired and deleted once converted into orders.
type OrderDraft struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;index:idx_drafts_tenant_session,unique"`
	SessionID string          `gorm:"column:session_id;not null;index:idx_drafts_tenant_session,unique"`
	Total     decimal.Decimal `gorm:"column:total;type:numeric(14,2);not null;default:0"`
	ExpiresAt time.Time       `gorm:"column:expires_at;not null"`
	Items     []DraftItem     `gorm:"foreignKey:DraftID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Expired reports whether the draft's rolling TTL has lapsed.
func (d *OrderDraft) Expired(now time.Time) bool {
	return d != nil && now.After(d.ExpiresAt)
}

// DraftItem is one transient line of a draft. Identity is derived from
// (product, optional batch) so repeated adds for the same pair merge.
type DraftItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DraftID    uuid.UUID       `gorm:"column:draft_id;type:uuid;not null;index"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	BatchID    *uuid.UUID      `gorm:"column:batch_id;type:uuid"`
	SupplierID *uuid.UUID      `gorm:"column:supplier_id;type:uuid"`
	Qty        int             `gorm:"column:qty;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice decimal.Decimal `gorm:"column:total_price;type:numeric(14,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
