package models

import (
	"time"

	"github.com/google/uuid"
)

// SupplierContact is the clinic-side record of a supplier. LinkedTenantID is
// the resolved identity on the remote supplier platform; when it is nil the
// contact is a manual supplier confirmed out of band, and order notifications
// fall back to SMS/email.
type SupplierContact struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID       uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null;index"`
	Name           string     `gorm:"column:name;not null"`
	ManagerName    string     `gorm:"column:manager_name"`
	Phone          string     `gorm:"column:phone"`
	Email          string     `gorm:"column:email"`
	LinkedTenantID *uuid.UUID `gorm:"column:linked_tenant_id;type:uuid"`
	BaseURL        string     `gorm:"column:base_url"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// PlatformLinked reports whether the contact resolves to a remote supplier
// tenant reachable by webhook.
func (s *SupplierContact) PlatformLinked() bool {
	return s != nil && s.LinkedTenantID != nil
}
