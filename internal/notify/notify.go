package notify

import (
	"context"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderEvent names the lifecycle moment a notification is about.
type OrderEvent string

const (
	OrderEventCreated   OrderEvent = "order_created"
	OrderEventCancelled OrderEvent = "order_cancelled"
	OrderEventCompleted OrderEvent = "order_completed"
)

// Channel identifies the delivery path used for a notification.
type Channel string

const (
	ChannelWebhook   Channel = "webhook"
	ChannelMessenger Channel = "messenger"
	ChannelNone      Channel = "none"
)

// Status is the outcome of one dispatch attempt. Notifications are best effort:
// a Failed result is logged and alerted, never propagated to the caller's
// transaction.
type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result describes a single dispatch outcome.
type Result struct {
	Channel Channel
	Status  Status
	Reason  string
	Err     error
}

// OrderLine is one item snapshot included in an outgoing notification.
type OrderLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand,omitempty"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderNotification carries everything a channel needs to inform a supplier
// about an order event. OrderNo is always the base number so the remote system
// can correlate derivatives.
type OrderNotification struct {
	Event    OrderEvent              `json:"event"`
	TenantID uuid.UUID               `json:"tenant_id"`
	OrderID  uuid.UUID               `json:"order_id"`
	OrderNo  string                  `json:"order_no"`
	Total    decimal.Decimal         `json:"total"`
	Items    []OrderLine             `json:"items,omitempty"`
	Received map[string]int          `json:"received,omitempty"`
	Supplier *models.SupplierContact `json:"-"`
}

// Notifier delivers one notification over one channel.
type Notifier interface {
	Notify(ctx context.Context, n OrderNotification) Result
}
