package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineInput is one requested order line before supplier resolution. UnitPrice
// nil means "use the current catalog price".
type LineInput struct {
	ProductID uuid.UUID        `json:"product_id"`
	BatchID   *uuid.UUID       `json:"batch_id,omitempty"`
	Qty       int              `json:"qty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// CreateFromDraftInput converts a session draft into orders.
type CreateFromDraftInput struct {
	SessionID string `json:"session_id"`
	CreatedBy string `json:"created_by"`
}

// CreateDirectInput creates orders from explicitly supplied lines, bypassing
// the draft store.
type CreateDirectInput struct {
	Items     []LineInput `json:"items"`
	CreatedBy string      `json:"created_by"`
}

// Adjustment is one supplier-reported change to an order line. The remote
// system keys items independently, so every identifying field is optional and
// reconciliation falls back through them in order.
type Adjustment struct {
	ItemID      *uuid.UUID       `json:"item_id,omitempty"`
	ProductID   *uuid.UUID       `json:"product_id,omitempty"`
	ProductName string           `json:"product_name,omitempty"`
	Brand       string           `json:"brand,omitempty"`
	Qty         *int             `json:"qty,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	Reason      string           `json:"reason,omitempty"`
}

// ConfirmationPayload is the inbound supplier-confirmed callback body.
type ConfirmationPayload struct {
	OrderNo      string           `json:"orderNo"`
	TenantID     uuid.UUID        `json:"clinicTenantId"`
	Status       string           `json:"status"`
	ConfirmedAt  *time.Time       `json:"confirmedAt,omitempty"`
	TotalAmount  *decimal.Decimal `json:"totalAmount,omitempty"`
	Adjustments  []Adjustment     `json:"adjustments,omitempty"`
	UpdatedItems []Adjustment     `json:"updatedItems,omitempty"`
}

// SplitItem is one line of a supplier-side derivative order.
type SplitItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Qty         int             `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// SplitOrder is one of the two derivative orders in a split callback.
type SplitOrder struct {
	OrderNo     string          `json:"order_no"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []SplitItem     `json:"items"`
}

// SplitPayload is the inbound order-split callback body. The supplier platform
// always sends exactly two derivative orders.
type SplitPayload struct {
	Type            string       `json:"type"`
	OriginalOrderNo string       `json:"original_order_no"`
	TenantID        uuid.UUID    `json:"clinic_tenant_id"`
	Orders          []SplitOrder `json:"orders"`
}

// ReceiveInput records physically received quantities per order item. Items
// absent from the map have not arrived yet.
type ReceiveInput struct {
	Received  map[uuid.UUID]int `json:"received"`
	CreatedBy string            `json:"created_by"`
}

// ReceiveResult reports the orders produced by a goods receipt.
type ReceiveResult struct {
	CompletedOrderID uuid.UUID  `json:"completed_order_id"`
	CompletedOrderNo string     `json:"completed_order_no"`
	RemainderOrderID *uuid.UUID `json:"remainder_order_id,omitempty"`
	RemainderOrderNo *string    `json:"remainder_order_no,omitempty"`
	OriginalArchived bool       `json:"original_archived"`
}
