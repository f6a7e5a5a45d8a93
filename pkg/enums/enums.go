package enums

// OrderStatus is the lifecycle state of a purchase order.
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusSupplierConfirmed OrderStatus = "supplier_confirmed"
	OrderStatusRejected          OrderStatus = "rejected"
	OrderStatusConfirmedRejected OrderStatus = "confirmed_rejected"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusArchived          OrderStatus = "archived"
)

// Valid reports whether the value is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusSupplierConfirmed, OrderStatusRejected,
		OrderStatusConfirmedRejected, OrderStatusCompleted, OrderStatusCancelled,
		OrderStatusArchived:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are allowed from s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusArchived, OrderStatusConfirmedRejected:
		return true
	default:
		return false
	}
}

// OutboundType distinguishes the dispensing variants.
type OutboundType string

const (
	OutboundTypePlain   OutboundType = "plain"
	OutboundTypePackage OutboundType = "package"
	OutboundTypeUnified OutboundType = "unified"
)

func (t OutboundType) Valid() bool {
	switch t {
	case OutboundTypePlain, OutboundTypePackage, OutboundTypeUnified:
		return true
	default:
		return false
	}
}

// ReturnStatus is the lifecycle state of an order return.
type ReturnStatus string

const (
	ReturnStatusPending   ReturnStatus = "pending"
	ReturnStatusCompleted ReturnStatus = "completed"
)
