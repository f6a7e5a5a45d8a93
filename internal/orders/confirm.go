package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/arbormed/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/arbormed/clinicstock-backend/pkg/errors"
	"github.com/arbormed/clinicstock-backend/pkg/ordernum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ApplyConfirmation reconciles a supplier confirmation callback against the
// local order. The snapshot fields (status, total, adjustments) are
// last-write-wins; item overwrites are absolute SETs, so replaying the same
// payload converges to the same state.
func (s *service) ApplyConfirmation(ctx context.Context, payload ConfirmationPayload) (uuid.UUID, error) {
	if payload.OrderNo == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	if payload.TenantID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	status, err := remoteOrderStatus(payload.Status)
	if err != nil {
		return uuid.Nil, err
	}

	adjustments := payload.Adjustments
	if len(adjustments) == 0 {
		adjustments = payload.UpdatedItems
	}

	base := ordernum.Parse(payload.OrderNo).Base
	ctx = s.log.WithOrderNo(ctx, base)

	var orderID uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByNo(ctx, payload.TenantID, base)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		orderID = order.ID
		now := time.Now().UTC()

		var rejects []models.RejectedOrder
		for _, adj := range adjustments {
			item, tier := matchItem(order.Items, adj)
			if item == nil {
				s.log.Warn(ctx, fmt.Sprintf(
					"confirmation adjustment matched no order line (tier=%s product=%q)",
					tier, adj.ProductName,
				))
				continue
			}

			if adj.Reason != "" {
				memo := adj.Reason
				if err := repo.UpdateItem(ctx, item.ID, map[string]any{"memo": memo}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record item rejection")
				}
				rejects = append(rejects, rejectedRecord(order, item, adj))
			} else {
				qty := item.Qty
				if adj.Qty != nil {
					qty = *adj.Qty
				}
				price := item.UnitPrice
				if adj.UnitPrice != nil {
					price = *adj.UnitPrice
				}
				total := price.Mul(decimal.NewFromInt(int64(qty)))
				err := repo.UpdateItem(ctx, item.ID, map[string]any{
					"qty":         qty,
					"unit_price":  price,
					"total_price": total,
				})
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply item adjustment")
				}
				item.Qty = qty
				item.UnitPrice = price
				item.TotalPrice = total
			}
			s.log.Info(ctx, fmt.Sprintf("confirmation adjustment applied (tier=%s)", tier))
		}

		updates := map[string]any{"status": status}
		switch status {
		case enums.OrderStatusSupplierConfirmed, enums.OrderStatusConfirmedRejected:
			// An outright rejection is not a confirmation and carries no
			// confirmation timestamp.
			confirmedAt := now
			if payload.ConfirmedAt != nil {
				confirmedAt = payload.ConfirmedAt.UTC()
			}
			updates["confirmed_at"] = confirmedAt
		}
		if payload.TotalAmount != nil {
			updates["total_amount"] = *payload.TotalAmount
		} else if len(adjustments) > 0 {
			updates["total_amount"] = itemsTotal(order.Items)
		}
		if len(adjustments) > 0 {
			snapshot, err := json.Marshal(adjustments)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal adjustments snapshot")
			}
			updates["adjustments"] = string(snapshot)
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		if err := repo.CreateRejectedOrders(ctx, rejects); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record rejected items")
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.invalidateOrderViews(ctx, payload.TenantID)
	return orderID, nil
}

// ApplySplit handles the order_split callback: the remote platform has split
// the original order into exactly two derivative orders. The original is
// archived with a memo cross-referencing both derivatives.
func (s *service) ApplySplit(ctx context.Context, payload SplitPayload) error {
	if payload.Type != "order_split" {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported callback type").
			WithDetails(map[string]any{"type": payload.Type})
	}
	if payload.TenantID == uuid.Nil || payload.OriginalOrderNo == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant and original order number required")
	}
	if len(payload.Orders) != 2 {
		return pkgerrors.New(pkgerrors.CodeValidation, "split callback must carry exactly two orders").
			WithDetails(map[string]any{"count": len(payload.Orders)})
	}

	base := ordernum.Parse(payload.OriginalOrderNo).Base
	ctx = s.log.WithOrderNo(ctx, base)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		original, err := repo.FindByNo(ctx, payload.TenantID, base)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if original.Status == enums.OrderStatusArchived {
			// Replayed callback; the split has already been recorded.
			s.log.Info(ctx, "split callback replay ignored, original already archived")
			return nil
		}

		now := time.Now().UTC()
		derivativeNos := make([]string, 0, len(payload.Orders))
		for _, remote := range payload.Orders {
			status, err := remoteOrderStatus(remote.Status)
			if err != nil {
				return err
			}
			items := make([]models.OrderItem, 0, len(remote.Items))
			for _, line := range remote.Items {
				if line.ProductID == uuid.Nil || line.Qty <= 0 {
					return pkgerrors.New(pkgerrors.CodeValidation, "split order line invalid").
						WithDetails(map[string]any{"order_no": remote.OrderNo})
				}
				items = append(items, models.OrderItem{
					ProductID:  line.ProductID,
					Qty:        line.Qty,
					UnitPrice:  line.UnitPrice,
					TotalPrice: line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Qty))),
				})
			}

			memo := fmt.Sprintf("split from %s", base)
			derivative := &models.Order{
				TenantID:    payload.TenantID,
				OrderNo:     remote.OrderNo,
				Status:      status,
				SupplierID:  original.SupplierID,
				TotalAmount: remote.TotalAmount,
				Memo:        &memo,
				CreatedBy:   original.CreatedBy,
				Items:       items,
			}
			if status != enums.OrderStatusPending {
				confirmed := now
				derivative.ConfirmedAt = &confirmed
			}
			if err := repo.Create(ctx, derivative); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create derivative order")
			}
			derivativeNos = append(derivativeNos, remote.OrderNo)
		}

		memo := fmt.Sprintf("split into %s", strings.Join(derivativeNos, ", "))
		err = repo.UpdateOrder(ctx, original.ID, map[string]any{
			"status": enums.OrderStatusArchived,
			"memo":   memo,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive original order")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateOrderViews(ctx, payload.TenantID)
	return nil
}

// remoteOrderStatus maps the remote platform's status vocabulary onto the
// local enum.
func remoteOrderStatus(value string) (enums.OrderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "pending":
		return enums.OrderStatusPending, nil
	case "supplier_confirmed", "confirmed":
		return enums.OrderStatusSupplierConfirmed, nil
	case "rejected":
		return enums.OrderStatusRejected, nil
	case "confirmed_rejected", "partially_rejected":
		return enums.OrderStatusConfirmedRejected, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported order status").
			WithDetails(map[string]any{"status": value})
	}
}

func rejectedRecord(order *models.Order, item *models.OrderItem, adj Adjustment) models.RejectedOrder {
	record := models.RejectedOrder{
		TenantID:    order.TenantID,
		OrderID:     order.ID,
		OrderItemID: &item.ID,
		ManagerName: order.CreatedBy,
		ProductName: adj.ProductName,
		Qty:         item.Qty,
		UnitPrice:   item.UnitPrice,
		Reason:      adj.Reason,
	}
	if order.Supplier != nil {
		record.SupplierName = order.Supplier.Name
	}
	if record.ProductName == "" && item.Product != nil {
		record.ProductName = item.Product.Name
	}
	return record
}

func itemsTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalPrice)
	}
	return total
}
