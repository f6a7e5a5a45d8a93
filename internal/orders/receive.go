package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arbormed/clinicstock-backend/internal/notify"
	"github.com/arbormed/clinicstock-backend/pkg/db"
	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/arbormed/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/arbormed/clinicstock-backend/pkg/errors"
	"github.com/arbormed/clinicstock-backend/pkg/ordernum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReceiveGoods records a physical goods receipt against a confirmed order.
// The received portion becomes a completed derivative order (suffix -C) whose
// lines are turned into stock batches; any remainder becomes a new confirmed
// derivative (suffix -P); the original is archived with a memo referencing
// both. Everything happens in one transaction, so a failed batch creation
// rolls the whole receipt back.
func (s *service) ReceiveGoods(ctx context.Context, tenantID, orderID uuid.UUID, input ReceiveInput) (*ReceiveResult, error) {
	if tenantID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and order are required")
	}
	if len(input.Received) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "received quantities required")
	}

	var (
		result    *ReceiveResult
		completed *models.Order
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, tenantID, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusSupplierConfirmed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot receive goods in current state").
				WithDetails(map[string]any{"status": order.Status})
		}

		receivedItems, remainderItems, err := partitionReceipt(order.Items, input.Received)
		if err != nil {
			return err
		}
		if len(receivedItems) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "no received quantity recorded")
		}

		num := ordernum.Parse(order.OrderNo)
		now := time.Now().UTC()
		createdBy := input.CreatedBy
		if createdBy == "" {
			createdBy = order.CreatedBy
		}

		completedNo := num.WithVariant(ordernum.VariantCompleted).String()
		completedMemo := fmt.Sprintf("received from %s", order.OrderNo)
		completedOrder := &models.Order{
			TenantID:    tenantID,
			OrderNo:     completedNo,
			Status:      enums.OrderStatusCompleted,
			SupplierID:  order.SupplierID,
			TotalAmount: itemsTotal(receivedItems),
			ConfirmedAt: order.ConfirmedAt,
			Memo:        &completedMemo,
			CreatedBy:   createdBy,
			Items:       receivedItems,
		}
		if err := repo.Create(ctx, completedOrder); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create completed order")
		}

		for _, item := range completedOrder.Items {
			batch := &models.Batch{
				TenantID:  tenantID,
				ProductID: item.ProductID,
				LotNo:     completedNo,
				Qty:       item.Qty,
				UnitCost:  item.UnitPrice,
			}
			if _, err := s.stock.Receive(ctx, tx, batch); err != nil {
				return err
			}
		}

		var remainderOrder *models.Order
		if len(remainderItems) > 0 {
			confirmed := now
			remainderMemo := fmt.Sprintf("remainder of %s", order.OrderNo)
			remainderOrder = &models.Order{
				TenantID:    tenantID,
				OrderNo:     num.WithVariant(ordernum.VariantPending).String(),
				Status:      enums.OrderStatusSupplierConfirmed,
				SupplierID:  order.SupplierID,
				TotalAmount: itemsTotal(remainderItems),
				ConfirmedAt: &confirmed,
				Memo:        &remainderMemo,
				CreatedBy:   createdBy,
				Items:       remainderItems,
			}
			if err := repo.Create(ctx, remainderOrder); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create remainder order")
			}
		}

		memo := fmt.Sprintf("received as %s", completedNo)
		if remainderOrder != nil {
			memo = fmt.Sprintf("received as %s, remainder %s", completedNo, remainderOrder.OrderNo)
		}
		err = repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status": enums.OrderStatusArchived,
			"memo":   memo,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive original order")
		}

		completedOrder.Supplier = order.Supplier
		completed = completedOrder
		result = &ReceiveResult{
			CompletedOrderID: completedOrder.ID,
			CompletedOrderNo: completedOrder.OrderNo,
			OriginalArchived: true,
		}
		if remainderOrder != nil {
			result.RemainderOrderID = &remainderOrder.ID
			result.RemainderOrderNo = &remainderOrder.OrderNo
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, orderNoConstraint) {
			// The -C derivative already exists; a previous receipt went through.
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order has already been received")
		}
		return nil, err
	}

	s.invalidateOrderViews(ctx, tenantID)
	s.dispatcher.Dispatch(ctx, s.notification(notify.OrderEventCompleted, completed, input.Received))
	return result, nil
}

// partitionReceipt splits the order lines into the received portion and the
// remainder. A line absent from received (or present with zero) has not
// arrived and lands entirely in the remainder. Receiving at least the ordered
// quantity counts as fully received; the completed line carries the actual
// received quantity with its total recomputed.
func partitionReceipt(items []models.OrderItem, received map[uuid.UUID]int) ([]models.OrderItem, []models.OrderItem, error) {
	known := make(map[uuid.UUID]bool, len(items))
	for i := range items {
		known[items[i].ID] = true
	}
	for itemID, qty := range received {
		if !known[itemID] {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "received item does not belong to order").
				WithDetails(map[string]any{"item_id": itemID})
		}
		if qty < 0 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "received quantity cannot be negative").
				WithDetails(map[string]any{"item_id": itemID})
		}
	}

	var got, rest []models.OrderItem
	for _, item := range items {
		qty := received[item.ID]
		if qty > 0 {
			got = append(got, models.OrderItem{
				ProductID:  item.ProductID,
				Product:    item.Product,
				BatchID:    item.BatchID,
				Qty:        qty,
				UnitPrice:  item.UnitPrice,
				TotalPrice: item.UnitPrice.Mul(decimal.NewFromInt(int64(qty))),
			})
		}
		if remaining := item.Qty - qty; remaining > 0 {
			rest = append(rest, models.OrderItem{
				ProductID:  item.ProductID,
				Product:    item.Product,
				BatchID:    item.BatchID,
				Qty:        remaining,
				UnitPrice:  item.UnitPrice,
				TotalPrice: item.UnitPrice.Mul(decimal.NewFromInt(int64(remaining))),
			})
		}
	}
	return got, rest, nil
}
