package orders

import (
	"context"
	"strings"
	"testing"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/arbormed/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/arbormed/clinicstock-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestMatchItem_TierSelection(t *testing.T) {
	itemID := uuid.New()
	productID := uuid.New()
	price := decimal.RequireFromString("4.50")
	items := []models.OrderItem{
		{
			ID:        itemID,
			ProductID: productID,
			UnitPrice: price,
			Product:   &models.Product{ID: productID, Name: "Saline 0.9%", Brand: "Baxa"},
		},
		{
			ID:        uuid.New(),
			ProductID: uuid.New(),
			UnitPrice: decimal.RequireFromString("9.00"),
			Product:   &models.Product{Name: "Gauze Pads", Brand: "Medi"},
		},
	}

	otherPrice := decimal.RequireFromString("1.00")
	tests := []struct {
		name     string
		adj      Adjustment
		wantItem *uuid.UUID
		wantTier matchTier
	}{
		{
			name:     "exact item id wins",
			adj:      Adjustment{ItemID: &itemID},
			wantItem: &itemID,
			wantTier: tierItemID,
		},
		{
			name:     "snapshot match on name and price",
			adj:      Adjustment{ProductName: "saline 0.9%", UnitPrice: &price},
			wantItem: &itemID,
			wantTier: tierSnapshot,
		},
		{
			name:     "snapshot requires matching price",
			adj:      Adjustment{ProductName: "Saline 0.9%", UnitPrice: &otherPrice},
			wantTier: tierNone,
		},
		{
			name:     "product id fallback",
			adj:      Adjustment{ProductID: &productID},
			wantItem: &itemID,
			wantTier: tierProduct,
		},
		{
			name:     "no identifiers",
			adj:      Adjustment{},
			wantTier: tierNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, tier := matchItem(items, tt.adj)
			if tier != tt.wantTier {
				t.Fatalf("expected tier %s, got %s", tt.wantTier, tier)
			}
			if tt.wantItem == nil {
				if item != nil {
					t.Fatalf("expected no match, got item %s", item.ID)
				}
				return
			}
			if item == nil || item.ID != *tt.wantItem {
				t.Fatalf("expected item %s, got %v", *tt.wantItem, item)
			}
		})
	}
}

func TestMatchItem_AmbiguityFallsThrough(t *testing.T) {
	productID := uuid.New()
	price := decimal.RequireFromString("2.00")
	// Two lines share the same product and snapshot; neither tier 2 nor tier 3
	// may pick one of them.
	items := []models.OrderItem{
		{ID: uuid.New(), ProductID: productID, UnitPrice: price, Product: &models.Product{Name: "Syringe 5ml"}},
		{ID: uuid.New(), ProductID: productID, UnitPrice: price, Product: &models.Product{Name: "Syringe 5ml"}},
	}

	if item, tier := matchItem(items, Adjustment{ProductName: "Syringe 5ml", UnitPrice: &price}); item != nil || tier != tierNone {
		t.Fatalf("ambiguous snapshot must not match, got (%v, %s)", item, tier)
	}
	if item, tier := matchItem(items, Adjustment{ProductID: &productID}); item != nil || tier != tierNone {
		t.Fatalf("ambiguous product must not match, got (%v, %s)", item, tier)
	}
}

func confirmableOrder(tenantID uuid.UUID) *models.Order {
	itemID := uuid.New()
	productID := uuid.New()
	return &models.Order{
		ID:       uuid.New(),
		TenantID: tenantID,
		OrderNo:  "ORD-20260831-AB24",
		Status:   enums.OrderStatusPending,
		Supplier: &models.SupplierContact{Name: "MedSupply"},
		Items: []models.OrderItem{
			{
				ID:         itemID,
				ProductID:  productID,
				Qty:        10,
				UnitPrice:  decimal.RequireFromString("2.00"),
				TotalPrice: decimal.RequireFromString("20.00"),
				Product:    &models.Product{ID: productID, Name: "Saline 0.9%"},
			},
		},
	}
}

func TestApplyConfirmation_AdjustmentOverwritesItem(t *testing.T) {
	f := newFixture(t)
	tenantID := uuid.New()
	order := confirmableOrder(tenantID)
	f.repo.findByNoFn = func(ctx context.Context, gotTenant uuid.UUID, orderNo string) (*models.Order, error) {
		if orderNo != order.OrderNo {
			t.Fatalf("expected lookup by base number %q, got %q", order.OrderNo, orderNo)
		}
		return order, nil
	}

	qty := 8
	price := decimal.RequireFromString("2.50")
	itemID := order.Items[0].ID
	gotID, err := f.svc.ApplyConfirmation(context.Background(), ConfirmationPayload{
		OrderNo:     order.OrderNo,
		TenantID:    tenantID,
		Status:      "supplier_confirmed",
		Adjustments: []Adjustment{{ItemID: &itemID, Qty: &qty, UnitPrice: &price}},
	})
	if err != nil {
		t.Fatalf("ApplyConfirmation: %v", err)
	}
	if gotID != order.ID {
		t.Fatalf("expected order id %s, got %s", order.ID, gotID)
	}

	itemUpdates := f.repo.itemUpdates[itemID]
	if itemUpdates == nil {
		t.Fatalf("expected item update")
	}
	if itemUpdates["qty"] != 8 {
		t.Fatalf("expected qty overwrite to 8, got %v", itemUpdates["qty"])
	}
	if got := itemUpdates["total_price"].(decimal.Decimal); !got.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected recomputed line total 20.00, got %s", got)
	}

	orderUpdates := f.repo.orderUpdates[order.ID]
	if orderUpdates["status"] != enums.OrderStatusSupplierConfirmed {
		t.Fatalf("expected status supplier_confirmed, got %v", orderUpdates["status"])
	}
	if got := orderUpdates["total_amount"].(decimal.Decimal); !got.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected recomputed order total, got %s", got)
	}
	if snapshot, ok := orderUpdates["adjustments"].(string); !ok || snapshot == "" {
		t.Fatalf("expected adjustments snapshot, got %v", orderUpdates["adjustments"])
	}
}

func TestApplyConfirmation_ReapplyLeavesItemsUnchanged(t *testing.T) {
	f := newFixture(t)
	tenantID := uuid.New()
	order := confirmableOrder(tenantID)
	f.repo.findByNoFn = func(ctx context.Context, gotTenant uuid.UUID, orderNo string) (*models.Order, error) {
		return order, nil
	}

	qty := 8
	price := decimal.RequireFromString("2.50")
	itemID := order.Items[0].ID
	payload := ConfirmationPayload{
		OrderNo:     order.OrderNo,
		TenantID:    tenantID,
		Status:      "supplier_confirmed",
		Adjustments: []Adjustment{{ItemID: &itemID, Qty: &qty, UnitPrice: &price}},
	}

	if _, err := f.svc.ApplyConfirmation(context.Background(), payload); err != nil {
		t.Fatalf("first ApplyConfirmation: %v", err)
	}
	first := f.repo.itemUpdates[itemID]

	if _, err := f.svc.ApplyConfirmation(context.Background(), payload); err != nil {
		t.Fatalf("second ApplyConfirmation: %v", err)
	}
	second := f.repo.itemUpdates[itemID]

	if second["qty"] != first["qty"] {
		t.Fatalf("reapplied qty diverged: %v vs %v", second["qty"], first["qty"])
	}
	if !second["unit_price"].(decimal.Decimal).Equal(first["unit_price"].(decimal.Decimal)) {
		t.Fatalf("reapplied unit price diverged: %v vs %v", second["unit_price"], first["unit_price"])
	}
	if !second["total_price"].(decimal.Decimal).Equal(first["total_price"].(decimal.Decimal)) {
		t.Fatalf("reapplied line total diverged: %v vs %v", second["total_price"], first["total_price"])
	}
	if order.Items[0].Qty != 8 || !order.Items[0].TotalPrice.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("item did not converge, got qty=%d total=%s", order.Items[0].Qty, order.Items[0].TotalPrice)
	}
}

func TestApplyConfirmation_RejectionHasNoConfirmedAt(t *testing.T) {
	f := newFixture(t)
	tenantID := uuid.New()
	order := confirmableOrder(tenantID)
	f.repo.findByNoFn = func(ctx context.Context, gotTenant uuid.UUID, orderNo string) (*models.Order, error) {
		return order, nil
	}

	_, err := f.svc.ApplyConfirmation(context.Background(), ConfirmationPayload{
		OrderNo:  order.OrderNo,
		TenantID: tenantID,
		Status:   "rejected",
	})
	if err != nil {
		t.Fatalf("ApplyConfirmation: %v", err)
	}

	updates := f.repo.orderUpdates[order.ID]
	if updates["status"] != enums.OrderStatusRejected {
		t.Fatalf("expected status rejected, got %v", updates["status"])
	}
	if _, ok := updates["confirmed_at"]; ok {
		t.Fatalf("rejected order must not carry a confirmation timestamp, got %v", updates["confirmed_at"])
	}
}

func TestApplyConfirmation_RejectionWritesAuditRows(t *testing.T) {
	f := newFixture(t)
	tenantID := uuid.New()
	order := confirmableOrder(tenantID)
	f.repo.findByNoFn = func(ctx context.Context, gotTenant uuid.UUID, orderNo string) (*models.Order, error) {
		return order, nil
	}

	itemID := order.Items[0].ID
	_, err := f.svc.ApplyConfirmation(context.Background(), ConfirmationPayload{
		OrderNo:     order.OrderNo,
		TenantID:    tenantID,
		Status:      "confirmed_rejected",
		Adjustments: []Adjustment{{ItemID: &itemID, Reason: "out of stock"}},
	})
	if err != nil {
		t.Fatalf("ApplyConfirmation: %v", err)
	}

	if f.repo.itemUpdates[itemID]["memo"] != "out of stock" {
		t.Fatalf("expected rejection memo on item, got %v", f.repo.itemUpdates[itemID])
	}
	if len(f.repo.rejected) != 1 {
		t.Fatalf("expected one rejected audit row, got %d", len(f.repo.rejected))
	}
	record := f.repo.rejected[0]
	if record.Reason != "out of stock" || record.ProductName != "Saline 0.9%" || record.SupplierName != "MedSupply" {
		t.Fatalf("unexpected audit row %+v", record)
	}
}

func TestApplyConfirmation_UnmatchedAdjustmentIgnored(t *testing.T) {
	f := newFixture(t)
	tenantID := uuid.New()
	order := confirmableOrder(tenantID)
	f.repo.findByNoFn = func(ctx context.Context, gotTenant uuid.UUID, orderNo string) (*models.Order, error) {
		return order, nil
	}

	price := decimal.RequireFromString("99.00")
	_, err := f.svc.ApplyConfirmation(context.Background(), ConfirmationPayload{
		OrderNo:     order.OrderNo,
		TenantID:    tenantID,
		Status:      "supplier_confirmed",
		Adjustments: []Adjustment{{ProductName: "Unknown Item", UnitPrice: &price}},
	})
	if err != nil {
		t.Fatalf("ApplyConfirmation: %v", err)
	}
	if len(f.repo.itemUpdates) != 0 {
		t.Fatalf("unmatched adjustment must not touch any line, got %v", f.repo.itemUpdates)
	}
	if f.repo.orderUpdates[order.ID]["status"] != enums.OrderStatusSupplierConfirmed {
		t.Fatalf("order status must still be applied")
	}
}

func TestApplyConfirmation_OrderNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ApplyConfirmation(context.Background(), ConfirmationPayload{
		OrderNo:  "ORD-20260831-ZZZZ",
		TenantID: uuid.New(),
		Status:   "supplier_confirmed",
	})
	wantErrCode(t, err, pkgerrors.CodeNotFound)
}

func TestApplySplit_ArchivesOriginalAndRecordsDerivatives(t *testing.T) {
	f := newFixture(t)
	tenantID := uuid.New()
	order := confirmableOrder(tenantID)
	f.repo.findByNoFn = func(ctx context.Context, gotTenant uuid.UUID, orderNo string) (*models.Order, error) {
		return order, nil
	}

	productID := order.Items[0].ProductID
	err := f.svc.ApplySplit(context.Background(), SplitPayload{
		Type:            "order_split",
		OriginalOrderNo: order.OrderNo,
		TenantID:        tenantID,
		Orders: []SplitOrder{
			{
				OrderNo:     order.OrderNo + "-1",
				Status:      "supplier_confirmed",
				TotalAmount: decimal.RequireFromString("12.00"),
				Items:       []SplitItem{{ProductID: productID, Qty: 6, UnitPrice: decimal.RequireFromString("2.00")}},
			},
			{
				OrderNo:     order.OrderNo + "-2",
				Status:      "pending",
				TotalAmount: decimal.RequireFromString("8.00"),
				Items:       []SplitItem{{ProductID: productID, Qty: 4, UnitPrice: decimal.RequireFromString("2.00")}},
			},
		},
	})
	if err != nil {
		t.Fatalf("ApplySplit: %v", err)
	}

	if len(f.repo.created) != 2 {
		t.Fatalf("expected 2 derivative orders, got %d", len(f.repo.created))
	}
	if f.repo.created[0].Status != enums.OrderStatusSupplierConfirmed || f.repo.created[1].Status != enums.OrderStatusPending {
		t.Fatalf("derivative statuses not carried over")
	}

	updates := f.repo.orderUpdates[order.ID]
	if updates["status"] != enums.OrderStatusArchived {
		t.Fatalf("expected original archived, got %v", updates["status"])
	}
	memo, _ := updates["memo"].(string)
	if memo == "" {
		t.Fatalf("expected cross-referencing memo")
	}
	for _, created := range f.repo.created {
		if !strings.Contains(memo, created.OrderNo) {
			t.Fatalf("memo %q missing derivative %q", memo, created.OrderNo)
		}
	}
}

func TestApplySplit_ReplayIgnored(t *testing.T) {
	f := newFixture(t)
	tenantID := uuid.New()
	order := confirmableOrder(tenantID)
	order.Status = enums.OrderStatusArchived
	f.repo.findByNoFn = func(ctx context.Context, gotTenant uuid.UUID, orderNo string) (*models.Order, error) {
		return order, nil
	}

	err := f.svc.ApplySplit(context.Background(), SplitPayload{
		Type:            "order_split",
		OriginalOrderNo: order.OrderNo,
		TenantID:        tenantID,
		Orders:          []SplitOrder{{OrderNo: "a"}, {OrderNo: "b"}},
	})
	if err != nil {
		t.Fatalf("replayed split must be a no-op, got %v", err)
	}
	if len(f.repo.created) != 0 {
		t.Fatalf("replay must not create orders")
	}
}

func TestApplySplit_Validation(t *testing.T) {
	f := newFixture(t)
	tenantID := uuid.New()

	tests := []struct {
		name    string
		payload SplitPayload
	}{
		{
			name:    "wrong type",
			payload: SplitPayload{Type: "order_merge", TenantID: tenantID, OriginalOrderNo: "ORD-X", Orders: []SplitOrder{{}, {}}},
		},
		{
			name:    "wrong order count",
			payload: SplitPayload{Type: "order_split", TenantID: tenantID, OriginalOrderNo: "ORD-X", Orders: []SplitOrder{{}}},
		},
		{
			name:    "missing original number",
			payload: SplitPayload{Type: "order_split", TenantID: tenantID, Orders: []SplitOrder{{}, {}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.ApplySplit(context.Background(), tt.payload)
			wantErrCode(t, err, pkgerrors.CodeValidation)
		})
	}
}
