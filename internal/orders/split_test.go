package orders

import (
	"context"
	"testing"
	"time"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/arbormed/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/arbormed/clinicstock-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestSplitter_PartitionsBySupplier(t *testing.T) {
	tenantID := uuid.New()
	linked := linkedSupplier(tenantID)
	manual := manualSupplier(tenantID)

	productA := uuid.New()
	productB := uuid.New()
	productC := uuid.New()
	resolver := &fakeResolver{bySupplier: map[uuid.UUID]*models.SupplierContact{
		productA: linked,
		productB: manual,
	}}
	splitter, err := NewSplitter(resolver)
	if err != nil {
		t.Fatalf("NewSplitter: %v", err)
	}

	lines := []Line{
		{ProductID: productA, Qty: 2, UnitPrice: decimal.RequireFromString("3.00")},
		{ProductID: productB, Qty: 1, UnitPrice: decimal.RequireFromString("5.00")},
		{ProductID: productC, Qty: 4, UnitPrice: decimal.RequireFromString("0.50")},
		{ProductID: productA, Qty: 1, UnitPrice: decimal.RequireFromString("3.00")},
	}

	groups, err := splitter.Split(context.Background(), tenantID, lines)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	// Groups follow first appearance of each supplier.
	if groups[0].Supplier == nil || groups[0].Supplier.ID != linked.ID {
		t.Fatalf("expected linked supplier group first")
	}
	if groups[1].Supplier == nil || groups[1].Supplier.ID != manual.ID {
		t.Fatalf("expected manual supplier group second")
	}
	if groups[2].Supplier != nil {
		t.Fatalf("expected unresolved bucket last")
	}

	if len(groups[0].Items) != 2 {
		t.Fatalf("both lines for product A belong to the linked group, got %d items", len(groups[0].Items))
	}

	// Every line lands in exactly one group and subtotals preserve the input total.
	gotLines := 0
	total := decimal.Zero
	for _, group := range groups {
		gotLines += len(group.Items)
		total = total.Add(group.Subtotal)
	}
	if gotLines != len(lines) {
		t.Fatalf("expected %d lines across groups, got %d", len(lines), gotLines)
	}
	if want := decimal.RequireFromString("16.00"); !total.Equal(want) {
		t.Fatalf("expected subtotals to add up to %s, got %s", want, total)
	}
}

func TestSplitter_Validation(t *testing.T) {
	splitter, err := NewSplitter(&fakeResolver{bySupplier: map[uuid.UUID]*models.SupplierContact{}})
	if err != nil {
		t.Fatalf("NewSplitter: %v", err)
	}

	tests := []struct {
		name  string
		lines []Line
	}{
		{name: "no lines", lines: nil},
		{name: "missing product", lines: []Line{{Qty: 1}}},
		{name: "zero quantity", lines: []Line{{ProductID: uuid.New(), Qty: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := splitter.Split(context.Background(), uuid.New(), tt.lines)
			wantErrCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func TestGroup_InitialStatus(t *testing.T) {
	now := time.Now().UTC()
	tenantID := uuid.New()

	linkedGroup := Group{Supplier: linkedSupplier(tenantID)}
	status, confirmedAt := linkedGroup.InitialStatus(now)
	if status != enums.OrderStatusPending || confirmedAt != nil {
		t.Fatalf("linked supplier: got (%s, %v)", status, confirmedAt)
	}

	manualGroup := Group{Supplier: manualSupplier(tenantID)}
	status, confirmedAt = manualGroup.InitialStatus(now)
	if status != enums.OrderStatusSupplierConfirmed || confirmedAt == nil || !confirmedAt.Equal(now) {
		t.Fatalf("manual supplier: got (%s, %v)", status, confirmedAt)
	}

	unknownGroup := Group{}
	status, confirmedAt = unknownGroup.InitialStatus(now)
	if status != enums.OrderStatusSupplierConfirmed || confirmedAt == nil {
		t.Fatalf("unresolved supplier: got (%s, %v)", status, confirmedAt)
	}
}
