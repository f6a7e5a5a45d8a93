package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/arbormed/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/arbormed/clinicstock-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type supplierResolver interface {
	ResolveForProduct(ctx context.Context, tenantID, productID uuid.UUID) (*models.SupplierContact, error)
}

// Line is one priced order line entering the splitter.
type Line struct {
	ProductID uuid.UUID
	BatchID   *uuid.UUID
	Qty       int
	UnitPrice decimal.Decimal
}

// Group is one per-supplier partition of the input lines. Supplier nil is the
// bucket for lines whose supplier could not be resolved.
type Group struct {
	Supplier *models.SupplierContact
	Items    []models.OrderItem
	Subtotal decimal.Decimal
}

// InitialStatus decides the status a new order for this group starts in.
// Platform-linked suppliers confirm asynchronously over webhook, so their
// orders wait in pending; manual and unresolved suppliers are assumed to
// confirm out of band, so their orders start already confirmed.
func (g Group) InitialStatus(now time.Time) (enums.OrderStatus, *time.Time) {
	if g.Supplier.PlatformLinked() {
		return enums.OrderStatusPending, nil
	}
	confirmed := now
	return enums.OrderStatusSupplierConfirmed, &confirmed
}

// Splitter partitions order lines by resolved supplier contact.
type Splitter struct {
	resolver supplierResolver
}

// NewSplitter wires the splitter with the resolution chain.
func NewSplitter(resolver supplierResolver) (*Splitter, error) {
	if resolver == nil {
		return nil, fmt.Errorf("supplier resolver required")
	}
	return &Splitter{resolver: resolver}, nil
}

// Split partitions lines into one group per distinct resolved supplier. Every
// input line lands in exactly one group and group subtotals add up to the
// input total. Group order follows first appearance.
func (s *Splitter) Split(ctx context.Context, tenantID uuid.UUID, lines []Line) ([]Group, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one order line required")
	}

	const unknownKey = "unknown"
	groupIndex := map[string]int{}
	groups := []Group{}

	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}

		supplier, err := s.resolver.ResolveForProduct(ctx, tenantID, line.ProductID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve supplier")
		}

		key := unknownKey
		if supplier != nil {
			key = supplier.ID.String()
		}

		idx, ok := groupIndex[key]
		if !ok {
			idx = len(groups)
			groupIndex[key] = idx
			groups = append(groups, Group{Supplier: supplier, Subtotal: decimal.Zero})
		}

		total := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Qty)))
		groups[idx].Items = append(groups[idx].Items, models.OrderItem{
			ProductID:  line.ProductID,
			BatchID:    line.BatchID,
			Qty:        line.Qty,
			UnitPrice:  line.UnitPrice,
			TotalPrice: total,
		})
		groups[idx].Subtotal = groups[idx].Subtotal.Add(total)
	}

	return groups, nil
}
