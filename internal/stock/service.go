package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	pkgerrors "github.com/arbormed/clinicstock-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the stock ledger. Every quantity change goes through a batch row,
// and every mutating call re-derives the product's cached aggregate from the
// sum of its batches inside the same transaction.
type Service interface {
	ValidateOutbound(batch *models.Batch, qty int, now time.Time) error
	Deduct(ctx context.Context, tx *gorm.DB, tenantID, batchID uuid.UUID, qty int) (*models.Batch, error)
	Receive(ctx context.Context, tx *gorm.DB, batch *models.Batch) (*models.Batch, error)
	Restock(ctx context.Context, tx *gorm.DB, tenantID, batchID uuid.UUID, qty int) error
	ListBatches(ctx context.Context, tenantID, productID uuid.UUID) ([]models.Batch, error)
}

type service struct {
	repo Repository
}

// NewService wires a stock ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &service{repo: repo}, nil
}

// ValidateOutbound checks a requested deduction against a loaded batch without
// mutating anything. Expired batches are rejected even when quantity suffices.
func (s *service) ValidateOutbound(batch *models.Batch, qty int, now time.Time) error {
	if batch == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if batch.ExpiresAt != nil && !batch.ExpiresAt.After(now) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "batch is expired").
			WithDetails(map[string]any{"batch_id": batch.ID, "expires_at": batch.ExpiresAt})
	}
	if batch.Qty < qty {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient batch quantity").
			WithDetails(map[string]any{"batch_id": batch.ID, "available": batch.Qty, "requested": qty})
	}
	return nil
}

// Deduct removes qty from a batch and refreshes the product aggregate. It must
// run inside the caller's transaction so a later failure rolls both back.
func (s *service) Deduct(ctx context.Context, tx *gorm.DB, tenantID, batchID uuid.UUID, qty int) (*models.Batch, error) {
	repo := s.repo.WithTx(tx)

	batch, err := repo.FindBatchByID(ctx, tenantID, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
	}
	if err := s.ValidateOutbound(batch, qty, time.Now().UTC()); err != nil {
		return nil, err
	}

	ok, err := repo.DecrementBatchQty(ctx, batchID, qty)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement batch")
	}
	if !ok {
		// Another transaction consumed the quantity between the read and the
		// guarded update.
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient batch quantity").
			WithDetails(map[string]any{"batch_id": batchID, "requested": qty})
	}

	if err := s.refreshAggregate(ctx, repo, batch.ProductID); err != nil {
		return nil, err
	}
	batch.Qty -= qty
	return batch, nil
}

// Receive records a new batch row at goods receipt and refreshes the product
// aggregate in the same transaction.
func (s *service) Receive(ctx context.Context, tx *gorm.DB, batch *models.Batch) (*models.Batch, error) {
	if batch == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch payload required")
	}
	if batch.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "received quantity must be positive")
	}
	if batch.TenantID == uuid.Nil || batch.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and product are required")
	}

	repo := s.repo.WithTx(tx)
	created, err := repo.CreateBatch(ctx, batch)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create batch")
	}
	if err := s.refreshAggregate(ctx, repo, batch.ProductID); err != nil {
		return nil, err
	}
	return created, nil
}

// Restock adds quantity back to an existing batch, used when a supplier return
// is cancelled or stock is corrected upward.
func (s *service) Restock(ctx context.Context, tx *gorm.DB, tenantID, batchID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	repo := s.repo.WithTx(tx)
	batch, err := repo.FindBatchByID(ctx, tenantID, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
	}
	if err := repo.IncrementBatchQty(ctx, batchID, qty); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment batch")
	}
	return s.refreshAggregate(ctx, repo, batch.ProductID)
}

func (s *service) ListBatches(ctx context.Context, tenantID, productID uuid.UUID) ([]models.Batch, error) {
	if tenantID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and product are required")
	}
	return s.repo.ListBatchesFEFO(ctx, tenantID, productID)
}

func (s *service) refreshAggregate(ctx context.Context, repo Repository, productID uuid.UUID) error {
	total, err := repo.SumBatchQty(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum batch quantities")
	}
	if err := repo.SetProductStock(ctx, productID, total); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product stock")
	}
	return nil
}
