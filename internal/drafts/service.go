package drafts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	pkgerrors "github.com/arbormed/clinicstock-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error)
}

// Service manages the session-scoped draft preceding order creation. Drafts
// carry a rolling TTL: every mutation pushes expiry out again, and an expired
// draft is replaced transparently instead of surfacing an error.
type Service interface {
	GetOrCreate(ctx context.Context, tenantID uuid.UUID, sessionID string) (*models.OrderDraft, error)
	SetItem(ctx context.Context, tenantID uuid.UUID, sessionID string, input ItemInput) (*models.OrderDraft, error)
	ReplaceItems(ctx context.Context, tenantID uuid.UUID, sessionID string, inputs []ItemInput) (*models.OrderDraft, error)
	Clear(ctx context.Context, tenantID uuid.UUID, sessionID string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// ItemInput is one requested draft line. Qty is an absolute value: setting the
// same (product, batch) pair twice overwrites, it never accumulates. Qty zero
// removes the line.
type ItemInput struct {
	ProductID uuid.UUID  `json:"product_id"`
	BatchID   *uuid.UUID `json:"batch_id,omitempty"`
	Qty       int        `json:"qty"`
}

type service struct {
	repo     Repository
	products productLoader
	tx       txRunner
	ttl      time.Duration
}

// NewService wires a draft service with the provided dependencies.
func NewService(repo Repository, products productLoader, tx txRunner, ttl time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("draft repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("draft ttl must be positive")
	}
	return &service{repo: repo, products: products, tx: tx, ttl: ttl}, nil
}

func (s *service) GetOrCreate(ctx context.Context, tenantID uuid.UUID, sessionID string) (*models.OrderDraft, error) {
	if tenantID == uuid.Nil || sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and session are required")
	}

	var draft *models.OrderDraft
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		draft, err = s.loadOrReplace(ctx, s.repo.WithTx(tx), tenantID, sessionID, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *service) SetItem(ctx context.Context, tenantID uuid.UUID, sessionID string, input ItemInput) (*models.OrderDraft, error) {
	if tenantID == uuid.Nil || sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and session are required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	var draft *models.OrderDraft
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := time.Now().UTC()

		current, err := s.loadOrReplace(ctx, repo, tenantID, sessionID, now)
		if err != nil {
			return err
		}

		existing := findLine(current.Items, input.ProductID, input.BatchID)

		if input.Qty == 0 {
			if existing != nil {
				if err := repo.DeleteItem(ctx, existing.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete draft item")
				}
				current.Items = removeLine(current.Items, existing.ID)
			}
			if err := s.finalize(ctx, repo, current, now); err != nil {
				return err
			}
			draft = current
			return nil
		}

		product, err := s.products.FindByID(ctx, tenantID, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		total := product.UnitPrice.Mul(decimal.NewFromInt(int64(input.Qty)))
		if existing != nil {
			updates := map[string]any{
				"qty":         input.Qty,
				"unit_price":  product.UnitPrice,
				"total_price": total,
			}
			if err := repo.UpdateItem(ctx, existing.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update draft item")
			}
			existing.Qty = input.Qty
			existing.UnitPrice = product.UnitPrice
			existing.TotalPrice = total
			if err := s.finalize(ctx, repo, current, now); err != nil {
				return err
			}
			draft = current
			return nil
		}

		item := &models.DraftItem{
			DraftID:    current.ID,
			ProductID:  input.ProductID,
			BatchID:    input.BatchID,
			SupplierID: product.SupplierID,
			Qty:        input.Qty,
			UnitPrice:  product.UnitPrice,
			TotalPrice: total,
		}
		if err := repo.CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create draft item")
		}
		current.Items = append(current.Items, *item)
		if err := s.finalize(ctx, repo, current, now); err != nil {
			return err
		}
		draft = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *service) ReplaceItems(ctx context.Context, tenantID uuid.UUID, sessionID string, inputs []ItemInput) (*models.OrderDraft, error) {
	if tenantID == uuid.Nil || sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and session are required")
	}
	for _, input := range inputs {
		if input.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if input.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}

	var draft *models.OrderDraft
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := time.Now().UTC()

		current, err := s.loadOrReplace(ctx, repo, tenantID, sessionID, now)
		if err != nil {
			return err
		}
		if err := repo.DeleteItems(ctx, current.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear draft items")
		}
		current.Items = nil

		for _, input := range inputs {
			product, err := s.products.FindByID(ctx, tenantID, input.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
						WithDetails(map[string]any{"product_id": input.ProductID})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			item := &models.DraftItem{
				DraftID:    current.ID,
				ProductID:  input.ProductID,
				BatchID:    input.BatchID,
				SupplierID: product.SupplierID,
				Qty:        input.Qty,
				UnitPrice:  product.UnitPrice,
				TotalPrice: product.UnitPrice.Mul(decimal.NewFromInt(int64(input.Qty))),
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create draft item")
			}
			current.Items = append(current.Items, *item)
		}
		if err := s.finalize(ctx, repo, current, now); err != nil {
			return err
		}
		draft = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *service) Clear(ctx context.Context, tenantID uuid.UUID, sessionID string) error {
	if tenantID == uuid.Nil || sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant and session are required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		draft, err := repo.FindBySession(ctx, tenantID, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
		}
		return repo.Delete(ctx, draft.ID)
	})
}

func (s *service) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.DeleteExpired(ctx, now)
}

// loadOrReplace returns the live draft for the session, replacing an expired
// one and creating a fresh one when absent.
func (s *service) loadOrReplace(ctx context.Context, repo Repository, tenantID uuid.UUID, sessionID string, now time.Time) (*models.OrderDraft, error) {
	draft, err := repo.FindBySession(ctx, tenantID, sessionID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
	}
	if draft != nil && !draft.Expired(now) {
		return draft, nil
	}
	if draft != nil {
		if err := repo.Delete(ctx, draft.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace expired draft")
		}
	}

	fresh := &models.OrderDraft{
		TenantID:  tenantID,
		SessionID: sessionID,
		ExpiresAt: now.Add(s.ttl),
	}
	if _, err := repo.Create(ctx, fresh); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create draft")
	}
	return fresh, nil
}

// finalize recomputes the draft total and pushes the rolling TTL forward.
func (s *service) finalize(ctx context.Context, repo Repository, draft *models.OrderDraft, now time.Time) error {
	total := decimal.Zero
	for _, item := range draft.Items {
		total = total.Add(item.TotalPrice)
	}
	updates := map[string]any{
		"total":      total,
		"expires_at": now.Add(s.ttl),
	}
	if err := repo.UpdateDraft(ctx, draft.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update draft")
	}
	draft.Total = total
	draft.ExpiresAt = updates["expires_at"].(time.Time)
	return nil
}

func findLine(items []models.DraftItem, productID uuid.UUID, batchID *uuid.UUID) *models.DraftItem {
	for i := range items {
		item := &items[i]
		if item.ProductID != productID {
			continue
		}
		if sameBatch(item.BatchID, batchID) {
			return item
		}
	}
	return nil
}

func sameBatch(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func removeLine(items []models.DraftItem, itemID uuid.UUID) []models.DraftItem {
	out := items[:0]
	for _, item := range items {
		if item.ID != itemID {
			out = append(out, item)
		}
	}
	return out
}
