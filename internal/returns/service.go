package returns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arbormed/clinicstock-backend/pkg/db"
	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/arbormed/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/arbormed/clinicstock-backend/pkg/errors"
	"github.com/arbormed/clinicstock-backend/pkg/logger"
	"github.com/arbormed/clinicstock-backend/pkg/ordernum"
	"github.com/arbormed/clinicstock-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const returnNoConstraint = "idx_returns_tenant_no"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	Deduct(ctx context.Context, tx *gorm.DB, tenantID, batchID uuid.UUID, qty int) (*models.Batch, error)
}

type orderLoader interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error)
}

// CreateInput describes one return shipment back to a supplier.
type CreateInput struct {
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	ProductID uuid.UUID  `json:"product_id"`
	BatchID   uuid.UUID  `json:"batch_id"`
	Qty       int        `json:"qty"`
	Reason    string     `json:"reason,omitempty"`
}

// Service manages supplier returns. Stock leaves the ledger when the return is
// created; completion only flips the status, so a duplicated completion
// callback cannot double-deduct anything.
type Service interface {
	Create(ctx context.Context, tenantID uuid.UUID, input CreateInput) (*models.OrderReturn, error)
	Complete(ctx context.Context, tenantID uuid.UUID, returnNo string) error
	Get(ctx context.Context, tenantID, returnID uuid.UUID) (*models.OrderReturn, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (*Page, error)
}

type service struct {
	repo          Repository
	orders        orderLoader
	ledger        stockLedger
	tx            txRunner
	log           *logger.Logger
	numberRetries int
}

// NewService wires the return service.
func NewService(repo Repository, orders orderLoader, ledger stockLedger, tx txRunner, log *logger.Logger, numberRetries int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if numberRetries <= 0 {
		numberRetries = 5
	}
	return &service{repo: repo, orders: orders, ledger: ledger, tx: tx, log: log, numberRetries: numberRetries}, nil
}

func (s *service) Create(ctx context.Context, tenantID uuid.UUID, input CreateInput) (*models.OrderReturn, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if input.ProductID == uuid.Nil || input.BatchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product and batch are required")
	}
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	// A return tied to an order reuses the order's base number; a free return
	// gets a fresh one. Both carry the return suffix.
	var orderBase *ordernum.Number
	if input.OrderID != nil {
		order, err := s.orders.FindByID(ctx, tenantID, *input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		num := ordernum.Parse(order.OrderNo).WithVariant(ordernum.VariantReturn)
		orderBase = &num
	}

	var created *models.OrderReturn
	var txErr error
	for attempt := 0; attempt < s.numberRetries; attempt++ {
		num := orderBase
		if num == nil {
			generated, err := ordernum.Generate(time.Now().UTC())
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate return number")
			}
			withVariant := generated.WithVariant(ordernum.VariantReturn)
			num = &withVariant
		}

		txErr = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if _, err := s.ledger.Deduct(ctx, tx, tenantID, input.BatchID, input.Qty); err != nil {
				return err
			}
			ret := &models.OrderReturn{
				TenantID:  tenantID,
				ReturnNo:  num.String(),
				OrderID:   input.OrderID,
				ProductID: input.ProductID,
				BatchID:   input.BatchID,
				Qty:       input.Qty,
				Reason:    input.Reason,
				Status:    enums.ReturnStatusPending,
			}
			if err := s.repo.WithTx(tx).Create(ctx, ret); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return")
			}
			created = ret
			return nil
		})
		if txErr == nil {
			return created, nil
		}
		if orderBase == nil && db.IsUniqueViolation(txErr, returnNoConstraint) {
			continue
		}
		break
	}
	if db.IsUniqueViolation(txErr, returnNoConstraint) {
		// Order-derived numbers are deterministic, so a collision means a
		// return already exists for this order.
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a return already exists for this order")
	}
	return nil, txErr
}

// Complete applies the supplier's return-completion callback. Duplicate
// delivery is expected: an absent or already completed return is logged and
// treated as success.
func (s *service) Complete(ctx context.Context, tenantID uuid.UUID, returnNo string) error {
	if tenantID == uuid.Nil || returnNo == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant and return number are required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ret, err := repo.FindByNo(ctx, tenantID, returnNo)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.log.Warn(ctx, fmt.Sprintf("return completion for unknown return %q ignored", returnNo))
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
		}
		if ret.Status == enums.ReturnStatusCompleted {
			s.log.Info(ctx, fmt.Sprintf("return %q already completed, callback ignored", returnNo))
			return nil
		}

		now := time.Now().UTC()
		err = repo.Update(ctx, ret.ID, map[string]any{
			"status":       enums.ReturnStatusCompleted,
			"completed_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete return")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, tenantID, returnID uuid.UUID) (*models.OrderReturn, error) {
	ret, err := s.repo.FindByID(ctx, tenantID, returnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
	}
	return ret, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (*Page, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	page, err := s.repo.List(ctx, tenantID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list returns")
	}
	return page, nil
}
