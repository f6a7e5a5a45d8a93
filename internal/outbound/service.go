package outbound

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arbormed/clinicstock-backend/internal/stock"
	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/arbormed/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/arbormed/clinicstock-backend/pkg/errors"
	"github.com/arbormed/clinicstock-backend/pkg/logger"
	"github.com/arbormed/clinicstock-backend/pkg/pagination"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	ValidateOutbound(batch *models.Batch, qty int, now time.Time) error
	Deduct(ctx context.Context, tx *gorm.DB, tenantID, batchID uuid.UUID, qty int) (*models.Batch, error)
}

// LineInput is one requested dispensing line.
type LineInput struct {
	ProductID   uuid.UUID `json:"product_id"`
	BatchID     uuid.UUID `json:"batch_id"`
	Qty         int       `json:"qty"`
	PatientName string    `json:"patient_name,omitempty"`
	ChartNo     string    `json:"chart_no,omitempty"`
	Damaged     bool      `json:"damaged,omitempty"`
	Defective   bool      `json:"defective,omitempty"`
	Memo        string    `json:"memo,omitempty"`
}

// DispatchInput is a batch of dispensing lines recorded by one manager.
type DispatchInput struct {
	ManagerName string      `json:"manager_name"`
	Lines       []LineInput `json:"lines"`
}

// UnifiedLine is the per-line outcome of a unified dispatch.
type UnifiedLine struct {
	Index   int        `json:"index"`
	BatchID uuid.UUID  `json:"batch_id"`
	Qty     int        `json:"qty"`
	Status  string     `json:"status"`
	Reason  string     `json:"reason,omitempty"`
	TxnID   *uuid.UUID `json:"txn_id,omitempty"`
}

// UnifiedReport summarizes a unified dispatch: valid lines are committed,
// invalid lines are reported, and Err aggregates every per-line failure.
type UnifiedReport struct {
	Lines      []UnifiedLine `json:"lines"`
	Dispatched int           `json:"dispatched"`
	Failed     int           `json:"failed"`
	Err        error         `json:"-"`
}

const (
	unifiedStatusDispatched = "dispatched"
	unifiedStatusFailed     = "failed"
)

// Service records dispensing movements against the stock ledger.
type Service interface {
	DispatchSingle(ctx context.Context, tenantID uuid.UUID, managerName string, line LineInput) (*models.OutboundTxn, error)
	DispatchBulk(ctx context.Context, tenantID uuid.UUID, input DispatchInput) ([]models.OutboundTxn, error)
	DispatchPackage(ctx context.Context, tenantID uuid.UUID, input DispatchInput) ([]models.OutboundTxn, error)
	DispatchUnified(ctx context.Context, tenantID uuid.UUID, input DispatchInput) (*UnifiedReport, error)
	History(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filters HistoryFilters) (*Page, error)
	Get(ctx context.Context, tenantID, txnID uuid.UUID) (*models.OutboundTxn, error)
}

type service struct {
	repo      Repository
	stockRepo stock.Repository
	ledger    stockLedger
	tx        txRunner
	log       *logger.Logger
}

// NewService wires the outbound dispatcher.
func NewService(repo Repository, stockRepo stock.Repository, ledger stockLedger, tx txRunner, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbound repository required")
	}
	if stockRepo == nil {
		return nil, fmt.Errorf("stock repository required")
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
	return &service{repo: repo, stockRepo: stockRepo, ledger: ledger, tx: tx, log: log}, nil
}

func (s *service) DispatchSingle(ctx context.Context, tenantID uuid.UUID, managerName string, line LineInput) (*models.OutboundTxn, error) {
	txns, err := s.dispatchAll(ctx, tenantID, enums.OutboundTypePlain, managerName, []LineInput{line})
	if err != nil {
		return nil, err
	}
	return &txns[0], nil
}

// DispatchBulk records multiple plain dispensing lines atomically: every line
// is validated before any batch is touched, and one bad line fails the whole
// request.
func (s *service) DispatchBulk(ctx context.Context, tenantID uuid.UUID, input DispatchInput) ([]models.OutboundTxn, error) {
	return s.dispatchAll(ctx, tenantID, enums.OutboundTypePlain, input.ManagerName, input.Lines)
}

// DispatchPackage is the all-or-nothing variant for preassembled kits; lines
// share the package type marker but are otherwise handled like a bulk dispatch.
func (s *service) DispatchPackage(ctx context.Context, tenantID uuid.UUID, input DispatchInput) ([]models.OutboundTxn, error) {
	return s.dispatchAll(ctx, tenantID, enums.OutboundTypePackage, input.ManagerName, input.Lines)
}

func (s *service) dispatchAll(ctx context.Context, tenantID uuid.UUID, typ enums.OutboundType, managerName string, lines []LineInput) ([]models.OutboundTxn, error) {
	if err := validateLines(tenantID, lines); err != nil {
		return nil, err
	}

	var created []models.OutboundTxn
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.validateAll(ctx, tx, tenantID, lines); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		for _, line := range lines {
			txn, err := s.deductLine(ctx, tx, repo, tenantID, typ, managerName, line)
			if err != nil {
				return err
			}
			created = append(created, *txn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DispatchUnified commits the valid lines and reports the rest instead of
// failing the whole request. Infrastructure errors still abort everything.
func (s *service) DispatchUnified(ctx context.Context, tenantID uuid.UUID, input DispatchInput) (*UnifiedReport, error) {
	if err := validateLines(tenantID, input.Lines); err != nil {
		return nil, err
	}

	report := &UnifiedReport{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		report.Lines = report.Lines[:0]
		report.Dispatched = 0
		report.Failed = 0
		report.Err = nil

		for i, line := range input.Lines {
			result := UnifiedLine{Index: i, BatchID: line.BatchID, Qty: line.Qty}

			txn, err := s.deductLine(ctx, tx, repo, tenantID, enums.OutboundTypeUnified, input.ManagerName, line)
			if err != nil {
				typed := pkgerrors.As(err)
				if typed == nil || typed.Code() == pkgerrors.CodeDependency || typed.Code() == pkgerrors.CodeInternal {
					return err
				}
				result.Status = unifiedStatusFailed
				result.Reason = typed.Message()
				report.Failed++
				report.Err = multierr.Append(report.Err, fmt.Errorf("line %d: %w", i, err))
			} else {
				result.Status = unifiedStatusDispatched
				result.TxnID = &txn.ID
				report.Dispatched++
			}
			report.Lines = append(report.Lines, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *service) History(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filters HistoryFilters) (*Page, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	page, err := s.repo.List(ctx, tenantID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list outbound history")
	}
	return page, nil
}

func (s *service) Get(ctx context.Context, tenantID, txnID uuid.UUID) (*models.OutboundTxn, error) {
	txn, err := s.repo.FindByID(ctx, tenantID, txnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "outbound transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load outbound transaction")
	}
	return txn, nil
}

// validateAll pre-checks every line against the current batch state, summing
// quantities per batch so two lines draining the same batch are caught before
// the first deduction happens.
func (s *service) validateAll(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, lines []LineInput) error {
	repo := s.stockRepo.WithTx(tx)
	now := time.Now().UTC()

	requested := make(map[uuid.UUID]int)
	batches := make(map[uuid.UUID]*models.Batch)
	for _, line := range lines {
		if _, ok := batches[line.BatchID]; !ok {
			batch, err := repo.FindBatchByID(ctx, tenantID, line.BatchID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found").
						WithDetails(map[string]any{"batch_id": line.BatchID})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
			}
			batches[line.BatchID] = batch
		}
		if batches[line.BatchID].ProductID != line.ProductID {
			return pkgerrors.New(pkgerrors.CodeValidation, "batch does not belong to product").
				WithDetails(map[string]any{"batch_id": line.BatchID, "product_id": line.ProductID})
		}
		requested[line.BatchID] += line.Qty
	}

	for batchID, qty := range requested {
		if err := s.ledger.ValidateOutbound(batches[batchID], qty, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) deductLine(ctx context.Context, tx *gorm.DB, repo Repository, tenantID uuid.UUID, typ enums.OutboundType, managerName string, line LineInput) (*models.OutboundTxn, error) {
	if _, err := s.ledger.Deduct(ctx, tx, tenantID, line.BatchID, line.Qty); err != nil {
		return nil, err
	}

	txn := &models.OutboundTxn{
		TenantID:    tenantID,
		Type:        typ,
		ProductID:   line.ProductID,
		BatchID:     line.BatchID,
		Qty:         line.Qty,
		ManagerName: managerName,
		PatientName: line.PatientName,
		ChartNo:     line.ChartNo,
		Damaged:     line.Damaged,
		Defective:   line.Defective,
	}
	if line.Memo != "" {
		txn.Memo = &line.Memo
	}
	if err := repo.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record outbound transaction")
	}
	return txn, nil
}

func validateLines(tenantID uuid.UUID, lines []LineInput) error {
	if tenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line required")
	}
	for _, line := range lines {
		if line.ProductID == uuid.Nil || line.BatchID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product and batch are required")
		}
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}
	return nil
}
