package returns

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/arbormed/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/arbormed/clinicstock-backend/pkg/errors"
	"github.com/arbormed/clinicstock-backend/pkg/logger"
	"github.com/arbormed/clinicstock-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type fakeRepository struct {
	findByNoFn func(ctx context.Context, tenantID uuid.UUID, returnNo string) (*models.OrderReturn, error)
	createFn   func(ctx context.Context, ret *models.OrderReturn) error

	created []*models.OrderReturn
	updates map[uuid.UUID]map[string]any
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, ret *models.OrderReturn) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, ret); err != nil {
			return err
		}
	}
	if ret.ID == uuid.Nil {
		ret.ID = uuid.New()
	}
	f.created = append(f.created, ret)
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.OrderReturn, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindByNo(ctx context.Context, tenantID uuid.UUID, returnNo string) (*models.OrderReturn, error) {
	if f.findByNoFn == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.findByNoFn(ctx, tenantID, returnNo)
}

func (f *fakeRepository) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (*Page, error) {
	return &Page{}, nil
}

func (f *fakeRepository) Update(ctx context.Context, returnID uuid.UUID, updates map[string]any) error {
	if f.updates == nil {
		f.updates = map[uuid.UUID]map[string]any{}
	}
	f.updates[returnID] = updates
	return nil
}

type fakeOrders struct {
	order *models.Order
}

func (f *fakeOrders) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error) {
	if f.order == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.order, nil
}

type fakeLedger struct {
	deductions []uuid.UUID
	err        error
}

func (f *fakeLedger) Deduct(ctx context.Context, tx *gorm.DB, tenantID, batchID uuid.UUID, qty int) (*models.Batch, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deductions = append(f.deductions, batchID)
	return &models.Batch{ID: batchID, TenantID: tenantID, Qty: 0}, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func newService(t *testing.T, repo *fakeRepository, orders *fakeOrders, ledger *fakeLedger) Service {
	t.Helper()
	svc, err := NewService(repo, orders, ledger, stubTxRunner{}, testLogger(), 3)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestService_CreateDeductsStockAndDerivesNumber(t *testing.T) {
	repo := &fakeRepository{}
	ledger := &fakeLedger{}
	orderID := uuid.New()
	tenantID := uuid.New()
	orders := &fakeOrders{order: &models.Order{ID: orderID, TenantID: tenantID, OrderNo: "ORD-20260831-AB30"}}
	svc := newService(t, repo, orders, ledger)

	batchID := uuid.New()
	ret, err := svc.Create(context.Background(), tenantID, CreateInput{
		OrderID:   &orderID,
		ProductID: uuid.New(),
		BatchID:   batchID,
		Qty:       2,
		Reason:    "damaged on arrival",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if ret.ReturnNo != "ORD-20260831-AB30-R" {
		t.Fatalf("expected order-derived return number, got %q", ret.ReturnNo)
	}
	if ret.Status != enums.ReturnStatusPending {
		t.Fatalf("expected pending status, got %s", ret.Status)
	}
	if len(ledger.deductions) != 1 || ledger.deductions[0] != batchID {
		t.Fatalf("expected stock deduction at creation, got %v", ledger.deductions)
	}
}

func TestService_CreateWithoutOrderGeneratesNumber(t *testing.T) {
	repo := &fakeRepository{}
	svc := newService(t, repo, &fakeOrders{}, &fakeLedger{})

	ret, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		ProductID: uuid.New(),
		BatchID:   uuid.New(),
		Qty:       1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(ret.ReturnNo, "ORD-") || !strings.HasSuffix(ret.ReturnNo, "-R") {
		t.Fatalf("unexpected generated return number %q", ret.ReturnNo)
	}
}

func TestService_CreateDuplicateForOrderConflicts(t *testing.T) {
	repo := &fakeRepository{}
	repo.createFn = func(ctx context.Context, ret *models.OrderReturn) error {
		return &mockUniqueErr{}
	}
	orderID := uuid.New()
	tenantID := uuid.New()
	orders := &fakeOrders{order: &models.Order{ID: orderID, TenantID: tenantID, OrderNo: "ORD-20260831-AB31"}}
	svc := newService(t, repo, orders, &fakeLedger{})

	_, err := svc.Create(context.Background(), tenantID, CreateInput{
		OrderID:   &orderID,
		ProductID: uuid.New(),
		BatchID:   uuid.New(),
		Qty:       1,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

type mockUniqueErr struct{}

func (mockUniqueErr) Error() string {
	return `duplicate key value violates unique constraint "idx_returns_tenant_no"`
}

func TestService_CompleteFlipsStatusOnce(t *testing.T) {
	repo := &fakeRepository{}
	retID := uuid.New()
	repo.findByNoFn = func(ctx context.Context, tenantID uuid.UUID, returnNo string) (*models.OrderReturn, error) {
		return &models.OrderReturn{ID: retID, TenantID: tenantID, ReturnNo: returnNo, Status: enums.ReturnStatusPending}, nil
	}
	svc := newService(t, repo, &fakeOrders{}, &fakeLedger{})

	if err := svc.Complete(context.Background(), uuid.New(), "ORD-20260831-AB32-R"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	updates := repo.updates[retID]
	if updates == nil || updates["status"] != enums.ReturnStatusCompleted {
		t.Fatalf("expected completion update, got %v", updates)
	}
	if _, ok := updates["completed_at"].(time.Time); !ok {
		t.Fatalf("expected completed_at timestamp, got %v", updates["completed_at"])
	}
}

func TestService_CompleteIdempotent(t *testing.T) {
	repo := &fakeRepository{}
	done := time.Now().UTC()
	repo.findByNoFn = func(ctx context.Context, tenantID uuid.UUID, returnNo string) (*models.OrderReturn, error) {
		return &models.OrderReturn{
			ID:          uuid.New(),
			TenantID:    tenantID,
			ReturnNo:    returnNo,
			Status:      enums.ReturnStatusCompleted,
			CompletedAt: &done,
		}, nil
	}
	svc := newService(t, repo, &fakeOrders{}, &fakeLedger{})

	if err := svc.Complete(context.Background(), uuid.New(), "ORD-20260831-AB33-R"); err != nil {
		t.Fatalf("replayed completion must be a no-op, got %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("replay must not update anything, got %v", repo.updates)
	}
}

func TestService_CompleteUnknownReturnIsSoftNoOp(t *testing.T) {
	repo := &fakeRepository{}
	svc := newService(t, repo, &fakeOrders{}, &fakeLedger{})

	if err := svc.Complete(context.Background(), uuid.New(), "ORD-20260831-ZZZZ-R"); err != nil {
		t.Fatalf("unknown return must be tolerated, got %v", err)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc := newService(t, &fakeRepository{}, &fakeOrders{}, &fakeLedger{})

	tests := []struct {
		name  string
		input CreateInput
	}{
		{name: "missing batch", input: CreateInput{ProductID: uuid.New(), Qty: 1}},
		{name: "missing product", input: CreateInput{BatchID: uuid.New(), Qty: 1}},
		{name: "zero quantity", input: CreateInput{ProductID: uuid.New(), BatchID: uuid.New()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), uuid.New(), tt.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}
