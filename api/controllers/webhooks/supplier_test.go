package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arbormed/clinicstock-backend/internal/orders"
	pkgerrors "github.com/arbormed/clinicstock-backend/pkg/errors"
	"github.com/arbormed/clinicstock-backend/pkg/logger"
	"github.com/arbormed/clinicstock-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeReconciler struct {
	confirmations int
	splits        int
	orderID       uuid.UUID
	err           error
}

func (f *fakeReconciler) ApplyConfirmation(ctx context.Context, payload orders.ConfirmationPayload) (uuid.UUID, error) {
	f.confirmations++
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return f.orderID, nil
}

func (f *fakeReconciler) ApplySplit(ctx context.Context, payload orders.SplitPayload) error {
	f.splits++
	return f.err
}

type fakeGuard struct {
	seen     map[string]bool
	released []string
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{seen: map[string]bool{}}
}

func (g *fakeGuard) CheckAndMark(ctx context.Context, scope, id string) (bool, error) {
	key := scope + "|" + id
	if g.seen[key] {
		return true, nil
	}
	g.seen[key] = true
	return false, nil
}

func (g *fakeGuard) Release(ctx context.Context, scope, id string) error {
	key := scope + "|" + id
	g.released = append(g.released, key)
	delete(g.seen, key)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func postJSON(t *testing.T, handler http.HandlerFunc, payload any) (*httptest.ResponseRecorder, types.CallbackEnvelope) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	handler.ServeHTTP(rec, req)

	var envelope types.CallbackEnvelope
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
	}
	return rec, envelope
}

func confirmationBody(orderNo string) orders.ConfirmationPayload {
	return orders.ConfirmationPayload{
		OrderNo:  orderNo,
		TenantID: uuid.New(),
		Status:   "confirmed",
	}
}

func TestSupplierOrderConfirmed_Success(t *testing.T) {
	svc := &fakeReconciler{orderID: uuid.New()}
	handler := SupplierOrderConfirmed(svc, newFakeGuard(), testLogger())

	rec, envelope := postJSON(t, handler, confirmationBody("ORD-20260831-AB50"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !envelope.Success || envelope.OrderID != svc.orderID.String() {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
	if svc.confirmations != 1 {
		t.Fatalf("expected one reconciliation, got %d", svc.confirmations)
	}
}

func TestSupplierOrderConfirmed_MissIsSoftFailure(t *testing.T) {
	svc := &fakeReconciler{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	guard := newFakeGuard()
	handler := SupplierOrderConfirmed(svc, guard, testLogger())

	rec, envelope := postJSON(t, handler, confirmationBody("ORD-20260831-ZZZZ"))
	if rec.Code != http.StatusOK {
		t.Fatalf("soft failure must answer 200, got %d", rec.Code)
	}
	if envelope.Success {
		t.Fatalf("expected success=false, got %+v", envelope)
	}
	if len(guard.released) != 1 {
		t.Fatalf("failed callback must release its replay mark")
	}
}

func TestSupplierOrderConfirmed_ReplaySkipsService(t *testing.T) {
	svc := &fakeReconciler{orderID: uuid.New()}
	guard := newFakeGuard()
	handler := SupplierOrderConfirmed(svc, guard, testLogger())

	payload := confirmationBody("ORD-20260831-AB51")
	postJSON(t, handler, payload)
	rec, envelope := postJSON(t, handler, payload)

	if rec.Code != http.StatusOK || !envelope.Success {
		t.Fatalf("replay must answer success, got %d %+v", rec.Code, envelope)
	}
	if svc.confirmations != 1 {
		t.Fatalf("replay must not reconcile again, got %d calls", svc.confirmations)
	}
}

func TestSupplierOrderConfirmed_DependencyErrorSurfaces(t *testing.T) {
	svc := &fakeReconciler{err: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")}
	guard := newFakeGuard()
	handler := SupplierOrderConfirmed(svc, guard, testLogger())

	rec, _ := postJSON(t, handler, confirmationBody("ORD-20260831-AB52"))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("dependency failures must stay retryable, got %d", rec.Code)
	}
	if len(guard.released) != 1 {
		t.Fatalf("failed callback must release its replay mark")
	}
}

func TestSupplierOrderSplit_Success(t *testing.T) {
	svc := &fakeReconciler{}
	handler := SupplierOrderSplit(svc, newFakeGuard(), testLogger())

	rec, envelope := postJSON(t, handler, orders.SplitPayload{
		Type:            "order_split",
		OriginalOrderNo: "ORD-20260831-AB53",
		TenantID:        uuid.New(),
		Orders:          []orders.SplitOrder{{OrderNo: "ORD-20260831-AB53-1"}, {OrderNo: "ORD-20260831-AB53-2"}},
	})
	if rec.Code != http.StatusOK || !envelope.Success {
		t.Fatalf("expected success, got %d %+v", rec.Code, envelope)
	}
	if svc.splits != 1 {
		t.Fatalf("expected one split application, got %d", svc.splits)
	}
}

type fakeReturns struct {
	completed []string
	err       error
}

func (f *fakeReturns) Complete(ctx context.Context, tenantID uuid.UUID, returnNo string) error {
	f.completed = append(f.completed, returnNo)
	return f.err
}

func TestSupplierReturnCompleted(t *testing.T) {
	svc := &fakeReturns{}
	handler := SupplierReturnCompleted(svc, testLogger())

	rec, envelope := postJSON(t, handler, map[string]any{
		"returnNo":       "ORD-20260831-AB54-R",
		"clinicTenantId": uuid.New(),
	})
	if rec.Code != http.StatusOK || !envelope.Success {
		t.Fatalf("expected success, got %d %+v", rec.Code, envelope)
	}
	if len(svc.completed) != 1 || svc.completed[0] != "ORD-20260831-AB54-R" {
		t.Fatalf("unexpected completions %v", svc.completed)
	}
}
