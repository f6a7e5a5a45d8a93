package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/arbormed/clinicstock-backend/api/responses"
	"github.com/arbormed/clinicstock-backend/api/validators"
	"github.com/arbormed/clinicstock-backend/internal/orders"
	pkgerrors "github.com/arbormed/clinicstock-backend/pkg/errors"
	"github.com/arbormed/clinicstock-backend/pkg/logger"
	"github.com/arbormed/clinicstock-backend/pkg/types"
)

const (
	scopeOrderConfirmed  = "order-confirmed"
	scopeOrderSplit      = "order-split"
	scopeReturnCompleted = "return-completed"
)

type orderReconciler interface {
	ApplyConfirmation(ctx context.Context, payload orders.ConfirmationPayload) (uuid.UUID, error)
	ApplySplit(ctx context.Context, payload orders.SplitPayload) error
}

type returnCompleter interface {
	Complete(ctx context.Context, tenantID uuid.UUID, returnNo string) error
}

type callbackGuard interface {
	CheckAndMark(ctx context.Context, scope, id string) (bool, error)
	Release(ctx context.Context, scope, id string) error
}

// SupplierOrderConfirmed reconciles a supplier confirmation callback. A miss
// on the order is permanent from the sender's perspective, so it answers 200
// with success=false instead of an error status.
func SupplierOrderConfirmed(svc orderReconciler, guard callbackGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload orders.ConfirmationPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// Status is part of the identity so a later, different confirmation for
		// the same order is not swallowed as a replay.
		id := fmt.Sprintf("%s|%s|%s", payload.TenantID, payload.OrderNo, strings.ToLower(payload.Status))
		replayed, err := guard.CheckAndMark(ctx, scopeOrderConfirmed, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check callback replay"))
			return
		}
		if replayed {
			if logg != nil {
				logg.Info(logg.WithOrderNo(ctx, payload.OrderNo), "confirmation callback replay ignored")
			}
			responses.WriteCallback(w, types.CallbackEnvelope{Success: true, Message: "already processed"})
			return
		}

		orderID, err := svc.ApplyConfirmation(ctx, payload)
		if err != nil {
			_ = guard.Release(ctx, scopeOrderConfirmed, id)
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				responses.WriteCallback(w, types.CallbackEnvelope{Success: false, Message: "order not found"})
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteCallback(w, types.CallbackEnvelope{Success: true, OrderID: orderID.String()})
	}
}

// SupplierOrderSplit applies a supplier-side order split callback.
func SupplierOrderSplit(svc orderReconciler, guard callbackGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload orders.SplitPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		id := fmt.Sprintf("%s|%s", payload.TenantID, payload.OriginalOrderNo)
		replayed, err := guard.CheckAndMark(ctx, scopeOrderSplit, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check callback replay"))
			return
		}
		if replayed {
			if logg != nil {
				logg.Info(logg.WithOrderNo(ctx, payload.OriginalOrderNo), "split callback replay ignored")
			}
			responses.WriteCallback(w, types.CallbackEnvelope{Success: true, Message: "already processed"})
			return
		}

		if err := svc.ApplySplit(ctx, payload); err != nil {
			_ = guard.Release(ctx, scopeOrderSplit, id)
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				responses.WriteCallback(w, types.CallbackEnvelope{Success: false, Message: "order not found"})
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteCallback(w, types.CallbackEnvelope{Success: true})
	}
}

type returnCompletedPayload struct {
	ReturnNo string    `json:"returnNo" validate:"required"`
	TenantID uuid.UUID `json:"clinicTenantId" validate:"required"`
}

// SupplierReturnCompleted flips a pending return to completed. The service is
// already idempotent for unknown or completed returns, so redeliveries always
// answer success.
func SupplierReturnCompleted(svc returnCompleter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload returnCompletedPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Complete(ctx, payload.TenantID, payload.ReturnNo); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCallback(w, types.CallbackEnvelope{Success: true})
	}
}
