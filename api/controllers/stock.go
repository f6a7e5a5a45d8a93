package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/arbormed/clinicstock-backend/api/responses"
	"github.com/arbormed/clinicstock-backend/internal/orders"
	"github.com/arbormed/clinicstock-backend/internal/products"
	"github.com/arbormed/clinicstock-backend/internal/stock"
	"github.com/arbormed/clinicstock-backend/internal/viewcache"
	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/arbormed/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/arbormed/clinicstock-backend/pkg/errors"
	"github.com/arbormed/clinicstock-backend/pkg/logger"
	"github.com/arbormed/clinicstock-backend/pkg/pagination"
)

// Products at or below this cached stock level appear in the order-candidate
// view.
const candidateThreshold = 5

// PendingInbound serves the not-yet-received order view from the cache,
// grouped into pending and supplier-confirmed buckets.
func PendingInbound(cache *viewcache.Cache, repo orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload, err := cache.GetOrRefresh(r.Context(), tenantID, viewcache.ViewPendingInbound, func(ctx context.Context) (json.RawMessage, error) {
			view := map[string][]models.Order{}
			for _, status := range []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusSupplierConfirmed} {
				status := status
				page, err := repo.List(ctx, tenantID, pagination.Params{Limit: pagination.MaxLimit}, orders.ListFilters{Status: &status})
				if err != nil {
					return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending inbound orders")
				}
				view[string(status)] = page.Orders
			}
			return json.Marshal(view)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}

// OrderCandidates serves the low-stock reorder view from the cache.
func OrderCandidates(cache *viewcache.Cache, repo products.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload, err := cache.GetOrRefresh(r.Context(), tenantID, viewcache.ViewOrderCandidates, func(ctx context.Context) (json.RawMessage, error) {
			list, err := repo.ListOrderCandidates(ctx, tenantID, candidateThreshold)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order candidates")
			}
			return json.Marshal(list)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}

// ProductBatches lists a product's batches in first-expiry-first-out order.
// Batch reads feed dispensing decisions and always hit the ledger directly.
func ProductBatches(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batches, err := svc.ListBatches(r.Context(), tenantID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, batches)
	}
}
