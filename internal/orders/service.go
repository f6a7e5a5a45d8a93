package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arbormed/clinicstock-backend/internal/drafts"
	"github.com/arbormed/clinicstock-backend/internal/notify"
	"github.com/arbormed/clinicstock-backend/internal/viewcache"
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

const orderNoConstraint = "idx_orders_tenant_no"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	Dispatch(ctx context.Context, n notify.OrderNotification) notify.Result
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, tenantID uuid.UUID, views ...string) error
}

type productLoader interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error)
}

type stockReceiver interface {
	Receive(ctx context.Context, tx *gorm.DB, batch *models.Batch) (*models.Batch, error)
}

// Service owns the order state machine: creation from drafts or direct lines,
// cancellation, completion, webhook reconciliation, and goods receipt.
type Service interface {
	CreateFromDraft(ctx context.Context, tenantID uuid.UUID, input CreateFromDraftInput) ([]models.Order, error)
	CreateDirect(ctx context.Context, tenantID uuid.UUID, input CreateDirectInput) ([]models.Order, error)
	Get(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderPage, error)
	Cancel(ctx context.Context, tenantID, orderID uuid.UUID) error
	Complete(ctx context.Context, tenantID, orderID uuid.UUID, received map[uuid.UUID]int) error
	ApplyConfirmation(ctx context.Context, payload ConfirmationPayload) (uuid.UUID, error)
	ApplySplit(ctx context.Context, payload SplitPayload) error
	ReceiveGoods(ctx context.Context, tenantID, orderID uuid.UUID, input ReceiveInput) (*ReceiveResult, error)
}

// Params carries the service dependencies.
type Params struct {
	Repo          Repository
	Drafts        drafts.Repository
	Products      productLoader
	Splitter      *Splitter
	Stock         stockReceiver
	Tx            txRunner
	Dispatcher    notifier
	Cache         cacheInvalidator
	Log           *logger.Logger
	NumberRetries int
}

type service struct {
	repo          Repository
	drafts        drafts.Repository
	products      productLoader
	splitter      *Splitter
	stock         stockReceiver
	tx            txRunner
	dispatcher    notifier
	cache         cacheInvalidator
	log           *logger.Logger
	numberRetries int
}

// NewService wires the order service.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Drafts == nil {
		return nil, fmt.Errorf("drafts repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if params.Splitter == nil {
		return nil, fmt.Errorf("splitter required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock receiver required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if params.Cache == nil {
		return nil, fmt.Errorf("view cache required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.NumberRetries <= 0 {
		params.NumberRetries = 5
	}
	return &service{
		repo:          params.Repo,
		drafts:        params.Drafts,
		products:      params.Products,
		splitter:      params.Splitter,
		stock:         params.Stock,
		tx:            params.Tx,
		dispatcher:    params.Dispatcher,
		cache:         params.Cache,
		log:           params.Log,
		numberRetries: params.NumberRetries,
	}, nil
}

func (s *service) CreateFromDraft(ctx context.Context, tenantID uuid.UUID, input CreateFromDraftInput) ([]models.Order, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if input.SessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	draft, err := s.drafts.FindBySession(ctx, tenantID, input.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "draft not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
	}
	if draft.Expired(time.Now().UTC()) || len(draft.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draft is empty or expired")
	}

	lines := make([]Line, 0, len(draft.Items))
	for _, item := range draft.Items {
		lines = append(lines, Line{
			ProductID: item.ProductID,
			BatchID:   item.BatchID,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
		})
	}
	return s.createOrders(ctx, tenantID, lines, input.CreatedBy, &draft.ID)
}

func (s *service) CreateDirect(ctx context.Context, tenantID uuid.UUID, input CreateDirectInput) ([]models.Order, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}

	lines := make([]Line, 0, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		line := Line{ProductID: item.ProductID, BatchID: item.BatchID, Qty: item.Qty}
		if item.UnitPrice != nil {
			line.UnitPrice = *item.UnitPrice
		} else {
			product, err := s.products.FindByID(ctx, tenantID, item.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
						WithDetails(map[string]any{"product_id": item.ProductID})
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			line.UnitPrice = product.UnitPrice
		}
		lines = append(lines, line)
	}
	return s.createOrders(ctx, tenantID, lines, input.CreatedBy, nil)
}

// createOrders runs the split, persists one order per group in a single
// transaction (deleting the source draft alongside), then dispatches one
// best-effort notification per created order.
func (s *service) createOrders(ctx context.Context, tenantID uuid.UUID, lines []Line, createdBy string, draftID *uuid.UUID) ([]models.Order, error) {
	groups, err := s.splitter.Split(ctx, tenantID, lines)
	if err != nil {
		return nil, err
	}

	var created []*models.Order
	var txErr error
	for attempt := 0; attempt < s.numberRetries; attempt++ {
		created = nil
		txErr = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			now := time.Now().UTC()

			for _, group := range groups {
				num, err := ordernum.Generate(now)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
				}
				status, confirmedAt := group.InitialStatus(now)

				order := &models.Order{
					TenantID:    tenantID,
					OrderNo:     num.String(),
					Status:      status,
					TotalAmount: group.Subtotal,
					ConfirmedAt: confirmedAt,
					CreatedBy:   createdBy,
					Items:       group.Items,
				}
				if group.Supplier != nil {
					order.SupplierID = &group.Supplier.ID
					order.Supplier = group.Supplier
				}
				if err := repo.Create(ctx, order); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
				}
				created = append(created, order)
			}

			if draftID != nil {
				if err := s.drafts.WithTx(tx).Delete(ctx, *draftID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete source draft")
				}
			}
			return nil
		})
		if txErr == nil {
			break
		}
		if db.IsUniqueViolation(txErr, orderNoConstraint) {
			// Random suffix collided; retry the whole create with fresh numbers.
			continue
		}
		return nil, txErr
	}
	if txErr != nil {
		if db.IsUniqueViolation(txErr, orderNoConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order number")
		}
		return nil, txErr
	}

	s.invalidateOrderViews(ctx, tenantID)
	out := make([]models.Order, 0, len(created))
	for _, order := range created {
		s.dispatcher.Dispatch(ctx, s.notification(notify.OrderEventCreated, order, nil))
		out = append(out, *order)
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, tenantID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderPage, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	page, err := s.repo.List(ctx, tenantID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return page, nil
}

func (s *service) Cancel(ctx context.Context, tenantID, orderID uuid.UUID) error {
	if tenantID == uuid.Nil || orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant and order are required")
	}

	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, tenantID, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		switch order.Status {
		case enums.OrderStatusPending, enums.OrderStatusSupplierConfirmed:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be cancelled in current state").
				WithDetails(map[string]any{"status": order.Status})
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": enums.OrderStatusCancelled}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusCancelled
		cancelled = order
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateOrderViews(ctx, tenantID)
	s.dispatcher.Dispatch(ctx, s.notification(notify.OrderEventCancelled, cancelled, nil))
	return nil
}

func (s *service) Complete(ctx context.Context, tenantID, orderID uuid.UUID, received map[uuid.UUID]int) error {
	if tenantID == uuid.Nil || orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant and order are required")
	}

	var completed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, tenantID, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if order.Status != enums.OrderStatusSupplierConfirmed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be completed in current state").
				WithDetails(map[string]any{"status": order.Status})
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": enums.OrderStatusCompleted}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusCompleted
		completed = order
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateOrderViews(ctx, tenantID)
	s.dispatcher.Dispatch(ctx, s.notification(notify.OrderEventCompleted, completed, received))
	return nil
}

// notification builds the outgoing payload for an order event. The order
// number is always reduced to its base so the remote system recognizes split
// derivatives as the original order.
func (s *service) notification(event notify.OrderEvent, order *models.Order, received map[uuid.UUID]int) notify.OrderNotification {
	lines := make([]notify.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		line := notify.OrderLine{
			ProductID: item.ProductID,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
		}
		if item.Product != nil {
			line.Name = item.Product.Name
			line.Brand = item.Product.Brand
		}
		lines = append(lines, line)
	}

	var receivedByItem map[string]int
	if len(received) > 0 {
		receivedByItem = make(map[string]int, len(received))
		for itemID, qty := range received {
			receivedByItem[itemID.String()] = qty
		}
	}

	return notify.OrderNotification{
		Event:    event,
		TenantID: order.TenantID,
		OrderID:  order.ID,
		OrderNo:  ordernum.Parse(order.OrderNo).Base,
		Total:    order.TotalAmount,
		Items:    lines,
		Received: receivedByItem,
		Supplier: order.Supplier,
	}
}

func (s *service) invalidateOrderViews(ctx context.Context, tenantID uuid.UUID) {
	err := s.cache.Invalidate(ctx, tenantID,
		viewcache.ViewOrderList,
		viewcache.ViewPendingInbound,
		viewcache.ViewOrderCandidates,
	)
	if err != nil {
		s.log.Warn(ctx, fmt.Sprintf("view cache invalidation failed: %v", err))
	}
}
