package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arbormed/clinicstock-backend/api/controllers"
	webhookcontrollers "github.com/arbormed/clinicstock-backend/api/controllers/webhooks"
	"github.com/arbormed/clinicstock-backend/api/middleware"
	"github.com/arbormed/clinicstock-backend/internal/drafts"
	"github.com/arbormed/clinicstock-backend/internal/orders"
	"github.com/arbormed/clinicstock-backend/internal/outbound"
	"github.com/arbormed/clinicstock-backend/internal/products"
	"github.com/arbormed/clinicstock-backend/internal/returns"
	"github.com/arbormed/clinicstock-backend/internal/stock"
	"github.com/arbormed/clinicstock-backend/internal/viewcache"
	"github.com/arbormed/clinicstock-backend/pkg/config"
	"github.com/arbormed/clinicstock-backend/pkg/db"
	"github.com/arbormed/clinicstock-backend/pkg/logger"
	"github.com/arbormed/clinicstock-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          *db.Client
	Redis       *redis.Client
	ViewCache   *viewcache.Cache
	ReplayGuard *webhookcontrollers.ReplayGuard

	Drafts      drafts.Service
	Orders      orders.Service
	OrdersRepo  orders.Repository
	Outbound    outbound.Service
	Returns     returns.Service
	Stock       stock.Service
	ProductRepo products.Repository
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/webhooks/supplier", func(r chi.Router) {
		r.Use(middleware.SupplierAPIKey(cfg.Supplier.InboundAPIKey, logg))
		r.Post("/order-confirmed", webhookcontrollers.SupplierOrderConfirmed(deps.Orders, deps.ReplayGuard, logg))
		r.Post("/order-split", webhookcontrollers.SupplierOrderSplit(deps.Orders, deps.ReplayGuard, logg))
		r.Post("/return-completed", webhookcontrollers.SupplierReturnCompleted(deps.Returns, logg))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.TenantContext(logg))

		r.Route("/drafts", func(r chi.Router) {
			r.Get("/", controllers.DraftGet(deps.Drafts, logg))
			r.Put("/", controllers.DraftReplace(deps.Drafts, logg))
			r.Put("/items", controllers.DraftSetItem(deps.Drafts, logg))
			r.Delete("/", controllers.DraftClear(deps.Drafts, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreateDirect(deps.Orders, logg))
			r.Post("/from-draft", controllers.OrderCreateFromDraft(deps.Orders, logg))
			r.Get("/", controllers.OrderList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.Orders, logg))
			r.Post("/{orderId}/complete", controllers.OrderComplete(deps.Orders, logg))
			r.Post("/{orderId}/receive", controllers.OrderReceive(deps.Orders, logg))
		})

		r.Route("/outbound", func(r chi.Router) {
			r.Post("/single", controllers.OutboundSingle(deps.Outbound, logg))
			r.Post("/bulk", controllers.OutboundBulk(deps.Outbound, logg))
			r.Post("/package", controllers.OutboundPackage(deps.Outbound, logg))
			r.Post("/unified", controllers.OutboundUnified(deps.Outbound, logg))
			r.Get("/", controllers.OutboundHistory(deps.Outbound, logg))
			r.Get("/{txnId}", controllers.OutboundDetail(deps.Outbound, logg))
		})

		r.Route("/returns", func(r chi.Router) {
			r.Post("/", controllers.ReturnCreate(deps.Returns, logg))
			r.Get("/", controllers.ReturnList(deps.Returns, logg))
			r.Get("/{returnId}", controllers.ReturnDetail(deps.Returns, logg))
		})

		r.Route("/stock", func(r chi.Router) {
			r.Get("/pending-inbound", controllers.PendingInbound(deps.ViewCache, deps.OrdersRepo, logg))
			r.Get("/order-candidates", controllers.OrderCandidates(deps.ViewCache, deps.ProductRepo, logg))
			r.Get("/products/{productId}/batches", controllers.ProductBatches(deps.Stock, logg))
		})
	})

	return r
}
