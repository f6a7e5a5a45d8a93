package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arbormed/clinicstock-backend/api/controllers/webhooks"
	"github.com/arbormed/clinicstock-backend/api/routes"
	"github.com/arbormed/clinicstock-backend/internal/alerts"
	"github.com/arbormed/clinicstock-backend/internal/drafts"
	"github.com/arbormed/clinicstock-backend/internal/notify"
	"github.com/arbormed/clinicstock-backend/internal/orders"
	"github.com/arbormed/clinicstock-backend/internal/outbound"
	"github.com/arbormed/clinicstock-backend/internal/products"
	"github.com/arbormed/clinicstock-backend/internal/returns"
	"github.com/arbormed/clinicstock-backend/internal/stock"
	"github.com/arbormed/clinicstock-backend/internal/suppliers"
	"github.com/arbormed/clinicstock-backend/internal/viewcache"
	"github.com/arbormed/clinicstock-backend/pkg/config"
	"github.com/arbormed/clinicstock-backend/pkg/db"
	"github.com/arbormed/clinicstock-backend/pkg/logger"
	"github.com/arbormed/clinicstock-backend/pkg/metrics"
	"github.com/arbormed/clinicstock-backend/pkg/migrate"
	"github.com/arbormed/clinicstock-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	cache, err := viewcache.New(redisClient, cfg.ViewCache.TTL, cfg.ViewCache.StaleWindow, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create view cache", err)
		os.Exit(1)
	}

	gorm := dbClient.DB()
	productRepo := products.NewRepository(gorm)
	supplierRepo := suppliers.NewRepository(gorm)
	draftRepo := drafts.NewRepository(gorm)
	orderRepo := orders.NewRepository(gorm)
	stockRepo := stock.NewRepository(gorm)
	outboundRepo := outbound.NewRepository(gorm)
	returnRepo := returns.NewRepository(gorm)

	resolver, err := suppliers.NewResolver(productRepo, supplierRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create supplier resolver", err)
		os.Exit(1)
	}
	splitter, err := orders.NewSplitter(resolver)
	if err != nil {
		logg.Error(context.Background(), "failed to create order splitter", err)
		os.Exit(1)
	}

	stockSvc, err := stock.NewService(stockRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}
	draftSvc, err := drafts.NewService(draftRepo, productRepo, dbClient, cfg.Drafts.TTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create draft service", err)
		os.Exit(1)
	}

	alertPublisher, err := alerts.NewPublisher(context.Background(), cfg.GCP.ProjectID, cfg.Alerts.Topic, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create alert publisher", err)
		os.Exit(1)
	}
	defer func() {
		if err := alertPublisher.Close(); err != nil {
			logg.Error(context.Background(), "error closing alert publisher", err)
		}
	}()

	webhook := notify.NewSupplierWebhook(cfg.Supplier.DefaultBaseURL, cfg.Supplier.OutboundAPIKey, cfg.Supplier.Timeout)
	messenger := notify.NewContactMessenger(
		cfg.Messenger.RelayURL,
		cfg.Messenger.APIKey,
		cfg.Messenger.FromEmail,
		cfg.Messenger.Timeout,
		cfg.Messenger.SMSEnabled,
		cfg.Messenger.MailEnabled,
	)
	dispatcher, err := notify.NewDispatcher(webhook, messenger, metrics.NewNotifyMetrics(prometheus.DefaultRegisterer), alertPublisher, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	orderSvc, err := orders.NewService(orders.Params{
		Repo:          orderRepo,
		Drafts:        draftRepo,
		Products:      productRepo,
		Splitter:      splitter,
		Stock:         stockSvc,
		Tx:            dbClient,
		Dispatcher:    dispatcher,
		Cache:         cache,
		Log:           logg,
		NumberRetries: cfg.Orders.NumberRetries,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}
	outboundSvc, err := outbound.NewService(outboundRepo, stockRepo, stockSvc, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create outbound service", err)
		os.Exit(1)
	}
	returnSvc, err := returns.NewService(returnRepo, orderRepo, stockSvc, dbClient, logg, cfg.Orders.NumberRetries)
	if err != nil {
		logg.Error(context.Background(), "failed to create return service", err)
		os.Exit(1)
	}
	replayGuard, err := webhooks.NewReplayGuard(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create replay guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			ViewCache:   cache,
			ReplayGuard: replayGuard,
			Drafts:      draftSvc,
			Orders:      orderSvc,
			OrdersRepo:  orderRepo,
			Outbound:    outboundSvc,
			Returns:     returnSvc,
			Stock:       stockSvc,
			ProductRepo: productRepo,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
