package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appcatalog "github.com/grainfield/orderflow/internal/application/catalog"
	apporder "github.com/grainfield/orderflow/internal/application/order"
	apppayment "github.com/grainfield/orderflow/internal/application/payment"
	"github.com/grainfield/orderflow/internal/config"
	domcatalog "github.com/grainfield/orderflow/internal/domain/catalog"
	domorder "github.com/grainfield/orderflow/internal/domain/order"
	dompayment "github.com/grainfield/orderflow/internal/domain/payment"
	"github.com/grainfield/orderflow/internal/infrastructure/httpapi"
	"github.com/grainfield/orderflow/internal/infrastructure/id"
	"github.com/grainfield/orderflow/internal/infrastructure/mailer"
	"github.com/grainfield/orderflow/internal/infrastructure/memory"
	"github.com/grainfield/orderflow/internal/infrastructure/mongostore"
	"github.com/grainfield/orderflow/internal/infrastructure/notify"
	"github.com/grainfield/orderflow/internal/infrastructure/outbox"
	"github.com/grainfield/orderflow/internal/infrastructure/redisx"
	"github.com/grainfield/orderflow/internal/infrastructure/stripe"
	"github.com/grainfield/orderflow/internal/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service_exit", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "usecase_requests_total",
		Help: "Use case invocations by outcome.",
	}, []string{"use_case", "outcome"})
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "usecase_duration_seconds",
		Help:    "Use case latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"use_case"})
	prometheus.MustRegister(requests, durations)

	policy := domcatalog.SalePolicy{
		Watermark:     cfg.StockWatermark,
		AllowOversell: cfg.AllowOversell,
	}

	var (
		products domcatalog.Repository
		orders   domorder.Repository
		payments dompayment.Repository
	)
	if cfg.MongoURI != "" {
		client, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn("mongo_disconnect_failed", zap.Error(err))
			}
		}()
		db := client.Database(cfg.MongoDatabase)
		products = mongostore.NewProductRepository(db, policy)
		orders = mongostore.NewOrderRepository(db)
		payments = mongostore.NewPaymentRepository(db)
		logger.Info("store_selected", zap.String("store", "mongo"), zap.String("database", cfg.MongoDatabase))
	} else {
		products = memory.NewProductRepository(policy)
		orders = memory.NewOrderRepository()
		payments = memory.NewPaymentRepository()
		logger.Info("store_selected", zap.String("store", "memory"))
	}

	var cache *redisx.StatusCache
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		cache = redisx.NewStatusCache(rdb)
		logger.Info("status_cache_enabled", zap.String("addr", cfg.RedisAddr))
	} else {
		cache = redisx.NewStatusCache(nil)
	}

	bus := outbox.NewBus(logger)
	bus.Start(ctx)

	mailClient := mailer.NewClient(cfg.MailAPIBase, cfg.MailAPIKey, cfg.MailSender)
	dispatcher := mailer.NewDispatcher(mailClient, 64, logger)
	dispatcher.Start()

	notify.New(bus, dispatcher, cfg.OpsEmail, logger).Start()

	gateway := stripe.NewClient(stripe.DefaultAPIBase, cfg.StripeSecretKey)

	orderSvc := apporder.NewService(orders, products, bus, id.NewUUIDGenerator(), requests, durations)
	paymentSvc := apppayment.NewService(orders, payments, gateway, bus, cfg.PaymentCurrency, requests, durations)
	catalogSvc := appcatalog.NewService(products)

	handler := httpapi.NewHandler(orderSvc, paymentSvc, catalogSvc, cache,
		httpapi.NewAuthenticator(cfg.JWTSecret), cfg.StripeWebhookSecret)
	router := httpapi.NewRouter(handler, logger)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
		BaseContext: func(net.Listener) context.Context {
			return logging.ContextWithLogger(context.Background(), logger)
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutdown_started")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_failed", zap.Error(err))
	}
	bus.Stop(shutdownCtx)
	dispatcher.Close()
	dispatcher.WaitClosed()

	logger.Info("shutdown_complete")
	return nil
}
