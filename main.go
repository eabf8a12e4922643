package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bitewise/checkout/internal/application/reservation"
	"github.com/bitewise/checkout/internal/application/workflow"
	"github.com/bitewise/checkout/internal/config"
	domorder "github.com/bitewise/checkout/internal/domain/order"
	"github.com/bitewise/checkout/internal/domain/stock"
	"github.com/bitewise/checkout/internal/infrastructure/gateway"
	httptransport "github.com/bitewise/checkout/internal/infrastructure/http"
	"github.com/bitewise/checkout/internal/infrastructure/memory"
	"github.com/bitewise/checkout/internal/infrastructure/messaging"
	"github.com/bitewise/checkout/internal/infrastructure/outbox"
	"github.com/bitewise/checkout/internal/infrastructure/redisstore"
	"github.com/bitewise/checkout/internal/pkg/logging"
	"github.com/bitewise/checkout/internal/pkg/signature"
)

type stockStore interface {
	stock.Repository
	Seed(ctx context.Context, item *stock.Item) error
}

func main() {
	cfg := config.Load()

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	workflowOutcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_outcomes_total",
			Help: "Terminal outcomes of checkout workflow operations.",
		},
		[]string{"operation", "outcome"},
	)
	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served.",
		},
		[]string{"method", "route", "status"},
	)
	httpDurations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	prometheus.MustRegister(workflowOutcomes, httpRequests, httpDurations)

	var (
		orders       domorder.Repository
		items        stockStore
		reservations stock.ReservationRepository
	)
	switch cfg.StoreBackend {
	case "redis":
		rdb := redisstore.New(cfg.RedisAddr)
		orders = redisstore.NewOrderRepository(rdb)
		items = redisstore.NewStockRepository(rdb)
		reservations = redisstore.NewReservationRepository(rdb)
	default:
		orders = memory.NewOrderRepository()
		items = memory.NewStockRepository()
		reservations = memory.NewReservationRepository()
	}

	seedStock(context.Background(), items, cfg.StockSeed, baseLogger)

	bus := outbox.NewBus(baseLogger)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	if cfg.RabbitURL != "" {
		pub, err := messaging.NewRabbitPublisher(cfg.RabbitURL, cfg.RefundExchange)
		if err != nil {
			baseLogger.Fatal("rabbit_connect_failed", zap.Error(err))
		}
		defer func() { _ = pub.Close() }()
		messaging.NewReconciliationRelay(pub, baseLogger).Register(bus)
	}

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:   cfg.GatewayBaseURL,
		KeyID:     cfg.GatewayKeyID,
		KeySecret: cfg.GatewaySecret,
		Timeout:   cfg.GatewayTimeout,
	}, baseLogger)
	verifier := signature.NewVerifier(cfg.WebhookSecret)

	stockService := reservation.NewService(items, reservations)
	orchestrator := workflow.NewOrchestrator(
		orders,
		stockService,
		gatewayClient,
		verifier,
		bus,
		cfg.Currency,
		workflowOutcomes,
	)

	handler := httptransport.NewHandler(orchestrator, baseLogger, cfg.AllowedOrigin, httpRequests, httpDurations)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		baseLogger.Info("http_server_stopped")
	}
}

// seedStock applies "itemID=qty,itemID=qty" pairs to the store.
func seedStock(ctx context.Context, items stockStore, seed string, logger *zap.Logger) {
	if seed == "" {
		return
	}
	for _, pair := range strings.Split(seed, ",") {
		id, raw, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || id == "" {
			logger.Warn("stock_seed_skipped", zap.String("pair", pair))
			continue
		}
		qty, err := strconv.Atoi(raw)
		if err != nil || qty < 0 {
			logger.Warn("stock_seed_skipped", zap.String("pair", pair))
			continue
		}
		item, err := stock.NewItem(id, qty)
		if err != nil {
			logger.Warn("stock_seed_skipped", zap.String("pair", pair), zap.Error(err))
			continue
		}
		if err := items.Seed(ctx, item); err != nil {
			logger.Error("stock_seed_failed", zap.String("item_id", id), zap.Error(err))
			continue
		}
		logger.Info("stock_seeded", zap.String("item_id", id), zap.Int("quantity", qty))
	}
}
