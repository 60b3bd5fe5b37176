package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	appledger "github.com/rai1001/ChefOsv2-sub002/internal/application/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/cache"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/config"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/docstore"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/event"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/logger"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/persistence"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/persistence/memory"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/telemetry"
	"github.com/rai1001/ChefOsv2-sub002/internal/interfaces/http/handler"
	"github.com/rai1001/ChefOsv2-sub002/internal/interfaces/http/middleware"
	"github.com/rai1001/ChefOsv2-sub002/internal/interfaces/http/router"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting batch ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("backend", cfg.Ledger.Backend),
	)

	if err := run(cfg, log); err != nil {
		log.Fatal("Batch ledger stopped with error", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry providers are no-ops when disabled
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracer provider: %w", err)
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("init meter provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Meter provider shutdown failed", zap.Error(err))
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Tracer provider shutdown failed", zap.Error(err))
		}
	}()

	backend, err := openBackend(ctx, cfg, mp, log)
	if err != nil {
		return err
	}
	defer backend.close()

	// Idempotency keys for receipts and event handlers
	idempotency, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.Ledger.Backend != config.BackendRedis),
	).CreateStore()
	if err != nil {
		return fmt.Errorf("init idempotency store: %w", err)
	}

	// Ledger events feed the ledger counters, once per event
	bus := event.NewInMemoryEventBus(log, event.WithAsyncDispatch(256))
	ledgerMetrics, err := telemetry.NewLedgerMetrics(mp.Meter("ledger"), log)
	if err != nil {
		return fmt.Errorf("init ledger metrics: %w", err)
	}
	bus.Subscribe(event.NewIdempotentHandler(ledgerMetrics, idempotency, log), ledgerMetrics.EventTypes()...)
	if err := bus.Start(ctx); err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := bus.Stop(stopCtx); err != nil {
			log.Warn("Event bus stop failed", zap.Error(err))
		}
	}()

	opts, err := ledgerOptions(cfg, log, bus)
	if err != nil {
		return err
	}
	batchLedger := appledger.NewBatchLedger(backend.store, opts...)
	recorder := appledger.NewTransactionRecorder(backend.store, opts...)
	receipts := appledger.NewReceiptService(batchLedger, idempotency, opts...)

	outlets, err := sweepOutlets(cfg.Ledger.SweepOutlets)
	if err != nil {
		return err
	}
	sweeper := appledger.NewExpirySweeper(batchLedger, outlets, cfg.Ledger.ExpirySweepInterval, log)
	sweeper.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sweeper.Stop(stopCtx); err != nil {
			log.Warn("Expiry sweeper stop failed", zap.Error(err))
		}
	}()

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	var tracerProvider trace.TracerProvider
	if tp.IsEnabled() {
		tracerProvider = otel.GetTracerProvider()
	}
	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		HTTP:           cfg.HTTP,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracerProvider: tracerProvider,
		Meter:          mp.Meter("http.server"),
	})
	if err != nil {
		return fmt.Errorf("init http engine: %w", err)
	}
	router.NewRouter(engine).Register(router.LedgerGroups(router.LedgerHandlers{
		Batch:       handler.NewBatchHandler(batchLedger, cfg.Ledger.ExpiryWarningDays),
		Transaction: handler.NewTransactionHandler(recorder),
		Receipt:     handler.NewReceiptHandler(receipts),
	})...).Setup()
	router.RegisterHealth(engine, handler.NewHealthHandler(cfg.Ledger.Backend, backend.ping))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// backend is the ledger store selected by LEDGER_LEDGER_BACKEND
type backend struct {
	store ledger.Store
	ping  handler.Pinger
	close func()
}

func openBackend(ctx context.Context, cfg *config.Config, mp *telemetry.MeterProvider, log *zap.Logger) (*backend, error) {
	switch cfg.Ledger.Backend {
	case config.BackendMemory:
		log.Warn("Using the in-memory ledger store; stock is lost on restart")
		return &backend{store: memory.NewStore(), close: func() {}}, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := docstore.NewStore(client, docstore.WithKeyPrefix(cfg.Redis.KeyPrefix))
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		log.Info("Redis ledger store connected", zap.String("addr", cfg.Redis.Addr()))
		return &backend{
			store: store,
			ping:  store.Ping,
			close: func() {
				if err := client.Close(); err != nil {
					log.Error("Error closing redis client", zap.Error(err))
				}
			},
		}, nil

	default:
		gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
			logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
		db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
		if err != nil {
			return nil, err
		}
		if cfg.Telemetry.DBTraceEnabled {
			plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
				Enabled:         true,
				LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
				SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
				DBSystem:        "postgresql",
			}, log)
			if err := plugin.RegisterOtelGorm(db.DB); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("register db tracing: %w", err)
			}
		}
		dbMetrics, err := telemetry.RegisterDBMetrics(ctx, db.DB, mp, telemetry.DBMetricsConfig{
			Enabled:            cfg.Telemetry.MetricsEnabled,
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("register db metrics: %w", err)
		}
		log.Info("Database connected successfully")
		return &backend{
			store: persistence.NewGormStore(db.DB),
			ping:  func(context.Context) error { return db.Ping() },
			close: func() {
				if dbMetrics != nil {
					dbMetrics.Stop()
				}
				if err := db.Close(); err != nil {
					log.Error("Error closing database", zap.Error(err))
				}
			},
		}, nil
	}
}

func ledgerOptions(cfg *config.Config, log *zap.Logger, bus *event.InMemoryEventBus) ([]appledger.Option, error) {
	currency, err := valueobject.ParseCurrency(cfg.Ledger.DefaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("ledger default currency: %w", err)
	}
	return []appledger.Option{
		appledger.WithLogger(log),
		appledger.WithEventPublisher(bus),
		appledger.WithCurrency(currency),
		appledger.WithOperationTimeout(cfg.Ledger.OperationTimeout),
		appledger.WithRetryPolicy(appledger.RetryPolicy{
			MaxAttempts: cfg.Ledger.RetryAttempts,
			BaseDelay:   cfg.Ledger.RetryBaseDelay,
			MaxDelay:    cfg.Ledger.RetryMaxDelay,
		}),
		appledger.WithReceiptConcurrency(cfg.Ledger.ReceiptConcurrency),
		appledger.WithIdempotencyTTL(cfg.Ledger.IdempotencyTTL),
	}, nil
}

func sweepOutlets(raw []string) ([]uuid.UUID, error) {
	outlets := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid sweep outlet %q: %w", s, err)
		}
		outlets = append(outlets, id)
	}
	return outlets, nil
}
