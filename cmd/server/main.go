package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appfinance "github.com/academy/backend/internal/application/finance"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/infrastructure/cache"
	"github.com/academy/backend/internal/infrastructure/config"
	"github.com/academy/backend/internal/infrastructure/event"
	"github.com/academy/backend/internal/infrastructure/logger"
	"github.com/academy/backend/internal/infrastructure/persistence"
	"github.com/academy/backend/internal/infrastructure/scheduler"
	"github.com/academy/backend/internal/infrastructure/telemetry"
	"github.com/academy/backend/internal/interfaces/http/handler"
	"github.com/academy/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

const serviceVersion = "1.0.0"

//	@title			Academy Backend API
//	@version		1.0
//	@description	Bills, installment chains and forms of receipt of an academy management system
//	@BasePath		/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server terminated", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting Academy Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		ServiceVersion:    serviceVersion,
		Insecure:          cfg.Telemetry.Insecure,
	}, logger.ForService(log, "telemetry"))
	if err != nil {
		return err
	}
	defer shutdownWithTimeout(log, "tracer provider", tp.Shutdown)

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, logger.ForService(log, "database"))
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbSystem := "postgresql"
	if cfg.Database.Driver == "sqlite" {
		dbSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:          cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing,
		DBSystem:         dbSystem,
		WithoutVariables: true,
		Provider:         tp.Provider(),
	}, log); err != nil {
		return err
	}
	log.Info("Database connected", zap.String("driver", db.Driver))

	// Redis backed idempotency and change notification
	components, err := cache.NewFactory(cfg.Redis, cfg.Finance,
		cache.WithLogger(logger.ForService(log, "cache")),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	).Create(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := components.Close(); err != nil {
			log.Error("Error closing cache components", zap.Error(err))
		}
	}()

	// Domain events
	bus := event.NewInMemoryEventBus(logger.ForService(log, "events"))
	bus.Subscribe(event.NewBillAuditHandler(logger.ForService(log, "audit")))
	if err := bus.Start(ctx); err != nil {
		return err
	}
	defer shutdownWithTimeout(log, "event bus", bus.Stop)

	// Application services
	loc, err := cfg.Finance.Location()
	if err != nil {
		return err
	}
	clock := shared.NewSystemClock(loc)

	billRepo := persistence.NewGormBillRepository(db.DB)
	methodRepo := persistence.NewGormPaymentMethodRepository(db.DB)
	billService := appfinance.NewBillService(billRepo, methodRepo, persistence.NewGormTransactionScope(db.DB),
		appfinance.WithClock(clock),
		appfinance.WithChangeNotifier(components.Notifier),
		appfinance.WithEventPublisher(bus),
		appfinance.WithIdempotencyStore(components.Idempotency, cfg.Finance.IdempotencyTTL),
		appfinance.WithSweepBatchSize(cfg.Finance.SweepBatchSize),
		appfinance.WithLogger(logger.ForService(log, "bill_service")),
	)
	methodService := appfinance.NewPaymentMethodService(methodRepo, components.Notifier, clock,
		logger.ForService(log, "payment_method_service"))

	// Overdue sweep
	sweepCfg := scheduler.DefaultOverdueSweepConfig()
	sweepCfg.Enabled = cfg.Scheduler.OverdueSweepEnabled
	sweepCfg.Interval = cfg.Scheduler.OverdueSweepInterval
	sweepCfg.Timeout = cfg.Scheduler.OverdueSweepTimeout
	sweepCfg.MaxConcurrentTenants = cfg.Scheduler.MaxConcurrentTenants
	trigger, err := scheduler.NewOverdueSweepTrigger(sweepCfg, billService, billService, log)
	if err != nil {
		return err
	}
	if err := trigger.Start(ctx); err != nil {
		return err
	}
	defer shutdownWithTimeout(log, "overdue sweep", trigger.Stop)

	// HTTP
	engine, err := router.NewEngine(router.Config{
		ServiceName:    cfg.App.Name,
		Production:     cfg.App.IsProduction(),
		HTTP:           cfg.HTTP,
		JWT:            cfg.JWT,
		TracingEnabled: cfg.Telemetry.Enabled,
	}, logger.ForService(log, "http"))
	if err != nil {
		return err
	}
	engine.GET(router.HealthPath, handler.NewHealthHandler(db).Health)
	router.NewRouter(engine).
		Register(handler.NewBillHandler(billService)).
		Register(handler.NewPaymentMethodHandler(methodService)).
		Setup()

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
		return err
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("Server exited gracefully")
	return nil
}

// shutdownWithTimeout runs a deferred stop function with its own deadline,
// since the signal context is already cancelled at that point
func shutdownWithTimeout(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error("Shutdown failed", zap.String("component", name), zap.Error(err))
	}
}
