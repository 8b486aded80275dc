package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ecomcore/orderflow/internal/bus"
	"github.com/ecomcore/orderflow/internal/domain/order"
	"github.com/ecomcore/orderflow/internal/event"
	"github.com/ecomcore/orderflow/internal/eventlog"
	"github.com/ecomcore/orderflow/internal/handler"
	"github.com/ecomcore/orderflow/internal/notify"
	"github.com/ecomcore/orderflow/internal/storage/postgres"
	"github.com/ecomcore/orderflow/pkg/health"
	"github.com/ecomcore/orderflow/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and the notification
// consumer, and handles graceful shutdown. It is the single wiring point for
// the application.
func Run(ctx context.Context, lg *zap.Logger, _ *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Redis backs the event log and the notification dedup markers.
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return errors.Wrap(err, "parse redis url")
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddReadinessCheck("redis", 5*time.Second, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	// Event pipeline. The audit sink and payment notifier take order events
	// push-direct; email notifications go through the buffered queue so slow
	// or failing deliveries never block publishers.
	b := bus.New(lg)

	logStore := eventlog.NewRedisStore(rdb, eventlog.OrderKeyPrefix)
	sink := eventlog.NewSink(logStore, cfg.EventLog.Retention, lg)
	b.SubscribeFunc("event-log", bus.NewFilter(event.OrderCreated, event.OrderDeleted), sink.Handle)
	b.SubscribeFunc("payments", bus.NewFilter(event.OrderCreated), notify.NewPaymentNotifier(lg).Handle)

	emailQueue := bus.NewQueue("order-emails", cfg.Queue.Buffer, cfg.Queue.MaxReceive, lg)
	b.SubscribeQueue("emails", bus.NewFilter(event.OrderCreated), emailQueue)

	processed := notify.NewRedisProcessedLog(rdb, cfg.EventLog.Retention)
	emailer := notify.NewEmailNotifier(notify.NewLogSender(lg), processed, lg)
	consumer := bus.NewBatchConsumer(emailQueue, emailer.Handle, bus.ConsumerConfig{
		BatchSize: cfg.Queue.BatchSize,
		Wait:      cfg.Queue.Wait,
	}, lg)

	// Domain services.
	orderService := order.NewService(productRepo, orderRepo, b, lg)

	// Mux: health endpoints + API routes on one server.
	h := handler.New(orderService, eventlog.NewQueryService(logStore))
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	// Graceful shutdown: wait for context cancellation, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})
	return g.Wait()
}
