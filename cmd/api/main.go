package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agenda_backend/internal/confirmation"
	"agenda_backend/internal/correlation"
	"agenda_backend/internal/events"
	apphttp "agenda_backend/internal/http"
	"agenda_backend/internal/http/router"
	"agenda_backend/internal/ledger"
	"agenda_backend/internal/meetings"
	meetingsrepo "agenda_backend/internal/meetings/repository"
	meetingsservice "agenda_backend/internal/meetings/service"
	"agenda_backend/internal/notification/sse"
	"agenda_backend/internal/scheduler"
	"agenda_backend/internal/watch"
	"agenda_backend/internal/webhook"
	"agenda_backend/internal/whatsapp"
	"agenda_backend/platform/config"
	"agenda_backend/platform/db"
	"agenda_backend/platform/httpkit"
	"agenda_backend/platform/logger"
	"agenda_backend/platform/phone"
	"agenda_backend/platform/redisx"
	"agenda_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	shutdownTimeout     = 10 * time.Second
	webhookRatePerSec   = 20
	webhookBurst        = 40
	rateLimiterSweepGap = time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	redisClient := initRedis(ctx, cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// ========================================================================
	// Confirmation Pipeline
	// ========================================================================

	registry := watch.NewRegistry()
	formatter := phone.NewOutboundFormatter(log)

	replyStore := ledger.NewPostgresStore(pool, cfg.GetReplyDedupWindow())
	var dedupCache ledger.DedupCache
	if redisClient != nil {
		dedupCache = ledger.NewRedisCache(redisClient)
	}
	replyLedger := ledger.New(replyStore, dedupCache, cfg.GetReplyDedupWindow(), log)

	notifier := correlation.NewBusNotifier(eventBus)
	correlator := correlation.NewEngine(registry, replyLedger, log,
		correlation.WithNotifier(notifier),
		correlation.WithMinConfidence(cfg.GetMinConfidence()),
		correlation.WithMetrics(correlation.NewMetrics()),
	)

	sseService := sse.New(log)
	sseService.RegisterHandlers(eventBus)
	defer sseService.Close()

	if !cfg.IsWhatsAppEnabled() {
		log.Warn("EVOLUTION_API_URL not configured; confirmation requests cannot be sent")
	}
	meetingRepo := meetingsrepo.New(pool)
	sender := confirmation.NewSender(
		meetingRepo,
		whatsapp.NewClient(cfg, log),
		registry,
		formatter,
		confirmation.NewTemplate(cfg.GetConfirmationTemplate()),
		eventBus,
		log,
	)

	queueClient, worker := initScheduler(cfg, sender, log)
	if queueClient != nil {
		defer func() { _ = queueClient.Close() }()
	}
	var enqueuer confirmation.Enqueuer
	if queueClient != nil {
		enqueuer = queueClient
	}
	requester := confirmation.NewRequester(enqueuer, sender, log)
	reconciler := confirmation.NewReconciler(cfg, meetingRepo, registry, formatter, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	val := validator.New()

	meetingsModule := meetings.NewModule(meetingsservice.Deps{
		Meetings:  meetingRepo,
		Ledger:    replyLedger,
		Responses: replyStore,
		Watches:   registry,
		Requester: requester,
		Formatter: formatter,
		Notifier:  notifier,
		Log:       log,
	}, val)
	webhookModule := webhook.NewModule(pool, correlator, cfg, log)

	webhookLimiter := httpkit.NewIPRateLimiter(rate.Limit(webhookRatePerSec), webhookBurst, log)

	app := &apphttp.App{
		Config:             cfg,
		Logger:             log,
		Health:             db.NewPoolAdapter(pool),
		EventBus:           eventBus,
		Events:             sseService.Handler(),
		WebhookRateLimiter: webhookLimiter,
		Modules: []apphttp.Module{
			meetingsModule,
			webhookModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		reconciler.Run(gctx)
		return nil
	})

	g.Go(func() error {
		webhookLimiter.RunSweeper(gctx, rateLimiterSweepGap)
		return nil
	})

	if worker != nil {
		g.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		eventBus.Wait()
		os.Exit(1)
	}
	eventBus.Wait()
	log.Info("server stopped")
}

func initRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; reply dedup cache and task queue disabled")
		return nil
	}

	var client *redis.Client
	if err := withRetry(ctx, log, "redis connection", 3, time.Second, func() error {
		c, err := redisx.NewClient(ctx, cfg)
		if err != nil {
			return err
		}
		client = c
		return nil
	}); err != nil {
		log.Error("failed to connect to redis; continuing without cache", "error", err)
		return nil
	}
	return client
}

func initScheduler(cfg config.SchedulerConfig, sender scheduler.ConfirmationSender, log *logger.Logger) (*scheduler.Client, *scheduler.Worker) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; confirmation requests are sent inline")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	worker, err := scheduler.NewWorker(cfg, sender, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		_ = client.Close()
		return nil, nil
	}

	return client, worker
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("%s: %w", name, lastErr)
}
