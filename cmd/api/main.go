package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/supportdesk/triage-service/internal/api/http"
	"github.com/supportdesk/triage-service/internal/api/http/handlers"
	"github.com/supportdesk/triage-service/internal/auth"
	"github.com/supportdesk/triage-service/internal/classifier"
	"github.com/supportdesk/triage-service/internal/config"
	"github.com/supportdesk/triage-service/internal/events"
	"github.com/supportdesk/triage-service/internal/knowledge"
	"github.com/supportdesk/triage-service/internal/observability"
	"github.com/supportdesk/triage-service/internal/persistence"
	"github.com/supportdesk/triage-service/internal/pipeline"
	"github.com/supportdesk/triage-service/internal/ratelimit"
	"github.com/supportdesk/triage-service/internal/repository"
	"github.com/supportdesk/triage-service/internal/safety"
	"github.com/supportdesk/triage-service/internal/service"
	"github.com/supportdesk/triage-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	issueRepo := repository.NewKnownIssueRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)
	store := repository.NewStore(pool)

	rules, err := safety.LoadRiskRules(cfg.Pipeline.RiskPatternsFile)
	if err != nil {
		logger.Fatal("failed to load risk rules", zap.Error(err))
	}
	sanitizer, err := safety.NewSanitizer(safety.SanitizerConfig{
		LowConfidence:  cfg.Pipeline.OutputLowConfidence,
		HighConfidence: cfg.Pipeline.OutputHighConfidence,
	})
	if err != nil {
		logger.Fatal("failed to load redaction rules", zap.Error(err))
	}

	cls, diagnoser, err := classifier.New(cfg.Classifier, logger, classifier.WithRetryHook(metrics.RecordClassifierRetry))
	if err != nil {
		logger.Fatal("failed to build classifier", zap.Error(err))
	}

	kb := knowledge.New(issueRepo, redis.Cache(), cfg.Knowledge.CacheTTL(), logger)
	dispatcher := events.NewInMemoryDispatcher(logger)

	notifier := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notifyWorker := worker.NewNotificationWorker(256, logger)
	worker.StartNotificationWorker(ctx, notifier, notifyWorker)

	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Config:     cfg.Pipeline,
		Limiter:    ratelimit.New(cfg.RateLimit),
		Scanner:    safety.NewScanner(rules),
		Sanitizer:  sanitizer,
		Triage:     pipeline.NewTriage(userRepo, cls, cfg.Pipeline, logger),
		Retrieval:  pipeline.NewRetrieval(kb, diagnoser, metrics, logger),
		Escalation: pipeline.NewEscalation(store, cfg.Pipeline, logger),
		Audit:      auditRepo,
		Events:     dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(cfg.Auth, tokens)
	feedbackService := service.NewFeedbackService(service.FeedbackDependencies{
		Feedback:   feedbackRepo,
		Audit:      auditRepo,
		Store:      store,
		Dispatcher: dispatcher,
	}, logger)
	analyticsService := service.NewAnalyticsService(analyticsRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	deps := map[string]handlers.Pinger{"postgres": pg}
	if redis.Enabled() {
		deps["redis"] = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Query:          handlers.NewQueryHandler(orchestrator),
		Metrics:        handlers.NewMetricsHandler(analyticsService),
		Auth:           handlers.NewAuthHandler(authService),
		Feedback:       handlers.NewFeedbackHandler(feedbackService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Gatherer:       registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
	notifyWorker.Stop()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
