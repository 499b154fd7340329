package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/spec-kit/ticket-router/internal/api/http"
	"github.com/spec-kit/ticket-router/internal/api/http/handlers"
	"github.com/spec-kit/ticket-router/internal/auth"
	"github.com/spec-kit/ticket-router/internal/classifier"
	"github.com/spec-kit/ticket-router/internal/config"
	"github.com/spec-kit/ticket-router/internal/events"
	"github.com/spec-kit/ticket-router/internal/observability"
	"github.com/spec-kit/ticket-router/internal/persistence"
	"github.com/spec-kit/ticket-router/internal/repository"
	"github.com/spec-kit/ticket-router/internal/service"
	"github.com/spec-kit/ticket-router/internal/worker"
)

func main() {
	// "api hash-password <pw>" prints a value for AUTH_OPERATOR_PASSWORD_HASH.
	if len(os.Args) == 3 && os.Args[1] == "hash-password" {
		hash, err := auth.HashPassword(os.Args[2], bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.UsePostgres() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	agentRepo, ticketRepo := repositories(pg)
	metrics := observability.NewMetrics()

	dispatcher := events.NewInMemoryDispatcher(logger)
	var redis *persistence.Redis
	var publisher *events.RedisPublisher
	if cfg.Redis.EventsEnabled {
		redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		publisher = events.NewRedisPublisher(redis.Client, cfg.Redis.ChannelPrefix)
	}
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartEventSubscribers(dispatcher, notifications, publisher)

	registry := service.NewAgentRegistry(agentRepo, logger)
	tickets := service.NewTicketStore(ticketRepo)
	coordinator := service.NewAssignmentCoordinator(service.CoordinatorDependencies{
		Registry:   registry,
		Tickets:    tickets,
		Engine:     service.NewRoutingEngine(registry),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	}, service.CoordinatorConfig{
		ConfidenceThreshold: cfg.Routing.ConfidenceThreshold,
		MaxAutoAttempts:     cfg.Routing.MaxAutoAttempts,
	})

	classifications := worker.NewClassificationWorker(classifier.Fallback{}, coordinator, cfg.Classification, logger)
	workerDone := make(chan error, 1)
	go func() { workerDone <- classifications.Run(ctx) }()

	intake := service.NewIntakeService(tickets, coordinator, classifications, dispatcher, logger, cfg.Routing.AutoAssignOnCreate)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	authService := service.NewAuthService(cfg.Auth, tokens, logger)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), cfg.Auth.Enabled)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Agents:         handlers.NewAgentsHandler(registry),
		Tickets:        handlers.NewTicketsHandler(intake, tickets, coordinator),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	if err := <-workerDone; err != nil {
		logger.Warn("classification worker stopped", zap.Error(err))
	}
}

func repositories(pg *persistence.Postgres) (repository.AgentRepository, repository.TicketRepository) {
	if pool := pg.PoolHandle(); pool != nil {
		return repository.NewAgentRepository(pool), repository.NewTicketRepository(pool)
	}
	return repository.NewMemoryAgentRepository(), repository.NewMemoryTicketRepository()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
