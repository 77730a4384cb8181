package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/agency-ops/report-desk/internal/api/http"
	"github.com/agency-ops/report-desk/internal/api/http/handlers"
	"github.com/agency-ops/report-desk/internal/chat"
	"github.com/agency-ops/report-desk/internal/config"
	"github.com/agency-ops/report-desk/internal/events"
	"github.com/agency-ops/report-desk/internal/observability"
	"github.com/agency-ops/report-desk/internal/persistence"
	"github.com/agency-ops/report-desk/internal/repository"
	"github.com/agency-ops/report-desk/internal/reservation"
	"github.com/agency-ops/report-desk/internal/roblox"
	"github.com/agency-ops/report-desk/internal/service"
	"github.com/agency-ops/report-desk/internal/storage"
	"github.com/agency-ops/report-desk/internal/wizard"
)

func main() {
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

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	evidenceStore, err := storage.NewEvidenceStore(cfg.Upload.Dir)
	if err != nil {
		logger.Fatal("failed to prepare upload directory", zap.Error(err))
	}

	gateway, err := chat.NewDiscordGateway(cfg.Discord.BotToken, logger)
	if err != nil {
		logger.Fatal("failed to build discord session", zap.Error(err))
	}
	if err := gateway.Open(); err != nil {
		logger.Fatal("failed to connect to discord", zap.Error(err))
	}
	defer gateway.Close() //nolint:errcheck

	metrics := observability.NewMetrics()
	resolver := roblox.NewResolver(cfg.Roblox, logger)

	var reservations reservation.Reservations
	var sessions wizard.Store
	if redis.Enabled() {
		reservations = reservation.NewRedis(redis.Client)
		sessions = wizard.NewRedisStore(redis.Client, cfg.Wizard.SessionTTL())
	} else {
		reservations = reservation.NewMemory()
		sessions = wizard.NewMemoryStore(cfg.Wizard.SessionTTL())
	}

	var submissions repository.SubmissionRepository
	if pg.Enabled() {
		submissions = repository.NewSubmissionRepository(pg.PoolHandle())
	}

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notifications.RegisterHandlers()

	ticketService := service.NewTicketService(cfg.Discord, service.TicketDependencies{
		Gateway:      gateway,
		Resolver:     resolver,
		Reservations: reservations,
		Submissions:  submissions,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	closerService := service.NewCloserService(cfg.Discord, service.CloserDependencies{
		Gateway:    gateway,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	oauthService := service.NewOAuthService(cfg.OAuth, logger)

	gateway.OnCloseTicket(closerService.HandleClose)

	app := fiber.New(fiber.Config{BodyLimit: 25 * 1024 * 1024})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.OAuth.ClientURL, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, gateway),
		Auth:      handlers.NewAuthHandler(oauthService, sessions, logger),
		Report:    handlers.NewReportHandler(ticketService, evidenceStore, cfg.Upload.MaxEvidenceFiles),
		Wizard:    handlers.NewWizardHandler(sessions, ticketService, evidenceStore, cfg.Upload.MaxEvidenceFiles),
		UploadDir: evidenceStore.Dir(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
