package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/urbispulse/internal/api/http"
	"github.com/spec-kit/urbispulse/internal/api/http/handlers"
	"github.com/spec-kit/urbispulse/internal/auth"
	"github.com/spec-kit/urbispulse/internal/config"
	"github.com/spec-kit/urbispulse/internal/domain"
	"github.com/spec-kit/urbispulse/internal/events"
	"github.com/spec-kit/urbispulse/internal/observability"
	"github.com/spec-kit/urbispulse/internal/persistence"
	"github.com/spec-kit/urbispulse/internal/repository"
	"github.com/spec-kit/urbispulse/internal/service"
	"github.com/spec-kit/urbispulse/internal/worker"
)

type stores struct {
	complaints repository.ComplaintRepository
	history    repository.ComplaintHistoryRepository
	users      repository.UserRepository
	upvotes    repository.UpvoteRepository
	drafts     repository.DraftRepository
}

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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	repos := buildStores(cfg, pg, redis, logger)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	categories := domain.NewCategorySet(cfg.Submission.Categories)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationsDone := worker.StartNotificationWorker(ctx, notificationService)

	janitor := worker.NewDraftJanitor(repos.drafts, cfg.Submission.DraftTTL(), cfg.Submission.SweepInterval(), logger)
	go janitor.Start(ctx)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:     repos.users,
		TokenManager: tokens,
		Logger:       logger,
	})
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo: repos.complaints,
		HistoryRepo:   repos.history,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
	})
	feedService := service.NewFeedService(service.FeedDependencies{
		ComplaintRepo: repos.complaints,
		UpvoteRepo:    repos.upvotes,
		Logger:        logger,
	})
	engagementService := service.NewEngagementService(service.EngagementDependencies{
		ComplaintRepo: repos.complaints,
		UpvoteRepo:    repos.upvotes,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
	})
	submissionService := service.NewSubmissionService(service.SubmissionDependencies{
		DraftRepo:     repos.drafts,
		ComplaintRepo: repos.complaints,
		HistoryRepo:   repos.history,
		Dispatcher:    dispatcher,
		Categories:    categories,
		Classifier:    service.DelayClassifier{Delay: cfg.Submission.CommitDelay()},
		Metrics:       metrics,
		Logger:        logger,
	})

	upvoteLimiter := httptransport.NewPerMinuteLimiter(cfg.RateLimit.UpvotesPerMinute)
	defer upvoteLimiter.Close()
	commitLimiter := httptransport.NewPerMinuteLimiter(cfg.RateLimit.CommitsPerMinute)
	defer commitLimiter.Close()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Complaints:     handlers.NewComplaintsHandler(complaintService, feedService, engagementService),
		Drafts:         handlers.NewDraftsHandler(submissionService),
		Categories:     submissionService.Categories(),
		Metrics:        handlers.MetricsHandler(metrics),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, repos.users),
		UpvoteLimiter:  upvoteLimiter,
		CommitLimiter:  commitLimiter,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	<-notificationsDone
}

// buildStores picks Postgres-backed stores when a pool is open and the Redis ledger when configured.
// Drafts are always process-local.
func buildStores(cfg *config.Config, pg *persistence.Postgres, redis *persistence.Redis, logger *zap.Logger) stores {
	s := stores{drafts: repository.NewMemoryDraftRepository()}
	if pg.Enabled() {
		s.complaints = repository.NewComplaintRepository(pg.Pool)
		s.history = repository.NewComplaintHistoryRepository(pg.Pool)
		s.users = repository.NewUserRepository(pg.Pool)
		logger.Info("using postgres stores")
	} else {
		s.complaints = repository.NewMemoryComplaintRepository()
		s.history = repository.NewMemoryComplaintHistoryRepository()
		s.users = repository.NewMemoryUserRepository()
		logger.Info("using in-memory stores")
	}

	if cfg.Redis.UseRedisLedger() && redis != nil {
		s.upvotes = repository.NewRedisUpvoteRepository(redis.Client, cfg.Redis.LedgerPrefix)
		logger.Info("using redis engagement ledger", zap.String("prefix", cfg.Redis.LedgerPrefix))
	} else {
		s.upvotes = repository.NewMemoryUpvoteRepository()
		logger.Info("using in-memory engagement ledger")
	}
	return s
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
