package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/fleetboard/fleetboard/internal/app"
	"github.com/fleetboard/fleetboard/internal/auth"
	"github.com/fleetboard/fleetboard/internal/authz"
	"github.com/fleetboard/fleetboard/internal/categories"
	"github.com/fleetboard/fleetboard/internal/discord"
	"github.com/fleetboard/fleetboard/internal/fleets"
	"github.com/fleetboard/fleetboard/internal/observability"
	"github.com/fleetboard/fleetboard/internal/pingformats"
	"github.com/fleetboard/fleetboard/internal/platform/db"
	"github.com/fleetboard/fleetboard/internal/shared"
	"github.com/fleetboard/fleetboard/internal/users"
	"github.com/fleetboard/fleetboard/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "fleetboard_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	metrics := observability.NewMetrics()

	permStore := authz.NewSQLStore(dbpool)
	guard := authz.NewGuard(permStore)
	guard.SetDenialObserver(metrics)
	enumerator := authz.NewEnumerator(permStore)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, guard)

	discordRepo := discord.NewRepository(dbpool)
	discordHandler := discord.NewHandler(logger, discordRepo, guard)

	oauthConfig := auth.NewOAuthConfig(cfg.DiscordClientID, cfg.DiscordClientSecret, cfg.DiscordRedirectURL)
	authService := auth.NewService(logger, oauthConfig, auth.NewDiscordAPI(), usersRepo, discordRepo, cfg.AdminCodeHash)
	authHandler := auth.NewHandler(logger, authService, guard, sessionManager)

	categoriesRepo := categories.NewRepository(dbpool)
	categoriesService := categories.NewService(categoriesRepo)
	categoriesHandler := categories.NewHandler(logger, categoriesService, guard, enumerator)

	fleetsRepo := fleets.NewRepository(dbpool)
	fleetsService := fleets.NewService(fleetsRepo)
	fleetsHandler := fleets.NewHandler(logger, fleetsService, guard, enumerator)

	formatsRepo := pingformats.NewRepository(dbpool)
	formatsService := pingformats.NewService(formatsRepo)
	formatsHandler := pingformats.NewHandler(logger, formatsService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		DiscordHandler:     discordHandler,
		CategoriesHandler:  categoriesHandler,
		FleetsHandler:      fleetsHandler,
		PingFormatsHandler: formatsHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
