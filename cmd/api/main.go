package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/campusfindz/campusfindz-backend/api/controllers"
	"github.com/campusfindz/campusfindz-backend/api/routes"
	"github.com/campusfindz/campusfindz-backend/internal/auth"
	"github.com/campusfindz/campusfindz-backend/internal/comments"
	"github.com/campusfindz/campusfindz-backend/internal/notifications"
	"github.com/campusfindz/campusfindz-backend/internal/photos"
	"github.com/campusfindz/campusfindz-backend/internal/posts"
	"github.com/campusfindz/campusfindz-backend/internal/roles"
	"github.com/campusfindz/campusfindz-backend/internal/users"
	"github.com/campusfindz/campusfindz-backend/pkg/auth/session"
	"github.com/campusfindz/campusfindz-backend/pkg/config"
	"github.com/campusfindz/campusfindz-backend/pkg/db"
	"github.com/campusfindz/campusfindz-backend/pkg/events"
	"github.com/campusfindz/campusfindz-backend/pkg/google"
	"github.com/campusfindz/campusfindz-backend/pkg/logger"
	"github.com/campusfindz/campusfindz-backend/pkg/metrics"
	"github.com/campusfindz/campusfindz-backend/pkg/migrate"
	"github.com/campusfindz/campusfindz-backend/pkg/pubsub"
	"github.com/campusfindz/campusfindz-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.Session)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	provider, err := google.NewProvider(cfg.GoogleOAuth)
	if err != nil {
		logg.Error(ctx, "failed to create google provider", err)
		os.Exit(1)
	}

	// Eventing is optional: without a GCP project the publisher is nil
	// and services simply skip publishing.
	var publisher *events.Publisher
	healthDeps := []controllers.NamedPinger{
		{Name: "database", Pinger: dbClient},
		{Name: "redis", Pinger: redisClient},
	}
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		publisher = events.NewPublisher(pubsubClient.EventsPublisher(), logg)
		healthDeps = append(healthDeps, controllers.NamedPinger{Name: "pubsub", Pinger: pubsubClient})
	} else {
		logg.Warn(ctx, "no GCP project configured, domain events disabled")
	}

	gormDB := dbClient.DB()
	resolver := roles.NewResolver(gormDB, logg)
	postsRepo := posts.NewRepository(gormDB)

	usersService, err := users.NewService(users.NewRepository(gormDB), dbClient, resolver, logg)
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}
	postsService, err := posts.NewService(postsRepo, publisher, logg)
	if err != nil {
		logg.Error(ctx, "failed to create posts service", err)
		os.Exit(1)
	}
	commentsService, err := comments.NewService(comments.NewRepository(gormDB), postsRepo, publisher, logg)
	if err != nil {
		logg.Error(ctx, "failed to create comments service", err)
		os.Exit(1)
	}
	notificationsService, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		logg.Error(ctx, "failed to create notifications service", err)
		os.Exit(1)
	}
	photoStore, err := photos.NewDiskStore(cfg.Uploads.Dir)
	if err != nil {
		logg.Error(ctx, "failed to prepare upload directory", err)
		os.Exit(1)
	}
	photosService, err := photos.NewService(photos.NewRepository(gormDB), photoStore, cfg.Uploads.MaxUploadMB, logg)
	if err != nil {
		logg.Error(ctx, "failed to create photos service", err)
		os.Exit(1)
	}
	authService, err := auth.NewService(sessionManager, provider, usersService, resolver, redisClient, cfg.GoogleOAuth, cfg.AuthRateLimit, logg)
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)

	router := routes.NewRouter(routes.Params{
		Config:               cfg,
		Logger:               logg,
		Sessions:             sessionManager,
		AdminResolver:        resolver,
		HTTPMetrics:          httpMetrics,
		Gatherer:             registry,
		AuthService:          authService,
		UsersService:         usersService,
		PostsService:         postsService,
		CommentsService:      commentsService,
		NotificationsService: notificationsService,
		PhotosService:        photosService,
		HealthDeps:           healthDeps,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
	logg.Info(logCtx, "api server stopped")
}
