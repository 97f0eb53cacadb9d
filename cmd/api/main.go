package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"campusbus/identity/internal/cache"
	"campusbus/identity/internal/config"
	"campusbus/identity/internal/database"
	"campusbus/identity/internal/handlers"
	"campusbus/identity/internal/identifier"
	"campusbus/identity/internal/jobs"
	"campusbus/identity/internal/kv"
	"campusbus/identity/internal/log"
	"campusbus/identity/internal/queue"
	"campusbus/identity/internal/repository"
	"campusbus/identity/internal/server"
	"campusbus/identity/internal/service"
	"campusbus/identity/internal/session"
	"campusbus/identity/internal/storage"
)

type backends struct {
	store  kv.Store
	pruner jobs.ExpiryPruner
	db     *pgxpool.Pool
	redis  *redis.Client
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx := context.Background()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}
	store := kv.WithPrefix(b.store, cfg.Store.KeyPrefix)

	classifier, err := newClassifier(cfg.Security)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid email pattern")
	}

	users := repository.NewUserRepository(store, repository.DefaultAllowList())
	if cfg.Seed.OnStart {
		added, err := users.SeedIfEmpty(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("seed users failed")
		}
		if added > 0 {
			logger.Info().Int("added", added).Msg("seeded demonstration accounts")
		}
	}

	var notifier service.Notifier
	if cfg.Notifications.Enabled && b.redis != nil {
		notifier = queue.NewPublisher(b.redis, cfg.Notifications.Stream).WithMaxLen(cfg.Notifications.MaxLen)
	}

	var sink service.SnapshotSink
	if cfg.Storage.Enabled {
		objectStore, err := storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure snapshot bucket failed")
		}
		sink = objectStore
	}

	auth := service.NewAuthService(users, logger)
	resets := service.NewResetService(users, repository.NewResetTokenRepository(store), notifier, service.ResetOptions{
		TTL:               cfg.Security.ResetTokenTTL,
		MinPasswordLength: cfg.Security.MinPasswordLength,
		HashPasswords:     cfg.Security.HashPasswords,
	}, logger)
	registrations := service.NewRegistrationService(users, cfg.Security.MinPasswordLength, cfg.Security.HashPasswords, logger).
		WithClassifier(classifier)
	backups := service.NewBackupService(users, sink, nil, logger)
	sessions := session.NewManager(store, session.Options{
		Secret: cfg.Security.SessionSecret,
		TTL:    cfg.Security.SessionTTL,
	}, logger)

	handlerSet := handlers.NewHandlerSet(handlers.Dependencies{
		Config:        cfg,
		Log:           logger,
		Store:         store,
		Classifier:    classifier,
		Users:         users,
		Auth:          auth,
		Sessions:      sessions,
		Resets:        resets,
		Registrations: registrations,
		Backups:       backups,
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(cfg.Jobs, resets, backups, b.pruner, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, b)
}

func openBackends(ctx context.Context, cfg *config.AppConfig) (backends, error) {
	var b backends

	if cfg.Store.Driver == "redis" || cfg.Notifications.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return b, err
		}
		b.redis = client
	}

	switch cfg.Store.Driver {
	case "memory":
		b.store = kv.NewMemoryStore(nil)
	case "redis":
		b.store = kv.NewRedisStore(b.redis)
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return b, err
		}
		pg := kv.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return b, err
		}
		b.db = pool
		b.store = pg
		b.pruner = pg
	default:
		return b, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	return b, nil
}

func newClassifier(cfg config.SecurityConfig) (*identifier.Classifier, error) {
	admin, err := identifier.CompilePatterns(cfg.AdminEmailPattern)
	if err != nil {
		return nil, err
	}
	staff, err := identifier.CompilePatterns(cfg.StaffEmailPattern)
	if err != nil {
		return nil, err
	}
	return identifier.New(admin, staff), nil
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, b backends) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduled jobs still running at shutdown")
	}

	if b.db != nil {
		b.db.Close()
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
