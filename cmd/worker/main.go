package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"campusbus/identity/internal/cache"
	"campusbus/identity/internal/config"
	"campusbus/identity/internal/log"
	"campusbus/identity/internal/queue"
	"campusbus/identity/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	processor := tasks.NewProcessor(cfg.Worker.ResetURL, tasks.LogDeliverer{Logger: logger}, logger)
	consumer := queue.NewConsumer(client, queue.ConsumerOptions{
		Stream:        cfg.Notifications.Stream,
		Group:         cfg.Notifications.Group,
		Consumer:      cfg.Notifications.Consumer,
		ClaimInterval: cfg.Worker.ClaimInterval,
	}, logger, processor)

	logger.Info().
		Str("stream", cfg.Notifications.Stream).
		Str("group", cfg.Notifications.Group).
		Msg("worker started")

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
	}

	logger.Info().Msg("worker exited cleanly")
}
