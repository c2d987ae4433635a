package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/maltedev/phone-catalog-scraper/internal/config"
	"github.com/maltedev/phone-catalog-scraper/internal/events"
	"github.com/maltedev/phone-catalog-scraper/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis", "addr", cfg.Redis.Addr)

	hostname, _ := os.Hostname()
	consumer := events.NewConsumer(rdb, func(_ context.Context, p *events.ListingsUpsertedPayload) error {
		log.Info("listing batch stored",
			"run_id", p.RunID,
			"batch", p.Batch,
			"store", p.Store,
			"records", p.Records,
			"written", p.Written,
			"brands", p.Brands,
			"locales", p.Locales)
		return nil
	}, events.ConsumerConfig{
		Stream:   cfg.Redis.Stream,
		Consumer: hostname,
	}, log)

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("consumer stopped")
}
