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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/maltedev/phone-catalog-scraper/internal/api"
	"github.com/maltedev/phone-catalog-scraper/internal/app"
	"github.com/maltedev/phone-catalog-scraper/internal/config"
	"github.com/maltedev/phone-catalog-scraper/internal/database"
	"github.com/maltedev/phone-catalog-scraper/internal/jobs"
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

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Sink != "postgres" {
		log.Error("crawl server needs CATALOG_SINK=postgres to queue jobs")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stack, err := app.Build(ctx, cfg, app.Options{}, log)
	if err != nil {
		log.Error("failed to build crawl stack", "error", err)
		os.Exit(1)
	}
	defer stack.Close()

	if cfg.Redis.RelayEnabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}

		relay := database.NewRelay(stack.Outbox, redisClient, log, database.RelayConfig{
			PollInterval: cfg.Redis.PollInterval,
			BatchSize:    100,
		})
		go func() {
			if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("relay stopped with error", "error", err)
			}
		}()
	}

	manager := jobs.NewManager(jobs.NewPostgresStore(stack.DB), stack.Pipeline, jobs.Defaults{
		Locales:           cfg.Scraper.Locales,
		MaxPages:          cfg.Scraper.MaxPages,
		Search:            cfg.Scraper.SearchSweep,
		FilterAccessories: cfg.Scraper.FilterAccessories,
		Export:            len(cfg.Export.Formats) > 0,
	}, cfg.Server.PollInterval, log)

	workerDone := make(chan struct{})
	go func() {
		manager.StartWorker(ctx)
		close(workerDone)
	}()

	handlers := api.NewHandlers(manager, stack.Listings, stack.Outbox, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Mount("/", handlers.Routes())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "port", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	<-workerDone
	log.Info("server stopped")
}
