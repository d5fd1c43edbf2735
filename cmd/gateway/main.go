package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/veloship/leadrelay/internal/api"
	"github.com/veloship/leadrelay/internal/circuitbreaker"
	"github.com/veloship/leadrelay/internal/config"
	"github.com/veloship/leadrelay/internal/db"
	"github.com/veloship/leadrelay/internal/mailer"
	"github.com/veloship/leadrelay/internal/metrics"
	"github.com/veloship/leadrelay/internal/notify"
	"github.com/veloship/leadrelay/internal/observ"
	"github.com/veloship/leadrelay/internal/redis"
	"github.com/veloship/leadrelay/internal/sqs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting leadrelay gateway",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Port),
		zap.String("mailer_provider", cfg.MailerProvider),
	)

	ctx := context.Background()
	database, err := db.New(ctx, db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	repo := db.NewRepository(database, logger)

	// Redis backs the cross-process dispatch dedup guard. The engine
	// works without it; the guard is simply disabled.
	var guard notify.DispatchGuard
	redisClient, err := redis.New(ctx, redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.Warn("redis unavailable, dispatch dedup guard disabled",
			zap.Error(err),
			zap.String("host", cfg.RedisHost),
		)
	} else {
		guard = redis.NewDedupGuard(redisClient, logger)
		defer redisClient.Close()
	}

	transport, err := buildTransport(ctx, cfg, logger)
	if err != nil {
		return err
	}

	resolver := notify.NewResolver(repo, logger)
	attempts := notify.NewStoreAttemptLogger(repo, logger)
	dispatcher := notify.NewDispatcher(
		resolver,
		transport,
		attempts,
		time.Duration(cfg.SendTimeoutSeconds)*time.Second,
		logger,
	)

	// Fire-and-forget trigger path: durable SQS queue when configured,
	// otherwise the bounded in-process pool.
	var queue notify.Queue
	if cfg.SQSQueueURL != "" {
		sqsCfg := sqs.Config{
			Region:   cfg.SQSRegion,
			QueueURL: cfg.SQSQueueURL,
		}

		sqsQueue, err := sqs.NewQueue(ctx, sqsCfg, logger)
		if err != nil {
			return fmt.Errorf("failed to create sqs dispatch queue: %w", err)
		}
		queue = sqsQueue

		consumer, err := sqs.NewConsumer(ctx, sqsCfg, dispatcher, guard, logger)
		if err != nil {
			return fmt.Errorf("failed to create sqs consumer: %w", err)
		}

		consumerCtx, consumerCancel := context.WithCancel(context.Background())
		defer consumerCancel()
		go consumer.Run(consumerCtx)

		logger.Info("durable sqs dispatch queue enabled")
	} else {
		pool := notify.NewWorkerQueue(dispatcher, guard, notify.QueueConfig{
			Workers: cfg.DispatchWorkers,
			Buffer:  cfg.DispatchQueueSize,
		}, logger)
		defer pool.Close()
		queue = pool
	}

	handler := api.NewHandler(logger, repo, queue)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(api.RequestLogger(logger))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/forms/{formType}", handler.SubmitLead)

		r.Route("/admin/notifications", func(r chi.Router) {
			r.Get("/global", handler.GetGlobalSettings)
			r.Put("/global", handler.PutGlobalSettings)
			r.Get("/forms/{formType}", handler.GetFormSettings)
			r.Put("/forms/{formType}", handler.PutFormSettings)
			r.Get("/attempts", handler.ListAttempts)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := database.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unreachable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		logger.Info("server stopped gracefully")
	}

	return nil
}

// buildTransport selects the mail provider from config. A nil transport
// is valid: the dispatcher then records failed attempts with a
// configuration-error reason instead of dropping events.
func buildTransport(ctx context.Context, cfg *config.Config, logger *zap.Logger) (mailer.Transport, error) {
	var transport mailer.Transport

	switch cfg.MailerProvider {
	case config.ProviderSES:
		ses, err := mailer.NewSESMailer(ctx, mailer.SESConfig{
			Region:    cfg.AWSRegion,
			FromEmail: cfg.SESFromEmail,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SES mailer: %w", err)
		}
		transport = ses

	case config.ProviderSMTP:
		transport = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, logger)

	case config.ProviderLog:
		transport = mailer.NewLogMailer(logger)

	case config.ProviderNone:
		logger.Warn("no mail transport configured, dispatches will record failed attempts")
		return nil, nil
	}

	breakerCfg := circuitbreaker.DefaultConfig(cfg.MailerProvider)
	breakerCfg.MaxFailures = cfg.BreakerMaxFailures
	breaker := circuitbreaker.New(breakerCfg, logger)

	return circuitbreaker.NewProtectedMailer(transport, breaker, logger), nil
}
