package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/emilythestrangee/paperboard/backend/internal/auth"
	"github.com/emilythestrangee/paperboard/backend/internal/events"
	"github.com/emilythestrangee/paperboard/backend/internal/handlers"
	"github.com/emilythestrangee/paperboard/backend/internal/ratelimit"
	"github.com/emilythestrangee/paperboard/backend/internal/server"
	"github.com/emilythestrangee/paperboard/backend/internal/services"
	"github.com/emilythestrangee/paperboard/backend/internal/storage"
	"github.com/emilythestrangee/paperboard/backend/internal/telemetry"
)

var (
	autoMigrate  bool
	withNotifier bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `serve starts the HTTP API. Object storage, Redis rate limiting, Kafka
events and OTLP tracing are each switched on by their configuration; without
a broker, feed events are handled in-process.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "apply schema migrations on startup")
	serveCmd.Flags().BoolVar(&withNotifier, "with-notifier", false, "also run the notification consumer (requires Kafka)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Tracing, cfg.Env, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	db, err := openDatabase(cmd, autoMigrate)
	if err != nil {
		return err
	}
	defer db.Close()
	gdb := db.GetDB()

	notifications := services.NewNotificationService(gdb, logger)

	var pub events.Publisher
	if cfg.Kafka.Enabled() {
		pub = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info("publishing feed events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		pub = events.NewDispatcher(notifications.HandleEvent)
	}
	defer pub.Close()

	// Interfaces stay nil when storage is off so handlers answer 503.
	var (
		files   handlers.FileStore
		remover services.ObjectRemover
	)
	if cfg.Storage.Enabled() {
		st, err := storage.New(cfg.Storage)
		if err != nil {
			return err
		}
		if err := st.EnsureBucket(ctx); err != nil {
			return err
		}
		files, remover = st, st
		logger.Info("object storage ready", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		logger.Warn("object storage disabled; uploads will be rejected")
	}

	var limiter *ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		counter := ratelimit.NewRedisCounter(cfg.Redis.Addr)
		defer counter.Close()
		if err := counter.Ping(ctx); err != nil {
			logger.Warn("redis unreachable; requests will pass until it recovers", zap.Error(err))
		}
		limiter = ratelimit.New(counter, cfg.Redis.RatePerMinute, time.Minute)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	google := auth.NewGoogleVerifier(cfg.Auth.GoogleTokenInfoURL, nil)

	h := handlers.NewHandler(handlers.Deps{
		Users:         services.NewUserService(gdb, tokens, google, logger),
		Papers:        services.NewPaperService(gdb, pub, remover, logger),
		Feed:          services.NewFeedService(gdb, pub, logger),
		Notifications: notifications,
		Files:         files,
		Logger:        logger,
	})
	srv := server.New(cfg, db, h, tokens, limiter, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if withNotifier {
		if cfg.Kafka.Enabled() {
			consumer := events.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, notifications.HandleEvent, logger)
			g.Go(func() error { return consumer.Run(gctx) })
		} else {
			logger.Info("--with-notifier ignored: events are already handled in-process")
		}
	}
	return g.Wait()
}
