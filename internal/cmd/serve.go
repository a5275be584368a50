package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/feedbackhub/feedbackhub/internal/cache"
	"github.com/feedbackhub/feedbackhub/internal/chatbot"
	"github.com/feedbackhub/feedbackhub/internal/config"
	"github.com/feedbackhub/feedbackhub/internal/database"
	"github.com/feedbackhub/feedbackhub/internal/repository"
	"github.com/feedbackhub/feedbackhub/internal/server"
	"github.com/feedbackhub/feedbackhub/internal/services"
	"github.com/feedbackhub/feedbackhub/pkg/logger"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

SIGINT or SIGTERM stops accepting connections, drains in-flight requests
for up to SERVER_SHUTDOWN_TIMEOUT and then exits.

The feedback routes are served only when a database is configured (DB_HOST
and DB_PASSWORD). Redis (REDIS_HOST) adds a read cache in front of it, and
GEMINI_API_KEY enables the assistant.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		log := newLogger(cfg)
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv, cleanup, err := buildServer(ctx, cfg, log)
		if err != nil {
			log.Error("failed to initialize server", "error", err.Error())
			return err
		}
		defer cleanup()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			log.Info("shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return <-errCh
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending migrations before serving")
}

// buildServer connects the optional backing stores and wires the services
// into a server. The returned cleanup closes every opened connection.
func buildServer(ctx context.Context, cfg *config.Config, log *logger.Logger) (*server.Server, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	srv := server.New(cfg, log)

	if cfg.ChatbotEnabled() {
		srv.SetChatbotService(services.NewChatbotService(chatbot.NewGeminiClient(&cfg.Chatbot), log))
		log.Info("chatbot enabled", "model", cfg.Chatbot.Model)
	} else {
		log.Warn("chatbot disabled: GEMINI_API_KEY is not set")
	}

	if !cfg.DatabaseEnabled() {
		log.Warn("feedback store disabled: database is not configured")
		return srv, cleanup, nil
	}

	pool, err := database.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, func() {}, err
	}
	closers = append(closers, pool.Close)
	srv.HealthHandler().AddCheck("database", pool.HealthCheck)

	if autoMigrate {
		if err := migrateUp(ctx, pool, log); err != nil {
			cleanup()
			return nil, func() {}, err
		}
	}

	var repo repository.FeedbackRepository = repository.NewPostgresFeedbackRepository(pool)

	if cfg.RedisEnabled() {
		redisCache, err := cache.NewRedisCache(ctx, &cfg.Redis)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, func() { _ = redisCache.Close() })
		srv.HealthHandler().AddCheck("redis", redisCache.Ping)

		repo = repository.NewCachedFeedbackRepository(repo, cache.NewFeedbackCache(redisCache, "", cfg.Cache.FeedbackTTL))
		log.Info("feedback cache enabled", "ttl", cfg.Cache.FeedbackTTL.String())
	}

	srv.SetFeedbackService(services.NewFeedbackService(repo, log))
	return srv, cleanup, nil
}

func migrateUp(ctx context.Context, pool *database.Pool, log *logger.Logger) error {
	migrator, err := database.NewDefaultMigrator(pool)
	if err != nil {
		return err
	}
	applied, err := migrator.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Info("migrations applied", "count", applied)
	return nil
}
