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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"cipherbot/apps/backend/internal/config"
	"cipherbot/apps/backend/internal/llm"
	"cipherbot/apps/backend/internal/logging"
	"cipherbot/apps/backend/internal/server"
	"cipherbot/apps/backend/internal/store"
	"cipherbot/apps/backend/internal/store/cache"
	"cipherbot/apps/backend/internal/store/postgres"
	"cipherbot/apps/backend/internal/store/sqlite"
)

var (
	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "cipherbot",
		Short: "CIPHER BOT chat backend",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg = config.Load()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return logging.Init(cfg.LogLevel, cfg.LogFormat)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	seedDefaults bool
	migrateCmd   = &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), seedDefaults)
		},
	}
)

func init() {
	migrateCmd.Flags().BoolVar(&seedDefaults, "seed", false, "insert or refresh the default intents")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context) (store.Driver, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return sqlite.NewDB(cfg.SQLitePath)
	default:
		return postgres.NewDB(ctx, cfg.PostgresURL())
	}
}

func runMigrate(ctx context.Context, seed bool) error {
	driver, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("database connect failed: %w", err)
	}
	defer driver.Close()

	if err := driver.Migrate(ctx); err != nil {
		return err
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("schema is up to date")

	if !seed {
		return nil
	}
	for _, item := range store.DefaultIntents() {
		if _, err := driver.UpsertIntent(ctx, item); err != nil {
			return err
		}
	}
	log.Info().Int("count", len(store.DefaultIntents())).Msg("default intents seeded")
	return nil
}

func runServe(ctx context.Context) error {
	driver, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("database connect failed: %w", err)
	}

	if err := driver.Ping(ctx); err != nil {
		driver.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := driver.ValidateSchema(ctx); err != nil {
		driver.Close()
		return fmt.Errorf("database schema mismatch: %w", err)
	}

	if cfg.RedisURL != "" {
		backend, err := cache.NewRedisBackend(ctx, cfg.RedisURL)
		if err != nil {
			// The cache is optional; serve straight from the database.
			log.Warn().Err(err).Msg("redis unavailable, intent cache disabled")
		} else {
			ttl := time.Duration(cfg.IntentCacheTTLSeconds) * time.Second
			driver = cache.NewDriver(driver, backend, ttl)
			log.Info().Dur("ttl", ttl).Msg("intent cache enabled")
		}
	}
	defer driver.Close()

	client, err := llm.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("llm client setup failed: %w", err)
	}

	app := server.New(cfg, driver, client)
	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("provider", client.Name()).
			Str("db_driver", cfg.DBDriver).
			Msgf("cipherbot api listening on http://localhost:%s", cfg.AppPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-stop:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	return nil
}
