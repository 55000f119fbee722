// watcher keeps an EventSub WebSocket session open and logs when tracked
// accounts go live.
//
// Usage: go run ./cmd/watcher --config configs/watcher.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/livewatch/internal/api"
	"github.com/rickgao/livewatch/internal/config"
	"github.com/rickgao/livewatch/internal/connection"
	"github.com/rickgao/livewatch/internal/database"
	"github.com/rickgao/livewatch/internal/eventsub"
	"github.com/rickgao/livewatch/internal/logging"
	"github.com/rickgao/livewatch/internal/tokens"
	"github.com/rickgao/livewatch/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/watcher.yaml", "path to config file")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before the config")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load env file", "path", *envFile, "error", err)
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stdout).
		With("instance_id", cfg.Instance.ID)
	slog.SetDefault(logger)

	logger.Info("starting watcher",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("watcher failed", "error", err)
		os.Exit(1)
	}

	logger.Info("watcher stopped")
}

func run(ctx context.Context, cfg *config.WatcherConfig, logger *slog.Logger) error {
	// Create Helix client
	apiClient := api.NewClient(
		cfg.Twitch.HelixURL,
		cfg.Twitch.ClientID,
		cfg.Twitch.AppToken,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Twitch.Timeout),
		api.WithRetries(cfg.Twitch.MaxRetries, time.Second),
		api.WithRateLimit(cfg.Twitch.RequestsPerSecond, int(math.Ceil(cfg.Twitch.RequestsPerSecond))),
	)

	accounts, static, err := resolveAccounts(ctx, cfg.Accounts, apiClient, logger)
	if err != nil {
		return fmt.Errorf("resolve accounts: %w", err)
	}
	logger.Info("accounts resolved",
		"accounts", len(accounts),
		"static_tokens", static.Len(),
	)

	resolvers := tokens.Chain{static}

	// Connect to token store
	var ping func(context.Context) error
	if cfg.Database.TokensEnabled() {
		logger.Info("connecting to token store",
			"host", cfg.Database.Tokens.Host,
			"port", cfg.Database.Tokens.Port,
			"database", cfg.Database.Tokens.Name,
		)

		pool, err := database.Connect(ctx, cfg.Database.Tokens)
		if err != nil {
			return fmt.Errorf("connect token store: %w", err)
		}
		defer pool.Close()

		store := tokens.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		resolvers = append(resolvers, store)
		ping = pool.Ping

		logger.Info("token store connected")
	}

	connCfg := connection.DefaultClientConfig()
	connCfg.HandshakeTimeout = cfg.Listener.HandshakeTimeout
	connCfg.BufferSize = cfg.Listener.MessageBuffer

	listener := eventsub.NewListener(
		eventsub.Config{
			URL:              cfg.Twitch.EventSubURL,
			HandshakeTimeout: cfg.Listener.HandshakeTimeout,
			RetryDelay:       cfg.Listener.RetryDelay,
			MaxSubscriptions: cfg.Listener.MaxSubscriptions,
			KeepaliveGrace:   cfg.Listener.KeepaliveGrace,
		},
		newHelixSubscriber(apiClient, logger),
		newOnlineLogger(logger),
		logger,
		eventsub.WithDialer(eventsub.NewDialer(connCfg, logger)),
		eventsub.WithTokenResolver(resolvers),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           newHTTPHandler(cfg.Metrics.Path, listener, ping),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	gctx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		logger.Info("starting health server",
			"port", cfg.Metrics.Port,
			"metrics_path", cfg.Metrics.Path,
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("watcher running",
			"listener_id", listener.ID(),
			"eventsub_url", cfg.Twitch.EventSubURL,
		)
		// The health server goes down with the listener.
		defer stop()
		return listener.Run(gctx, accounts)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
