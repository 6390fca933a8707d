package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ballparklive/ballpark/internal/commentary"
	"github.com/ballparklive/ballpark/internal/config"
	"github.com/ballparklive/ballpark/internal/feed"
	"github.com/ballparklive/ballpark/internal/mlb"
	"github.com/ballparklive/ballpark/internal/notify"
	"github.com/ballparklive/ballpark/internal/replay"
	"github.com/ballparklive/ballpark/internal/server"
	"github.com/ballparklive/ballpark/internal/ws"
)

var (
	cfgFile string
	verbose bool
)

func setupLogger(verbose bool, logCfg *config.LoggingConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if verbose {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.DisableStacktrace = true
	}

	if logCfg != nil && logCfg.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(logCfg.Level)); err == nil {
			zapConfig.Level = zap.NewAtomicLevelAt(level)
		}
	}

	return zapConfig.Build()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "ballpark",
		Short: "Live MLB feed aggregation and replay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("BALLPARK_CONFIG"), "config file path (or set BALLPARK_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := setupLogger(verbose, &cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("port", cfg.Server.Port),
		zap.String("upstream", cfg.Upstream.BaseURL),
		zap.Duration("pollInterval", cfg.Feed.PollInterval),
		zap.Duration("replayCadence", cfg.Replay.Cadence),
		zap.Duration("predictionTimeout", cfg.Replay.PredictionTimeout),
	)

	client := mlb.NewClient(
		cfg.Upstream.BaseURL,
		cfg.Upstream.ScheduleURL,
		cfg.Upstream.Season,
		cfg.Upstream.RatePerSecond,
		time.Duration(cfg.Upstream.TimeoutSec)*time.Second,
		time.Duration(cfg.Upstream.RetryDelaySec)*time.Second,
		cfg.Upstream.RetryCount,
		logger,
	)

	commentator := commentary.NewClient(
		cfg.Commentary.BaseURL,
		cfg.Commentary.APIKey,
		cfg.Commentary.Model,
		time.Duration(cfg.Commentary.TimeoutSec)*time.Second,
		logger,
	)

	notifier := notify.New(notify.LoadConfig(), logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	arena := feed.NewArena(runCtx, client, commentator, notifier,
		cfg.Feed.PollInterval, cfg.Feed.SubscriberBuffer, logger)

	store := replay.NewStore()
	replaySvc := replay.NewService(client, commentator, store, notifier,
		cfg.Replay.PredictionTimeout, cfg.Replay.Cadence, logger)

	encoder, err := ws.NewEncoder()
	if err != nil {
		logger.Error("failed to create ws encoder", zap.Error(err))
		return err
	}
	defer encoder.Close()

	hub := ws.NewHub(arena, encoder, logger)
	go hub.Run(runCtx)
	negotiate := ws.NewNegotiateHandler(logger)

	srv := server.NewServer(arena, replaySvc, client, logger)
	router := server.NewRouter(srv, hub, negotiate, logger)

	httpServer := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: SSE streams stay open for the life of a game.
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server...")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return err
	}

	// Stop feed pollers and WebSocket components
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}
