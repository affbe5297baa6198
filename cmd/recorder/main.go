// recorder subscribes to streaming market data and persists it to
// PostgreSQL.
//
// Usage: go run ./cmd/recorder --config configs/recorder.yaml
//
// The config file supports ${VAR} environment substitution, so
// credentials can be kept out of the file itself.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dflow-protocol/dflow-go/internal/config"
	"github.com/dflow-protocol/dflow-go/internal/recorder"
	"github.com/dflow-protocol/dflow-go/internal/version"
	"github.com/dflow-protocol/dflow-go/stream"
)

func main() {
	configPath := flag.String("config", "configs/recorder.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting recorder",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"ws_url", cfg.API.WSURL,
		"channels", cfg.Recorder.Channels,
		"all_markets", cfg.Recorder.AllMarkets,
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

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := recorder.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Create the streaming client and the recorder that consumes it
	streamCfg := stream.DefaultConfig()
	streamCfg.URL = cfg.API.WSURL
	streamCfg.APIKey = cfg.API.APIKey
	streamCfg.BufferSize = cfg.Recorder.BufferSize

	client := stream.NewClient(streamCfg, logger)

	rec := recorder.New(cfg.Recorder, pool, logger)
	detach := rec.Attach(client)
	defer detach()

	if err := rec.Start(ctx); err != nil {
		logger.Error("failed to start recorder", "error", err)
		os.Exit(1)
	}

	// Surface terminal stream errors so the process exits instead of
	// sitting disconnected.
	fatalCh := make(chan error, 1)
	client.OnError(func(err error) {
		if errors.Is(err, stream.ErrReconnectExhausted) {
			select {
			case fatalCh <- err:
			default:
			}
			return
		}
		logger.Warn("stream error", "error", err)
	})

	if err := client.Connect(ctx); err != nil {
		logger.Error("failed to connect stream", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect()

	if err := subscribeAll(client, cfg.Recorder); err != nil {
		logger.Error("failed to subscribe", "error", err)
		os.Exit(1)
	}

	logger.Info("recorder running",
		"instance_id", cfg.Instance.ID,
		"session_id", rec.SessionID(),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-fatalCh:
			return fmt.Errorf("stream terminated: %w", err)
		}
	})

	// Periodic stats logging
	g.Go(func() error {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				stats := rec.Stats()
				logger.Info("recorder stats",
					"inserts", stats.Inserts,
					"conflicts", stats.Conflicts,
					"flushes", stats.Flushes,
					"dropped", stats.Dropped,
					"errors", stats.Errors,
				)
			}
		}
	})

	exitCode := 0
	if err := g.Wait(); err != nil {
		logger.Error("recorder failed", "error", err)
		exitCode = 1
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := rec.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop recorder", "error", err)
	}

	logger.Info("recorder stopped")
	os.Exit(exitCode)
}

// subscribeAll issues subscriptions for every configured channel.
func subscribeAll(client *stream.Client, cfg config.CaptureConfig) error {
	for _, ch := range cfg.Channels {
		var err error
		switch stream.Channel(ch) {
		case stream.ChannelPrices:
			if cfg.AllMarkets {
				err = client.SubscribeAllPrices()
			} else {
				err = client.SubscribePrices(cfg.Tickers...)
			}
		case stream.ChannelTrades:
			if cfg.AllMarkets {
				err = client.SubscribeAllTrades()
			} else {
				err = client.SubscribeTrades(cfg.Tickers...)
			}
		case stream.ChannelOrderbook:
			if cfg.AllMarkets {
				err = client.SubscribeAllOrderbook()
			} else {
				err = client.SubscribeOrderbook(cfg.Tickers...)
			}
		default:
			err = fmt.Errorf("unknown channel %q", ch)
		}
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", ch, err)
		}
	}
	return nil
}
