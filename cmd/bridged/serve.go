package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haasonsaas/nexus-bridge/internal/adapter"
	"github.com/haasonsaas/nexus-bridge/internal/bridge"
	"github.com/haasonsaas/nexus-bridge/internal/config"
	"github.com/haasonsaas/nexus-bridge/internal/dialect/anthropic"
	"github.com/haasonsaas/nexus-bridge/internal/dialect/deepseek"
	"github.com/haasonsaas/nexus-bridge/internal/dialect/gemini"
	"github.com/haasonsaas/nexus-bridge/internal/dialect/moonshot"
	"github.com/haasonsaas/nexus-bridge/internal/dialect/openai"
	"github.com/haasonsaas/nexus-bridge/internal/dialect/qwen"
	"github.com/haasonsaas/nexus-bridge/internal/dialect/zhipu"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bridge server",
		Long: `Start the bridge server.

The server will:
1. Load the route/provider configuration from the specified file
2. Build the dialect adapter registry
3. Start watching the config file for edits (hot reload)
4. Serve HTTP on the configured bind address

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		Example: `  # Start with the default config
  bridged serve --config bridge.yaml

  # Start with debug logging
  bridged serve --config bridge.yaml --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "bridge.yaml", "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func buildAdapterRegistry() *adapter.Registry {
	return adapter.NewRegistry(
		openai.New(),
		anthropic.New(),
		gemini.New(),
		deepseek.New(),
		moonshot.New(),
		qwen.New(),
		zhipu.New(),
	)
}

func runServe(ctx context.Context, configPath string, debug bool) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("starting bridge", "version", version, "commit", commit, "config", configPath, "debug", debug)

	store, err := config.NewStore(configPath, logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registry := buildAdapterRegistry()
	engine := bridge.NewEngine(registry, logger)
	engine.Publish(bridge.NewSnapshot(store.Snapshot()))

	store.OnReload = func(cfg *config.BridgeConfig) {
		engine.Publish(bridge.NewSnapshot(cfg))
	}

	stopWatch, err := store.Watch(ctx)
	if err != nil {
		logger.Warn("config file watch unavailable, hot reload disabled", "error", err)
	} else {
		defer stopWatch()
	}

	settings := store.Snapshot().Settings
	mux := http.NewServeMux()
	mux.Handle("/", engine)
	mux.HandleFunc("/internal/reload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := store.Reload(); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    settings.BindAddress,
		Handler: mux,
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bridge listening", "addr", settings.BindAddress)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logger.Info("shutdown signal received, initiating graceful shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("bridge stopped gracefully")
	return nil
}
