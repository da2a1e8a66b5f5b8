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

	"github.com/sparrowhq/relay/internal/adapter/translator"
	"github.com/sparrowhq/relay/internal/adapter/translator/anthropic"
	"github.com/sparrowhq/relay/internal/config"
	"github.com/sparrowhq/relay/internal/httpapi"
	"github.com/sparrowhq/relay/internal/logger"
	"github.com/sparrowhq/relay/internal/upstream"
)

func main() {
	startTime := time.Now()

	var styledLogger logger.StyledLogger

	cfg, err := config.Load(func() {
		if styledLogger != nil {
			styledLogger.Info("Configuration reloaded")
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logInstance, sl, cleanup, err := logger.NewWithTheme(loggerConfig(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	styledLogger = sl
	defer cleanup()
	slog.SetDefault(logInstance)

	styledLogger.Info("Initialising relay", "pid", os.Getpid())

	upstreamClient := upstream.New(cfg.Upstream)

	anthropicTranslator := anthropic.NewTranslator(styledLogger)
	registry := translator.NewRegistry(styledLogger)
	registry.Register("", anthropicTranslator)

	server := httpapi.NewServer(registry, upstreamClient, styledLogger, cfg.Streaming, cfg.Server.MaxBodySize)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		styledLogger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	serveErrCh := make(chan error, 1)
	go func() {
		styledLogger.Info("Listening", "addr", httpServer.Addr, "upstream", cfg.Upstream.BaseURL)
		serveErrCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.FatalWithLogger(logInstance, "HTTP server failed", "error", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		styledLogger.Error("Error during shutdown", "error", err)
	}

	styledLogger.Info("relay has shut down", "uptime", time.Since(startTime).String())
}

func loggerConfig(cfg *config.Config) *logger.Config {
	return &logger.Config{
		Level:      cfg.Logging.Level,
		LogDir:     cfg.Logging.LogDir,
		Theme:      cfg.Logging.Theme,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		FileOutput: cfg.Logging.FileOutput,
		PrettyLogs: cfg.Logging.PrettyLogs,
	}
}
