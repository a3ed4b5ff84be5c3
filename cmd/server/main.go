package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mselko/termhub/internal/config"
	"github.com/mselko/termhub/internal/gateway"
	"github.com/mselko/termhub/internal/history"
	"github.com/mselko/termhub/internal/session"
	"github.com/mselko/termhub/internal/storage"
	"github.com/mselko/termhub/internal/suggest"
)

// version and build are injected at link time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.build=$(git rev-parse --short HEAD)"
var (
	version = "dev"
	build   = "unknown"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to the YAML config file")
	listen := flag.String("listen", "", "override the gateway listen address")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("termhubd %s (%s)\n", version, build)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("daemon failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage & history --------------------------------------------
	// The DB lives under ~/.termhub/ so it persists across app restarts.
	// An empty path disables persistence and keeps history in memory only.
	var db *storage.DB
	if cfg.HistoryDBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.HistoryDBPath), 0o700); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		var err error
		db, err = storage.NewDB(cfg.HistoryDBPath)
		if err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
	}
	histSvc := history.NewService(history.NewStore(), db, logger)
	if err := histSvc.Warm(ctx); err != nil {
		logger.Warn("history warm-up failed", "error", err)
	}

	// --- Gateway & sessions -------------------------------------------
	gw := gateway.NewServer(cfg.Listen, logger)
	mgr := session.NewManager(gw, session.Config{
		ReadBufferSize: cfg.ReadBufferSize,
		DrainTimeout:   cfg.DrainDuration(),
		Logger:         logger,
	})

	historyProvider := suggest.NewHistoryProvider(histSvc)
	filesystemProvider := suggest.NewFilesystemProvider(mgr)
	staticProvider := suggest.NewStaticProvider()
	suggestSvc := suggest.NewService(logger,
		historyProvider,    // history matches rank highest
		filesystemProvider, // then filesystem completions
		staticProvider,     // builtin commands rank lowest
	)

	gateway.RegisterDefaultHandlers(gw, gateway.HandlerDeps{
		Manager:   mgr,
		History:   histSvc,
		Suggest:   suggestSvc,
		Version:   version,
		Build:     build,
		StartTime: time.Now(),
	})

	logger.Info("termhubd starting", "version", version, "build", build, "listen", cfg.Listen)

	// Start blocks until ctx is cancelled or the listener fails.
	serveErr := gw.Start(ctx)

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mgr.Shutdown(shutdownCtx); err != nil {
		logger.Warn("session shutdown incomplete", "error", err)
	}
	if err := histSvc.Close(); err != nil {
		logger.Warn("history service close error", "error", err)
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Warn("db close error", "error", err)
		}
	}
	logger.Info("server stopped")
	return serveErr
}
