package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vidfetch/vidfetch/internal/api"
	"github.com/vidfetch/vidfetch/internal/api/handler"
	"github.com/vidfetch/vidfetch/internal/classify"
	"github.com/vidfetch/vidfetch/internal/config"
	"github.com/vidfetch/vidfetch/internal/engine"
	"github.com/vidfetch/vidfetch/internal/repository"
	"github.com/vidfetch/vidfetch/internal/service"
	"github.com/vidfetch/vidfetch/pkg/ffmpeg"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("vidfetch %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting vidfetch",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Ensure storage directories exist
	if err := os.MkdirAll(cfg.Storage.BasePath, 0755); err != nil {
		logger.Error("failed to create storage directory", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Storage.TempPath, 0755); err != nil {
		logger.Error("failed to create temp directory", "error", err)
		os.Exit(1)
	}

	// Initialize dependencies
	history, err := repository.NewHistoryRepository(cfg.Storage.HistoryDBPath())
	if err != nil {
		logger.Error("failed to open history database", "error", err)
		os.Exit(1)
	}
	defer history.Close()

	classifier := classify.Default()
	if cfg.Classifier.RulesPath != "" {
		rules, err := classify.LoadRules(cfg.Classifier.RulesPath)
		if err != nil {
			logger.Error("failed to load classification rules", "error", err)
			os.Exit(1)
		}
		classifier = classify.New(rules)
		logger.Info("loaded classification rules", "path", cfg.Classifier.RulesPath, "rules", len(rules))
	}

	eng := engine.NewYtDlp(cfg.Engine, logger)
	if !eng.Available() {
		logger.Warn("yt-dlp not found, downloads will fail", "path", cfg.Engine.YtDlpPath)
	}
	if version, err := eng.Version(context.Background()); err == nil {
		logger.Info("engine resolved", "yt_dlp_version", version)
	}

	if version, err := ffmpeg.Version(toolPath(cfg.Engine.FfmpegPath, "ffmpeg")); err == nil {
		logger.Info("transcoder resolved", "ffmpeg_version", version)
	}

	prober := ffmpeg.NewProber(toolPath(cfg.Engine.FfmpegPath, "ffprobe"))

	// Initialize services
	downloadSvc := service.NewDownloadService(
		eng,
		classifier,
		history,
		prober,
		cfg.Storage,
		cfg.Engine.DownloadTimeout,
		logger,
	)

	// Initialize handlers
	downloadHandler := handler.NewDownloadHandler(downloadSvc, history, logger)
	healthHandler := handler.NewHealthHandler(eng, history)
	uiHandler := handler.NewUIHandler()

	// Setup router
	router := api.NewRouter(downloadHandler, healthHandler, uiHandler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown, long enough for an in-flight download to finish
	// writing its response.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// toolPath derives the location of an ffmpeg-suite binary from the configured
// ffmpeg path. The suite binaries ship together, so a configured binary path
// implies siblings and a configured directory contains them all.
func toolPath(ffmpegPath, tool string) string {
	if ffmpegPath == "" {
		return ""
	}
	if info, err := os.Stat(ffmpegPath); err == nil && info.IsDir() {
		return filepath.Join(ffmpegPath, tool)
	}
	return filepath.Join(filepath.Dir(ffmpegPath), tool)
}
