package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gilbertyin/Jurni/internal/config"
	"github.com/gilbertyin/Jurni/internal/downloader"
	"github.com/gilbertyin/Jurni/internal/extractor"
	"github.com/gilbertyin/Jurni/internal/geocoder"
	"github.com/gilbertyin/Jurni/internal/queue"
	"github.com/gilbertyin/Jurni/internal/ratelimit"
	"github.com/gilbertyin/Jurni/internal/retry"
	"github.com/gilbertyin/Jurni/internal/service"
	"github.com/gilbertyin/Jurni/internal/store"
	"github.com/gilbertyin/Jurni/internal/worker"
	"github.com/gilbertyin/Jurni/pkg/gemini"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("jurni-worker %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting jurni-worker",
		"version", Version,
		"build_time", BuildTime,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("invalid worker config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Tools.TempDir, 0755); err != nil {
		logger.Error("failed to create temp directory", "error", err)
		os.Exit(1)
	}

	videoStore, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer videoStore.Close()

	// Records orphaned in processing by a previous crash have no worker
	// coming back for them.
	if n, err := videoStore.ResetStale(context.Background(), time.Now().Add(-time.Hour)); err != nil {
		logger.Error("failed to reset stale records", "error", err)
	} else if n > 0 {
		logger.Warn("stale processing records marked failed", "count", n)
	}

	jobQueue, err := queue.NewRedis(cfg.Redis, cfg.Retry.InitialDelay, logger)
	if err != nil {
		logger.Error("failed to connect to queue", "error", err)
		os.Exit(1)
	}
	defer jobQueue.Close()

	limiter := ratelimit.New(map[string]ratelimit.Config{
		service.DepDownload: {MaxCalls: cfg.RateLimits.Download.MaxCalls, Window: cfg.RateLimits.Download.Window},
		service.DepAnalysis: {MaxCalls: cfg.RateLimits.Analysis.MaxCalls, Window: cfg.RateLimits.Analysis.Window},
		service.DepGeocode:  {MaxCalls: cfg.RateLimits.Geocode.MaxCalls, Window: cfg.RateLimits.Geocode.Window},
	})

	pipeline := service.NewPipeline(
		videoStore,
		extractor.NewYtDlp(cfg.Tools),
		downloader.NewYtDlp(cfg.Tools, logger),
		gemini.NewClient(cfg.Gemini),
		geocoder.NewGoogle(cfg.Geocoder),
		limiter,
		retry.FromConfig(cfg.Retry),
		cfg.Tools.TempDir,
		logger,
	)

	pool := worker.NewPool(
		worker.Config{Workers: cfg.Worker.Count},
		jobQueue,
		pipeline,
		logger,
	)
	pool.Start()

	// Move due delayed retries back onto the main list.
	promoteCtx, cancelPromote := context.WithCancel(context.Background())
	go promoteLoop(promoteCtx, jobQueue, cfg.Worker.PromoteInterval, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	cancelPromote()

	if err := pool.Stop(25 * time.Second); err != nil {
		logger.Error("worker pool shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

func promoteLoop(ctx context.Context, q *queue.RedisQueue, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := q.PromoteDue(ctx); err != nil && ctx.Err() == nil {
				logger.Error("failed to promote delayed jobs", "error", err)
			}
		}
	}
}
