package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gilbertyin/Jurni/internal/api"
	"github.com/gilbertyin/Jurni/internal/api/handler"
	"github.com/gilbertyin/Jurni/internal/config"
	"github.com/gilbertyin/Jurni/internal/queue"
	"github.com/gilbertyin/Jurni/internal/service"
	"github.com/gilbertyin/Jurni/internal/store"
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
		fmt.Printf("jurni-server %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting jurni-server",
		"version", Version,
		"build_time", BuildTime,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	videoStore, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer videoStore.Close()

	jobQueue, err := queue.NewRedis(cfg.Redis, cfg.Retry.InitialDelay, logger)
	if err != nil {
		logger.Error("failed to connect to queue", "error", err)
		os.Exit(1)
	}
	defer jobQueue.Close()

	submitSvc := service.NewSubmit(videoStore, jobQueue, logger)

	videoHandler := handler.NewVideoHandler(submitSvc, logger)
	healthHandler := handler.NewHealthHandler(videoStore)

	router := api.NewRouter(videoHandler, healthHandler, cfg.Server.APIKey, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
