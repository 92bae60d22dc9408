package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/azure/reddit-mentions-listener/internal/config"
	"github.com/azure/reddit-mentions-listener/internal/monitoring"
	"github.com/azure/reddit-mentions-listener/internal/notifications"
	"github.com/azure/reddit-mentions-listener/internal/scheduler"
	"github.com/azure/reddit-mentions-listener/internal/storage"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.WithFields(logrus.Fields{
		"source":  cfg.Source,
		"scorer":  cfg.Scorer,
		"storage": cfg.StorageBackend,
		"watches": len(cfg.Watches),
	}).Info("Starting Reddit Mentions Listener")

	if cfg.Source == "reddit" && !cfg.RedditConfigured() {
		logrus.Warn("REDDIT_CLIENT_ID / REDDIT_CLIENT_SECRET not set, queries will fail with an auth error")
	}

	storageClient, err := storage.New(storage.Options{
		Backend:        cfg.StorageBackend,
		AzureAccount:   cfg.StorageAccount,
		AzureContainer: cfg.StorageContainer,
		LocalDir:       cfg.LocalStorageDir,
		SQLitePath:     cfg.SQLitePath,
	})
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}

	notificationService := notifications.NewService(cfg)

	monitoringService, err := monitoring.NewService(cfg, storageClient, notificationService)
	if err != nil {
		logrus.Fatalf("Failed to initialize monitoring: %v", err)
	}

	schedulerService := scheduler.NewService(cfg, monitoringService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}

	// Cancelled on shutdown so manual runs stop with the server
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      newRouter(appCtx, monitoringService),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}
	cancelApp()
	schedulerService.Stop()

	if closer, ok := storageClient.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logrus.Errorf("Failed to close storage: %v", err)
		}
	}

	logrus.Info("Server exited")
}
