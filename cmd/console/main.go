package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deepfake-detector/detector-console/internal/analysis"
	"github.com/deepfake-detector/detector-console/internal/config"
	"github.com/deepfake-detector/detector-console/internal/detector"
	"github.com/deepfake-detector/detector-console/internal/notifications"
	"github.com/deepfake-detector/detector-console/internal/scheduler"
	"github.com/deepfake-detector/detector-console/internal/storage"
	"github.com/deepfake-detector/detector-console/internal/web"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Deepfake Detector Console")

	// Initialize the report archive
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	storageClient, err := storage.FromConfig(ctx, cfg)
	cancel()
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	if storageClient == nil {
		logrus.Info("Report archive disabled")
	}

	// Initialize notification services
	var notificationService notifications.NotificationInterface
	if cfg.NotificationsEnabled() {
		notificationService = notifications.NewService(cfg)
	}

	analysisClient := analysis.NewClient(cfg.AnalysisAPIURL, cfg.AnalysisTimeout)
	logrus.Infof("Using Analysis Service at %s", analysisClient.BaseURL())

	// Initialize detector service
	detectorService := detector.NewService(cfg, analysisClient, storageClient, notificationService)

	// Initialize scheduler
	schedulerService := scheduler.NewService(cfg, detectorService)

	// Start scheduler
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     web.NewServer(detectorService).Handler(),
		ReadTimeout: 60 * time.Second,
		// analyses block until the Analysis Service answers
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
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

	// Create a deadline for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
