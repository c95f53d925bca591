package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sagehouse/reviews-bot/internal/alerts"
	"github.com/sagehouse/reviews-bot/internal/archive"
	"github.com/sagehouse/reviews-bot/internal/config"
	"github.com/sagehouse/reviews-bot/internal/notifications"
	"github.com/sagehouse/reviews-bot/internal/scheduler"
	"github.com/sagehouse/reviews-bot/internal/store"
	syncsvc "github.com/sagehouse/reviews-bot/internal/sync"
	"github.com/sirupsen/logrus"
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

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting review sync pipeline")

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	archiver := buildArchiver(cfg)
	notifier := notifications.NewService(cfg)
	alertService := alerts.NewService(db, notifier)
	syncService := syncsvc.NewService(cfg, db, alertService, archiver)
	digestService := notifications.NewDigestService(db, notifier)

	if err := syncService.EnsurePlatforms(); err != nil {
		logrus.Fatalf("Failed to register platforms: %v", err)
	}

	schedulerService := scheduler.NewService(cfg, syncService, alertService, digestService)
	if cfg.EnableScheduler {
		if err := schedulerService.Start(); err != nil {
			logrus.Fatalf("Failed to start scheduler: %v", err)
		}
		defer schedulerService.Stop()
	} else {
		logrus.Info("Scheduler disabled by configuration")
	}

	// HTTP server for health checks, status, and manual triggers
	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/status", statusHandler(schedulerService, syncService, alertService)).Methods("GET")
	router.HandleFunc("/trigger", triggerHandler(syncService)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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

	logrus.Info("Server exited")
}

func buildArchiver(cfg *config.Config) archive.Archiver {
	if cfg.StorageAccount != "" {
		archiver, err := archive.NewAzureArchiver(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize blob archive: %v", err)
		}
		return archiver
	}
	if cfg.ArchiveDir != "" {
		archiver, err := archive.NewLocalArchiver(cfg.ArchiveDir)
		if err != nil {
			logrus.Fatalf("Failed to initialize local archive: %v", err)
		}
		return archiver
	}
	logrus.Info("No archive target configured, raw payloads will not be kept")
	return archive.Noop{}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func statusHandler(schedulerService *scheduler.Service, syncService *syncsvc.Service, alertService *alerts.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alertCounts, err := alertService.Counts()
		if err != nil {
			logrus.Errorf("Failed to count alerts: %v", err)
		}

		status := map[string]interface{}{
			"scheduler": schedulerService.Status(),
			"adapters":  syncService.Registry().Names(),
			"last_sync": syncService.LastRun(),
			"alerts":    alertCounts,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			logrus.Errorf("Failed to write status response: %v", err)
		}
	}
}

func triggerHandler(syncService *syncsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			if _, err := syncService.SyncAll(ctx); err != nil {
				logrus.Errorf("Manual sync trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"message":"Sync triggered"}`))
	}
}
