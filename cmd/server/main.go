package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nekogravitycat/driving-school-backend/internal/app"
	"github.com/nekogravitycat/driving-school-backend/internal/config"
	"github.com/nekogravitycat/driving-school-backend/internal/db"
	"github.com/nekogravitycat/driving-school-backend/internal/pkg/logging"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logging.Setup(cfg.LogLevel, cfg.IsProduction); err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()

	container, err := app.NewContainer(app.Config{
		IsProduction:            cfg.IsProduction,
		ProdOrigins:             cfg.ProdOrigins,
		DBPool:                  pool,
		JWTSecret:               cfg.JWTSecret,
		JWTTTL:                  cfg.JWTAccessTokenTTL,
		BcryptCost:              cfg.BcryptCost,
		DefaultTimezone:         cfg.DefaultTimezone,
		CancelReasonMinLength:   cfg.CancelReasonMinLength,
		StudentConflictSeverity: cfg.StudentConflictSeverity,
		WindowConflictSeverity:  cfg.WindowConflictSeverity,
		CompletionCron:          cfg.CompletionCron,
		MQTTBrokerURL:           cfg.MQTTBrokerURL,
		MQTTClientID:            cfg.MQTTClientID,
		MQTTTopicPrefix:         cfg.MQTTTopicPrefix,
	})
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}
	defer container.Publisher.Close()

	container.Scheduler.Start()

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	log.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server forced to shutdown")
	}

	// Let a running completion sweep finish.
	select {
	case <-container.Scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("completion job still running at shutdown")
	}

	log.Info("server exited gracefully")
}
