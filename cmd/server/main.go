// Package main is the entry point for the vcaudit valuation service.
//
// Startup order:
// 1. Load configuration (.env, environment, optional valuation parameter file)
// 2. Initialize logging
// 3. Wire dependencies (databases, repositories, services, jobs)
// 4. Start the job scheduler and the HTTP server
// 5. Wait for a shutdown signal and stop gracefully
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/vcaudit/internal/config"
	"github.com/aristath/vcaudit/internal/di"
	"github.com/aristath/vcaudit/internal/scheduler"
	"github.com/aristath/vcaudit/internal/server"
	"github.com/aristath/vcaudit/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "vcaudit",
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Bool("dev_mode", cfg.DevMode).
		Msg("Starting vcaudit")

	sched := scheduler.New(log)

	container, jobs, err := di.Wire(cfg, log, sched)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	sched.Start()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
		Jobs:      jobs,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("Shutting down server...")

	// In-flight requests get 10 seconds to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Running jobs are allowed to finish before the databases close
	sched.Stop()

	log.Info().Msg("Server stopped")
}
