/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the roster engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, ROSTER_* variables, then flags)
  2. Initialize SQLite store
  3. Build validator, validation cache and Prometheus registry
  4. Load the term mapping and preload the current month
  5. Start the background cache refresher
  6. Configure HTTP router and start the server

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides ROSTER_PORT)
  -db      SQLite database path (overrides ROSTER_DB_PATH)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the refresher
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/roster.db"

  # Run with in-memory database, then load a demo scenario
  ./server -db=":memory:"
  curl -X POST localhost:8080/api/scenarios/s7-holiday-crew

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/warp/roster-engine/api"
	"github.com/warp/roster-engine/cache"
	"github.com/warp/roster-engine/config"
	"github.com/warp/roster-engine/roster"
	"github.com/warp/roster-engine/store/sqlite"
	"github.com/warp/roster-engine/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.DBPath = *dbPath

	log := cfg.NewLogger()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	v := validator.New(store, validator.Config{
		Logger:      log,
		BufferDays:  cfg.BufferDays,
		CycleOrigin: cfg.CycleOrigin,
		CycleLength: cfg.CycleLength,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	grid := cache.Init(v, store, cache.Options{Logger: log, Metrics: cache.NewMetrics(reg)})

	ctx := context.Background()
	if err := roster.Terms().Ensure(ctx, store); err != nil {
		log.WithError(err).Warn("Failed to load term mapping, using defaults")
	}
	if cfg.Preload {
		now := time.Now()
		if err := grid.PreloadMonth(ctx, now.Year(), now.Month(), nil); err != nil {
			log.WithError(err).Warn("Failed to preload current month")
		}
	}

	refresher := cache.NewRefresher(grid, cfg.RefreshInterval)
	refresher.Start()

	handler := api.NewHandler(store, v, grid, log)
	router := api.NewRouter(handler, reg)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "db": cfg.DBPath}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	refresher.Stop()

	log.Info("Server stopped")
}
