/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Omega commerce engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env / environment configuration
  2. Parse command-line flags (flags win)
  3. Initialize the store (SQLite or in-memory)
  4. Wire domain services and simulated collaborators
  5. Start background scheduler and HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: env PORT or 8080)
  -db      SQLite database path; empty selects the in-memory store
  -demo    Seed demo data on startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/omega.db"

  # Run fully in memory with demo data
  ./server -demo

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omega/commerce-engine/activation"
	"github.com/omega/commerce-engine/api"
	"github.com/omega/commerce-engine/commission"
	"github.com/omega/commerce-engine/config"
	"github.com/omega/commerce-engine/ledger"
	"github.com/omega/commerce-engine/orders"
	"github.com/omega/commerce-engine/payout"
	"github.com/omega/commerce-engine/rewards"
	"github.com/omega/commerce-engine/store"
	"github.com/omega/commerce-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags override environment.
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path (empty = in-memory store)")
	demo := flag.Bool("demo", cfg.Demo, "seed demo data on startup")
	flag.Parse()

	// Initialize store
	var (
		st     ledger.Store
		closer func() error
	)
	if *dbPath != "" {
		sq, err := sqlite.New(*dbPath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		st = sq
		closer = sq.Close
	} else {
		st = store.NewMemory()
		closer = func() error { return nil }
	}
	defer closer()

	// Domain services
	notifier := api.LogNotifier{}
	engine := commission.NewEngine(commission.DefaultConfig())
	recorder := commission.NewRecorder(engine, st, st, st, cfg.Environment)
	recorder.SetNotifier(notifier)
	gateway := api.SimGateway{}
	quoter := api.NewSimQuoter()
	manager := orders.NewManager(st, st, st, recorder, gateway, quoter, cfg.Environment)
	payouts := payout.NewProcessor(st, st, st, cfg.Environment)
	payouts.SetNotifier(notifier)
	rewardsSvc := rewards.NewService(rewards.DefaultConfig(), st, st, st, cfg.Environment)
	activationSvc := activation.NewService(st, st, notifier, cfg.Environment)

	if *demo {
		if err := api.SeedDemo(context.Background(), st); err != nil {
			log.Fatalf("Failed to seed demo data: %v", err)
		}
	}

	handler := &api.Handler{
		Store:       st,
		Activation:  activationSvc,
		Recorder:    recorder,
		Orders:      manager,
		Payouts:     payouts,
		Rewards:     rewardsSvc,
		Catalog:     rewards.DefaultCatalog(),
		Quoter:      quoter,
		Advisor:     api.CannedAdvisor{},
		Uploads:     api.SimUploader{},
		Environment: cfg.Environment,
	}

	// Background jobs
	scheduler := api.NewScheduler(st, rewardsSvc)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Create router and server
	router := api.NewRouter(handler)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on http://localhost:%s", *port)
		log.Printf("📊 API available at http://localhost:%s/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	scheduler.Stop()

	log.Println("Server stopped")
}
