/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Deal Desk server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Create API handler with dependencies
  4. Start the rollover scheduler
  5. Start server with graceful shutdown

CONFIGURATION:
  Flags take precedence; .env supplies defaults.
  -port / PORT      HTTP server port (default: 8080)
  -db / DATABASE    SQLite database path (default: dealdesk.db)
                    Use ":memory:" for an in-memory database
  -demo             Seed a demo user with sample data on startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, close the database
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Automated month-rollover
  - store/sqlite/sqlite.go: Database implementation
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
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/dealdesk/api"
	"github.com/warp/dealdesk/store/sqlite"
)

func main() {
	// .env is optional; flags override it.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	defaultPort := 8080
	if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		defaultPort = p
	}
	defaultDB := os.Getenv("DATABASE")
	if defaultDB == "" {
		defaultDB = "dealdesk.db"
	}

	port := flag.Int("port", defaultPort, "HTTP server port")
	dbPath := flag.String("db", defaultDB, "SQLite database path")
	demo := flag.Bool("demo", false, "Seed a demo user with sample data")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store)

	if *demo {
		if err := api.LoadDemoScenario(context.Background(), handler, "demo-user"); err != nil {
			log.Printf("Warning: Failed to seed demo data: %v", err)
		} else {
			log.Println("Seeded demo data for user 'demo-user'")
		}
	}

	// Background month-rollover
	scheduler := api.NewRolloverScheduler(store, handler)
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
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

	log.Println("Server stopped")
}
