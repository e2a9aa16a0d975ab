/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the consignment engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Seed the database if empty
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: consignment.db)
           Use ":memory:" for an in-memory database
  -seed    Scenario to load when the database is empty
           (default: opening-books; empty string disables seeding)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/consignment.db"

  # Run with in-memory database, empty catalog
  ./server -db=":memory:" -seed="fresh-stock"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
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
	"syscall"
	"time"

	"github.com/warp/consignment-engine/api"
	"github.com/warp/consignment-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "consignment.db", "SQLite database path")
	seed := flag.String("seed", "opening-books", "scenario to load when the database is empty")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store)

	// Seed an empty database so the catalog exists on first run
	if *seed != "" {
		if err := seedIfEmpty(store, handler, *seed); err != nil {
			log.Fatalf("Failed to seed database: %v", err)
		}
	}

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
		log.Printf("API available at http://localhost:%d/api", *port)
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

func seedIfEmpty(store *sqlite.Store, handler *api.Handler, scenario string) error {
	ctx := context.Background()

	stock, err := store.ListStock(ctx)
	if err != nil {
		return err
	}
	if len(stock) > 0 {
		return nil
	}

	log.Printf("Empty database, loading %q scenario", scenario)
	switch scenario {
	case "fresh-stock":
		return handler.LoadFreshStock(ctx)
	case "opening-books":
		return handler.LoadOpeningBooks(ctx)
	default:
		return fmt.Errorf("unknown seed scenario %q", scenario)
	}
}
