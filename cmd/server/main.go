/*
main.go - HTTP server entry point

PURPOSE:
  Starts the VR engine API. Loads configuration, wires the pipeline
  (union catalog, policy, Gemini adjudicator) and serves uploads until
  interrupted.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load config file and environment (.env honored)
  3. Build the pipeline (opens the SQLite catalog when configured)
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (optional)
  -port    HTTP server port, overrides server.listen_addr
  -db      SQLite union catalog, overrides unions.database
           Use ":memory:" for an in-memory catalog
  -month   Default competence month for uploads without one
  -year    Default competence year for uploads without one

ENVIRONMENT:
  API_KEY  Adjudication service credential. The server starts without it
           and every run is rejected with a clear message.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active runs to complete (60s timeout)
  3. Close the catalog
  4. Exit

EXAMPLES:
  ./server -config=vr.yaml
  ./server -db="./data/vr.db" -month=5 -year=2025
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration file format
  - pipeline/setup.go: Dependency wiring
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/vr-engine/api"
	"github.com/warp/vr-engine/config"
	"github.com/warp/vr-engine/generic"
	"github.com/warp/vr-engine/pipeline"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides server.listen_addr)")
	dbPath := flag.String("db", "", "SQLite union catalog path (overrides unions.database)")
	month := flag.Int("month", 0, "Default competence month (1-12)")
	year := flag.Int("year", 0, "Default competence year")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.ListenAddr = fmt.Sprintf(":%d", *port)
	}
	if *dbPath != "" {
		cfg.Unions.Database = *dbPath
		cfg.Unions.CatalogFile = ""
	}
	if *month != 0 {
		cfg.Process.Month = *month
	}
	if *year != 0 {
		cfg.Process.Year = *year
	}

	ctx := context.Background()
	p, err := pipeline.FromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize pipeline: %v", err)
	}
	defer p.Close()

	// Without a configured month every upload must name its own.
	period, err := cfg.Period()
	if err != nil {
		if !errors.Is(err, generic.ErrInvalidPeriod) {
			log.Fatalf("Invalid process period: %v", err)
		}
		period = generic.Period{}
		log.Printf("[Server] no default process period; uploads must send month and year")
	}

	handler := api.NewHandler(p, period)
	router := api.NewRouter(handler)

	// Runs call the adjudicator once per employee, so writes get a long timeout.
	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("[Server] listening on %s (policy %s)", cfg.Server.ListenAddr, p.Policy.ID)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Server] shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] forced to shutdown: %v", err)
	}

	log.Println("[Server] stopped")
}
