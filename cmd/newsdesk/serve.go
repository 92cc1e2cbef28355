package main

import (
	"fmt"
	"os"

	"github.com/brainwash-news/newsdesk/internal/server"
	"github.com/spf13/cobra"
)

var (
	servePort int
	serveMode string
)

// @title newsdesk API
// @version 1.0
// @description News publishing service with self-service editor permissions
// @host localhost:8000
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the newsdesk server",
	Long: `Start newsdesk with the API server and/or the ingest worker.

Examples:
  newsdesk serve                    # Run both API server and worker
  newsdesk serve --mode server      # Run API server only
  newsdesk serve --mode worker      # Run worker and inbox scanner only
  newsdesk serve --port 8080        # Override port

Environment variables:
  NEWSDESK_SERVER_PORT         Server port (default: 8000)
  NEWSDESK_DATABASE_DRIVER     Database driver: sqlite, postgres
  NEWSDESK_DATABASE_DSN        Database connection string
  NEWSDESK_QUEUE_TYPE          Queue type: memory, valkey
  NEWSDESK_AUTH_JWT_SECRET     JWT signing secret
  NEWSDESK_MEDIA_DRIVER        Image storage: local, s3
  NEWSDESK_INGEST_SCHEDULE     Cron spec for inbox scans
  ADMIN_USERNAME               Bootstrap admin username
  ADMIN_PASSWORD               Bootstrap admin password`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
	serveCmd.Flags().StringVarP(&serveMode, "mode", "m", "both", "Run mode: server, worker, or both")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := server.Config{
		Port:    servePort,
		Mode:    serveMode,
		Version: Version,
	}

	if err := server.RunWithSignalHandling(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
