package main

import (
	"os"

	"github.com/spf13/cobra"

	_ "github.com/brainwash-news/newsdesk/docs" // Load swagger docs
)

// Version is set via ldflags at build time
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "newsdesk",
	Short: "newsdesk - news publishing service",
	Long:  `newsdesk serves articles, manages editor permissions and ingests generated articles.`,
	Example: `  # Run the API server and the ingest worker
  newsdesk serve

  # Create an administrator account
  newsdesk createadmin --username alice

  # Publish one batch of generated articles right away
  newsdesk ingest ./inbox/morning.yaml`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "server", Title: "Server Commands:"},
		&cobra.Group{ID: "admin", Title: "Admin Commands:"},
	)

	serveCmd.GroupID = "server"
	createAdminCmd.GroupID = "admin"
	ingestCmd.GroupID = "admin"

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
