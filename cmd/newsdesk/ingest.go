package main

import (
	"fmt"

	"github.com/brainwash-news/newsdesk/internal/ingest"
	"github.com/brainwash-news/newsdesk/internal/server"
	"github.com/brainwash-news/newsdesk/internal/service"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Publish a batch of generated articles",
	Long: `Load a YAML or TOML batch file and publish its articles immediately,
bypassing the inbox and the job queue.

Examples:
  newsdesk ingest ./batch.yaml
  newsdesk ingest ./batch.toml`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	batch, err := ingest.LoadFile(args[0])
	if err != nil {
		return err
	}

	rt, err := server.Setup(cmd.Context())
	if err != nil {
		return err
	}

	articles := service.NewArticleService(rt.DB, service.NewGroupService(rt.DB), rt.Media)
	published, err := ingest.Publish(cmd.Context(), articles, batch)
	for _, a := range published {
		fmt.Printf("Published #%d %s\n", a.ID, a.Title)
	}
	if err != nil {
		return fmt.Errorf("%d of %d items failed: %w", len(batch.Items)-len(published), len(batch.Items), err)
	}
	return nil
}
