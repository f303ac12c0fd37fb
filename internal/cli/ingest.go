package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkravets/minuta/internal/rag"
)

var ingestTimeout time.Duration

// ingestCmd parses, chunks, embeds and indexes one transcript file
var ingestCmd = &cobra.Command{
	Use:   "ingest <transcript-file>",
	Short: "Ingest a meeting transcript",
	Long: `Parse a timestamped transcript ([HH:MM:SS] Speaker: text per line), chunk it,
embed the chunks, and index them for retrieval.

Meetings are identified by content hash: ingesting the same bytes twice
returns the existing meeting id without re-indexing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		contents, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read transcript: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		pipeline, err := rag.NewPipeline(cfg)
		if err != nil {
			return fmt.Errorf("initialize pipeline: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		defer cancel()

		meeting, created, err := pipeline.Ingest(ctx, filepath.Base(path), contents)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}

		if created {
			fmt.Printf("Ingested %s: %d turns, %d chunks\n", meeting.File, meeting.TurnCount, meeting.ChunkCount)
		} else {
			fmt.Println("Already ingested, reusing existing meeting")
		}
		fmt.Printf("meeting_id: %s\n", meeting.ID)
		return nil
	},
}

func init() {
	ingestCmd.Flags().DurationVar(&ingestTimeout, "timeout", 5*time.Minute, "overall ingestion timeout")
	rootCmd.AddCommand(ingestCmd)
}
