package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkravets/minuta/internal/rag"
)

var summaryTimeout time.Duration

// summaryCmd extracts a structured summary from an ingested meeting
var summaryCmd = &cobra.Command{
	Use:   "summary <meeting-id>",
	Short: "Extract decisions, action items and risks from a meeting",
	Long: `Extract a structured summary (decisions, action items with owners, risks and
open questions) from an ingested meeting.

Every item cites the transcript lines it came from; items the model cannot
back with retrieved evidence are dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meetingID := args[0]

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		pipeline, err := rag.NewPipeline(cfg)
		if err != nil {
			return fmt.Errorf("initialize pipeline: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), summaryTimeout)
		defer cancel()

		summary, err := pipeline.Summarize(ctx, meetingID)
		if err != nil {
			return fmt.Errorf("summarize failed: %w", err)
		}

		if summary.Empty() {
			fmt.Println("No evidence-backed items found for this meeting.")
			return nil
		}

		if len(summary.Decisions) > 0 {
			fmt.Println("Decisions:")
			for _, d := range summary.Decisions {
				fmt.Printf("  - %s [%s]\n", d.Decision, d.Evidence)
			}
		}
		if len(summary.ActionItems) > 0 {
			fmt.Println("Action items:")
			for _, a := range summary.ActionItems {
				due := ""
				if a.DueDate != nil && *a.DueDate != "" {
					due = fmt.Sprintf(", due %s", *a.DueDate)
				}
				fmt.Printf("  - %s: %s%s [%s]\n", a.Owner, a.Task, due, a.Evidence)
			}
		}
		if len(summary.Risks) > 0 {
			fmt.Println("Risks / open questions:")
			for _, r := range summary.Risks {
				fmt.Printf("  - %s [%s]\n", r.Item, r.Evidence)
			}
		}
		return nil
	},
}

func init() {
	summaryCmd.Flags().DurationVar(&summaryTimeout, "timeout", 60*time.Second, "overall summary timeout")
	rootCmd.AddCommand(summaryCmd)
}
