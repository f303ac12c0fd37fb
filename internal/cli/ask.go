package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkravets/minuta/internal/rag"
)

var (
	askTopK    int
	askSpeaker string
	askTime    string
	askTimeout time.Duration
)

// askCmd answers one question against an ingested meeting
var askCmd = &cobra.Command{
	Use:   "ask <meeting-id> <question>",
	Short: "Ask a question about an ingested meeting",
	Long: `Answer a natural-language question about a meeting transcript.

The answer cites transcript lines; if no citation can be grounded in the
retrieved evidence the question is refused instead of answered. Follow-up
questions ("why?", "what about the budget?") resolve against the previous
exchange for the same meeting.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		meetingID := args[0]
		question := strings.Join(args[1:], " ")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		pipeline, err := rag.NewPipeline(cfg)
		if err != nil {
			return fmt.Errorf("initialize pipeline: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
		defer cancel()

		result, err := pipeline.Ask(ctx, meetingID, question, rag.AskOptions{
			TopK:          askTopK,
			SpeakerFilter: askSpeaker,
			TimeFilter:    askTime,
		})
		if err != nil {
			return fmt.Errorf("ask failed: %w", err)
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "Retrieval queries: %q\n", result.Queries)
			if result.FollowUp {
				fmt.Fprintf(os.Stderr, "Follow-up detected, retrieved with: %q\n", result.UsedForRetrieval)
			}
			fmt.Fprintf(os.Stderr, "Retrieved %d chunks\n\n", len(result.Retrieved))
		}

		fmt.Println(result.Answer)
		if len(result.Citations) > 0 {
			fmt.Println("\nCitations:")
			for _, c := range result.Citations {
				fmt.Printf("  %s:%d-%d\n", c.File, c.LineStart, c.LineEnd)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "retrieval depth (default from config)")
	askCmd.Flags().StringVar(&askSpeaker, "speaker", "", "restrict to one speaker")
	askCmd.Flags().StringVar(&askTime, "time", "", "restrict to chunks containing this HH:MM:SS offset")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 60*time.Second, "overall ask timeout")
	rootCmd.AddCommand(askCmd)
}
