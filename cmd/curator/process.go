package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var processLimit int

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Analyze and classify pending queue items",
	Long: `Run one processing pass over pending queue items: analyze each image
with the vision backend, validate its age rating, score its quality,
check for duplicates, and move it to APPROVED or REJECTED.

Requires the provider API key (ANTHROPIC_API_KEY or OPENAI_API_KEY).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := buildProcessingQueue()
		if err != nil {
			return err
		}

		result, err := q.ProcessPendingItems(context.Background(), processLimit)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("Processed %d items: %s approved, %s rejected",
			result.Processed,
			green(result.Approved),
			red(result.Rejected))
		if result.Errors > 0 {
			fmt.Printf(", %s errors", yellow(result.Errors))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	processCmd.Flags().IntVar(&processLimit, "limit", 0, "Maximum items to process (0 = configured default)")
	rootCmd.AddCommand(processCmd)
}
