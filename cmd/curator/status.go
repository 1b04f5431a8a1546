package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue statistics",
	Long:  `Display per-status queue counts. Use --format json or yaml for machine-readable output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := store.GetStatistics(context.Background())
		if err != nil {
			return err
		}

		switch statusFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		case "yaml":
			return yaml.NewEncoder(os.Stdout).Encode(stats)
		case "":
		default:
			return fmt.Errorf("unknown format %q (want json or yaml)", statusFormat)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Curation Queue ==="))
		fmt.Printf("  Pending:    %d\n", stats.Pending)
		fmt.Printf("  Processing: %s\n", yellow(stats.Processing))
		fmt.Printf("  Approved:   %s\n", green(stats.Approved))
		fmt.Printf("  Rejected:   %s\n", red(stats.Rejected))
		fmt.Printf("  Failed:     %s\n", red(stats.Failed))
		fmt.Printf("  Completed:  %s\n", gray(stats.Completed))
		fmt.Printf("  %s\n\n", gray(fmt.Sprintf("Total: %d", stats.Total)))
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "", "Output format: json or yaml")
	rootCmd.AddCommand(statusCmd)
}
