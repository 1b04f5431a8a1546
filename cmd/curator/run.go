package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var (
	runSchedule string
	runLimit    int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the processing loop on a schedule",
	Long: `Run the curation pipeline continuously, triggering a processing pass
on a cron schedule. A single worker drains the queue sequentially;
stop with SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := buildProcessingQueue()
		if err != nil {
			return err
		}

		scheduler := cron.New()
		_, err = scheduler.AddFunc(runSchedule, func() {
			result, err := q.ProcessPendingItems(context.Background(), runLimit)
			if err != nil {
				slog.Error("Scheduled processing pass failed", "error", err)
				return
			}
			slog.Info("Scheduled processing pass finished",
				"processed", result.Processed,
				"approved", result.Approved,
				"rejected", result.Rejected,
				"errors", result.Errors)
		})
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w", runSchedule, err)
		}

		scheduler.Start()
		fmt.Printf("Curation loop started (schedule %q), press Ctrl+C to stop\n", runSchedule)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs

		fmt.Println("\nStopping...")
		// Let an in-flight pass finish before exiting
		<-scheduler.Stop().Done()
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runSchedule, "schedule", "*/5 * * * *", "Cron schedule for processing passes")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "Maximum items per pass (0 = configured default)")
	rootCmd.AddCommand(runCmd)
}
