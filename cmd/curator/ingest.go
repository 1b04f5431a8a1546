package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/musekit/curator/internal/feed"
	"github.com/musekit/curator/internal/types"
)

var (
	ingestLimit  int
	ingestCursor string
	ingestNSFW   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch candidate images from the feed into the queue",
	Long: `Fetch candidate images from the configured feed and add them to the
curation queue. Images rated below the intake threshold are filtered,
and already-known source URLs are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		client, err := buildFeedClient()
		if err != nil {
			return err
		}
		q, err := buildIntakeQueue()
		if err != nil {
			return err
		}

		cursor := ingestCursor
		fetched := 0
		var added []*types.QueueItem

		for fetched < ingestLimit {
			pageSize := ingestLimit - fetched
			if pageSize > 100 {
				pageSize = 100
			}

			images, next, err := client.FetchImages(ctx, feed.FetchOptions{
				Limit:  pageSize,
				Cursor: cursor,
				NSFW:   ingestNSFW,
			})
			if err != nil {
				return fmt.Errorf("fetching feed page: %w", err)
			}
			if len(images) == 0 {
				break
			}
			fetched += len(images)

			items, err := q.AddBatch(ctx, images)
			if err != nil {
				return err
			}
			added = append(added, items...)

			if next == "" {
				break
			}
			cursor = next
		}

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("%s %d fetched, %d added to queue, %d filtered or known\n",
			green("✓"), fetched, len(added), fetched-len(added))
		if cursor != "" && fetched >= ingestLimit {
			fmt.Printf("  %s next cursor: %s\n", gray("→"), cursor)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestLimit, "limit", 100, "Maximum images to fetch")
	ingestCmd.Flags().StringVar(&ingestCursor, "cursor", "", "Resume from a pagination cursor")
	ingestCmd.Flags().BoolVar(&ingestNSFW, "nsfw", false, "Include NSFW-flagged feed items")
	rootCmd.AddCommand(ingestCmd)
}
