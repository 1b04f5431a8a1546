package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var approvedLimit int

var approvedCmd = &cobra.Command{
	Use:   "approved",
	Short: "List approved items awaiting character generation",
	Long:  `List approved queue items that have not been converted into characters yet, highest quality first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := store.GetApprovedForGeneration(context.Background(), approvedLimit)
		if err != nil {
			return err
		}

		if len(items) == 0 {
			fmt.Println("No approved items awaiting generation")
			return nil
		}

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		for _, item := range items {
			score := "-"
			if item.QualityScore != nil {
				score = fmt.Sprintf("%.2f", *item.QualityScore)
			}
			fmt.Printf("%s %s  score %s  rating %s  %s/%s\n",
				green("●"), item.ID, score, item.AgeRating, item.Species, item.Gender)
			fmt.Printf("  %s\n", gray(item.SourceURL))
		}
		fmt.Printf("\n%d items\n", len(items))
		return nil
	},
}

func init() {
	approvedCmd.Flags().IntVar(&approvedLimit, "limit", 20, "Maximum items to list")
	rootCmd.AddCommand(approvedCmd)
}
