package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent fetch outcomes",
	Long: `List the most recent download outcomes recorded in the fetch history
database, newest first, with per-invocation totals.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "number of records to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if app.History == nil {
		return fmt.Errorf("%w: fetch history database is not configured", util.ErrInvalidConfig)
	}

	limit, _ := cmd.Flags().GetInt("limit")

	fetches, err := app.History.RecentFetches(limit)
	if err != nil {
		return err
	}

	if len(fetches) == 0 {
		util.InfoLog("No fetches recorded yet")
		return nil
	}

	for _, f := range fetches {
		outcome := humanize.Bytes(uint64(f.BytesWritten))
		if f.Error != "" {
			outcome = "FAILED: " + f.Error
		}
		fmt.Printf("%-20s %-15s %-14s %s\n",
			humanize.Time(f.CompletedAt), f.Playlist, f.SongID, outcome)
	}

	succeeded, _ := app.History.CountSucceeded()
	totalBytes, _ := app.History.TotalBytesWritten()
	util.InfoLog("All time: %d songs fetched, %s written",
		succeeded, humanize.Bytes(uint64(totalBytes)))

	return nil
}
