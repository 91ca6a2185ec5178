package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status [playlist]",
	Short: "Classify playlist entries against the content store",
	Long: `Classify every entry of the configured playlists against the local
content store and print the five counts per playlist:

  Total                everything the remote provider knows about
  Present              found upstream and stored locally
  Missing              found upstream but not stored yet
  Lost - Recoverable   gone upstream, but a local copy exists
  Lost - Unrecoverable gone upstream and never captured

With a playlist name, only that playlist is classified.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	playlists := app.Playlists
	if len(args) == 1 {
		pl, err := app.PlaylistByName(args[0])
		if err != nil {
			return err
		}
		playlists = playlists[:0]
		playlists = append(playlists, pl)
	}

	for _, pl := range playlists {
		counts, err := app.Reconciler.Classify(ctx, pl)
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", pl.Name)
		fmt.Printf("  Total:                %d\n", counts.Total)
		fmt.Printf("  Present:              %d\n", counts.Present)
		fmt.Printf("  Missing:              %d\n", counts.Missing)
		fmt.Printf("  Lost - Recoverable:   %d\n", counts.LostRecoverable)
		fmt.Printf("  Lost - Unrecoverable: %d\n", counts.LostUnrecoverable)
	}

	files, bytes := storeUsage(app.Ledger.StoreRoot())
	util.InfoLog("Content store: %d files, %s (%d songs in ledger)",
		files, humanize.Bytes(uint64(bytes)), app.Ledger.Len())

	return nil
}

// storeUsage sums the content store's files and bytes
func storeUsage(storeRoot string) (int, int64) {
	var files int
	var bytes int64

	entries, err := os.ReadDir(storeRoot)
	if err != nil {
		return 0, 0
	}

	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) == ".part" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		files++
		bytes += info.Size()
	}

	return files, bytes
}
