package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/MyUncle/ytLocalPlaylist/internal/ledger"
	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Add newly seen playlist songs to the ledger",
	Long: `Resolve every configured playlist and add ids the ledger has not seen
yet. Name and artist are seeded from provider metadata when available;
tag-write status starts empty so the scribe picks the song up on the next
fetch or link pass.

Existing ledger entries are never modified by this command.`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	added := 0
	for _, pl := range app.Playlists {
		found, _, err := pl.Resolve(ctx)
		if err != nil {
			return err
		}

		for _, track := range found {
			if _, known := app.Ledger.Get(track.ID); known {
				continue
			}
			app.Ledger.Upsert(track.ID, ledger.Entry{
				Name:   track.Title,
				Artist: track.Artist,
			})
			added++
			util.DebugLog("Added %s (%s) from %s", track.ID, track.Title, pl.Name)
		}
	}

	if added == 0 {
		util.InfoLog("Ledger already knows every playlist song (%d total)", app.Ledger.Len())
		return nil
	}

	if err := app.Ledger.Save(); err != nil {
		return err
	}

	util.SuccessLog("Added %d songs to the ledger (%d total)", added, app.Ledger.Len())
	return nil
}
