package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/MyUncle/ytLocalPlaylist/internal/library"
)

var linkCmd = &cobra.Command{
	Use:   "link [playlist]",
	Short: "Materialize playlist directories as hard links into the content store",
	Long: `Hard-link every stored song a playlist resolves to into the playlist
directory. Songs whose tags are incomplete are tagged first. Existing links
are recreated when the store file is newer than the playlist's last sync,
so re-tagged songs show up without duplicating storage.

With no argument, every configured playlist is linked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLink,
}

func init() {
	rootCmd.AddCommand(linkCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
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

	linker := library.New(app.Ledger, app.Scribe)
	for _, pl := range playlists {
		if err := linker.Sync(ctx, pl); err != nil {
			return err
		}
	}

	return nil
}
