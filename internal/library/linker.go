// Package library materializes playlist directories as hard links into the
// content store. Links share bytes with the store file, so the same song in
// two playlists costs its storage once, and removing a playlist link never
// touches the store original.
package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MyUncle/ytLocalPlaylist/internal/ledger"
	"github.com/MyUncle/ytLocalPlaylist/internal/playlist"
	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

// Tagger applies tags to a stored song and returns the updated entry
type Tagger interface {
	WriteTags(storeRoot, song string, e ledger.Entry) (ledger.Entry, error)
}

// Linker syncs playlist directories against one ledger
type Linker struct {
	led    *ledger.Ledger
	tagger Tagger
}

// New creates a Linker
func New(led *ledger.Ledger, tagger Tagger) *Linker {
	return &Linker{led: led, tagger: tagger}
}

// Sync hard-links every stored song the playlist resolves to into the
// playlist directory, finishing any outstanding tag writes first. Links
// are recreated when the store file is newer than the playlist's recorded
// baseline, so re-tagged songs are picked up without copying bytes. On
// success the playlist entry list and the ledger are persisted together.
func (ln *Linker) Sync(ctx context.Context, pl *playlist.Playlist) error {
	found, _, err := pl.Resolve(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(pl.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create playlist directory: %w", err)
	}

	// Baseline for relink decisions: the last time this playlist's state
	// was written. Store files modified since then get fresh links.
	var baseline time.Time
	if info, err := os.Stat(pl.StateFile()); err == nil {
		baseline = info.ModTime()
	}

	present := ln.led.PresentIDs()
	linked := 0
	relinked := 0
	entries := make([]string, 0, len(found))

	for _, track := range found {
		if _, ok := present[track.ID]; !ok {
			continue
		}

		srcPath, ok := ln.led.FilePath(track.ID)
		if !ok {
			// The scan said present but the file is gone: ledger and
			// filesystem have drifted. Surfaced, not skipped.
			return fmt.Errorf("%w: %s vanished from content store", util.ErrInternalConsistency, track.ID)
		}
		song := filepath.Base(srcPath)

		entry, _ := ln.led.Get(track.ID)
		if !entry.Status.Complete() {
			updated, err := ln.tagger.WriteTags(ln.led.StoreRoot(), song, entry)
			if err != nil {
				return fmt.Errorf("failed to tag %s: %w", song, err)
			}
			ln.led.Upsert(track.ID, updated)
		}

		srcInfo, err := os.Stat(srcPath)
		if err != nil {
			return fmt.Errorf("%w: %s vanished from content store", util.ErrInternalConsistency, track.ID)
		}

		linkPath := filepath.Join(pl.Dir, song)
		if _, err := os.Lstat(linkPath); os.IsNotExist(err) {
			if err := os.Link(srcPath, linkPath); err != nil {
				return fmt.Errorf("failed to link %s: %w", song, err)
			}
			linked++
		} else if srcInfo.ModTime().After(baseline) {
			if err := os.Remove(linkPath); err != nil {
				return fmt.Errorf("failed to remove stale link %s: %w", song, err)
			}
			if err := os.Link(srcPath, linkPath); err != nil {
				return fmt.Errorf("failed to relink %s: %w", song, err)
			}
			relinked++
		}

		entries = append(entries, song)
	}

	pl.Entries = entries

	if err := pl.Save(); err != nil {
		return err
	}
	if err := ln.led.Save(); err != nil {
		return err
	}

	util.InfoLog("Linked playlist %s: %d songs (%d new, %d refreshed)",
		pl.Name, len(entries), linked, relinked)

	return nil
}
