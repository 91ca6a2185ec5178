// Package reconcile classifies playlist entries against the content store
// and produces the download worklist. It is read-only over the ledger: it
// never enqueues fetches itself.
package reconcile

import (
	"context"

	"github.com/MyUncle/ytLocalPlaylist/internal/ledger"
	"github.com/MyUncle/ytLocalPlaylist/internal/playlist"
)

// Counts are the classification buckets for one playlist. Present, Missing,
// LostRecoverable and LostUnrecoverable partition Total exactly: Present
// and Missing split the found ids, the two Lost buckets split the failed
// ids.
type Counts struct {
	Total             int
	Present           int
	Missing           int
	LostRecoverable   int
	LostUnrecoverable int
}

// Classify computes the classification buckets from the provider's
// (found, failed) split and the set of ids present in the content store.
// An id listed in both found and failed is treated as found: the provider
// data can be noisy and found takes precedence.
func Classify(found, failed []string, present map[string]struct{}) Counts {
	foundIDs := dedupe(found, nil)

	foundSet := make(map[string]struct{}, len(foundIDs))
	for _, id := range foundIDs {
		foundSet[id] = struct{}{}
	}
	failedIDs := dedupe(failed, foundSet)

	var c Counts
	c.Total = len(foundIDs) + len(failedIDs)

	for _, id := range foundIDs {
		if _, ok := present[id]; ok {
			c.Present++
		}
	}
	c.Missing = len(foundIDs) - c.Present

	for _, id := range failedIDs {
		if _, ok := present[id]; ok {
			c.LostRecoverable++
		}
	}
	c.LostUnrecoverable = len(failedIDs) - c.LostRecoverable

	return c
}

// Worklist returns the found ids that have no store file yet, order
// preserved, deduplicated.
func Worklist(found []string, present map[string]struct{}) []string {
	worklist := make([]string, 0)
	seen := make(map[string]struct{}, len(found))

	for _, id := range found {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := present[id]; ok {
			continue
		}
		worklist = append(worklist, id)
	}

	return worklist
}

// Reconciler classifies playlists against one ledger
type Reconciler struct {
	led *ledger.Ledger
}

// New creates a Reconciler over the given ledger
func New(led *ledger.Ledger) *Reconciler {
	return &Reconciler{led: led}
}

// Classify resolves the playlist and computes its classification buckets
// against the current content store.
func (r *Reconciler) Classify(ctx context.Context, pl *playlist.Playlist) (Counts, error) {
	found, failed, err := pl.Resolve(ctx)
	if err != nil {
		return Counts{}, err
	}
	return Classify(trackIDs(found), failed, r.led.PresentIDs()), nil
}

// Worklist resolves the playlist and returns the ids needing fetch
func (r *Reconciler) Worklist(ctx context.Context, pl *playlist.Playlist) ([]string, error) {
	found, _, err := pl.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return Worklist(trackIDs(found), r.led.PresentIDs()), nil
}

// dedupe returns ids in order with duplicates and members of skip removed
func dedupe(ids []string, skip map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		if _, skipped := skip[id]; skipped {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func trackIDs(tracks []playlist.Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		ids = append(ids, t.ID)
	}
	return ids
}
