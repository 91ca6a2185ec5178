// Package playlist models one remote playlist and its local directory of
// hard-linked songs. The persisted state is the ordered list of link file
// names plus the declared remote playlist id.
package playlist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

// StateFileName is the per-playlist persisted state file inside the
// playlist directory
const StateFileName = "playlist.json"

// Track is one resolvable playlist entry as reported by the remote
// metadata provider
type Track struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
}

// Provider resolves a remote playlist into tracks the provider can still
// serve (found) and ids it reports as broken or removed upstream (failed)
type Provider interface {
	Resolve(ctx context.Context, playlistID string) (found []Track, failed []string, err error)
}

// state is the persisted JSON form
type state struct {
	RemoteID string   `json:"id"`
	Name     string   `json:"name"`
	Entries  []string `json:"entries"`
}

// Playlist is one configured playlist. It is only touched from the control
// thread; the fetch workers never see it.
type Playlist struct {
	Name     string
	RemoteID string
	Dir      string

	// Entries is the ordered list of link file names last materialized
	// into Dir
	Entries []string

	provider Provider

	// cached provider result, one resolve per pass
	found    []Track
	failed   []string
	resolved bool
}

// New creates a playlist backed by the given provider
func New(name, remoteID, dir string, provider Provider) *Playlist {
	return &Playlist{
		Name:     name,
		RemoteID: remoteID,
		Dir:      dir,
		provider: provider,
	}
}

// StateFile returns the path of the persisted playlist state
func (pl *Playlist) StateFile() string {
	return filepath.Join(pl.Dir, StateFileName)
}

// Load reads the persisted entry list. A missing state file is fine: the
// playlist just has not been linked yet.
func (pl *Playlist) Load() error {
	data, err := os.ReadFile(pl.StateFile())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read playlist state: %w", err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("failed to parse playlist state %s: %w", pl.StateFile(), err)
	}

	pl.Entries = st.Entries
	if st.RemoteID != "" && st.RemoteID != pl.RemoteID {
		util.WarnLog("Playlist %s: configured remote id %s differs from persisted %s",
			pl.Name, pl.RemoteID, st.RemoteID)
	}

	return nil
}

// Save atomically persists the entry list
func (pl *Playlist) Save() error {
	st := state{
		RemoteID: pl.RemoteID,
		Name:     pl.Name,
		Entries:  pl.Entries,
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal playlist state: %w", err)
	}

	if err := util.AtomicWriteFile(pl.StateFile(), data, 0644); err != nil {
		return fmt.Errorf("failed to save playlist state: %w", err)
	}

	return nil
}

// Resolve returns the provider's (found, failed) split, calling the
// provider at most once per pass. Use Refresh to force a new call.
func (pl *Playlist) Resolve(ctx context.Context) ([]Track, []string, error) {
	if pl.resolved {
		return pl.found, pl.failed, nil
	}

	found, failed, err := pl.provider.Resolve(ctx, pl.RemoteID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve playlist %s: %w", pl.Name, err)
	}

	pl.found = found
	pl.failed = failed
	pl.resolved = true
	return pl.found, pl.failed, nil
}

// Refresh drops the cached provider result
func (pl *Playlist) Refresh() {
	pl.resolved = false
	pl.found = nil
	pl.failed = nil
}

// FoundIDs returns the ids of the cached found tracks, in provider order
func (pl *Playlist) FoundIDs() []string {
	ids := make([]string, 0, len(pl.found))
	for _, t := range pl.found {
		ids = append(ids, t.ID)
	}
	return ids
}
