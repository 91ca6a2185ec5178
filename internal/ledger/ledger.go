// Package ledger persists per-song tag-write progress. The ledger file and
// the content store directory are jointly authoritative: the ledger owns
// status flags, the filesystem owns byte presence. Presence is always
// recomputed by scanning the store, never cached, so out-of-band file
// changes are picked up on the next call.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

// SongExt is the container extension for newly stored songs
const SongExt = ".m4a"

// audioExtensions are the store file extensions recognized as songs
var audioExtensions = []string{
	".m4a",
	".mp3",
	".aac",
	".ogg",
	".opus",
	".webm",
}

// Entry is the ledger record for one song. Name, Artist and Image are
// source values filled in out-of-band (provider metadata or the editing
// tools); Status tracks which of them have been written to the stored file.
type Entry struct {
	Name   string `json:"name,omitempty"`
	Artist string `json:"artist,omitempty"`
	Image  string `json:"image,omitempty"`
	Status Status `json:"status,omitempty"`
}

// ledgerFile is the persisted JSON form
type ledgerFile struct {
	Songs map[string]Entry `json:"songs"`
}

// Ledger maps song ids to entries. Mutations are in-memory only until
// Save() is called; callers flush after a batch they want durable.
type Ledger struct {
	mu        sync.RWMutex
	path      string
	storeRoot string
	songs     map[string]Entry
}

// Load reconstructs the ledger from path. A missing file yields an empty
// ledger (first run); an unparseable file fails with ErrCorruptLedger and
// the caller must refuse to proceed.
func Load(path, storeRoot string) (*Ledger, error) {
	l := &Ledger{
		path:      path,
		storeRoot: storeRoot,
		songs:     make(map[string]Entry),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}

	var lf ledgerFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", util.ErrCorruptLedger, path, err)
	}
	if lf.Songs != nil {
		l.songs = lf.Songs
	}

	return l, nil
}

// Path returns the ledger file path
func (l *Ledger) Path() string {
	return l.path
}

// StoreRoot returns the content store directory
func (l *Ledger) StoreRoot() string {
	return l.storeRoot
}

// Get returns a copy of the entry for id
func (l *Ledger) Get(id string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.songs[id]
	return e, ok
}

// Upsert inserts or replaces the entry for id
func (l *Ledger) Upsert(id string, e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.songs[id] = e
}

// MergeStatus adds the given flags to the entry's status. Flags are never
// removed, so status only grows over time.
func (l *Ledger) MergeStatus(id string, s Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.songs[id]
	e.Status = e.Status.Union(s)
	l.songs[id] = e
}

// Len returns the number of known songs
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.songs)
}

// IDs returns all known song ids, sorted
func (l *Ledger) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.songs))
	for id := range l.songs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PresentIDs returns the ids that currently have a file in the content
// store. Recomputed by directory scan on every call so it reflects ground
// truth after out-of-band changes.
func (l *Ledger) PresentIDs() map[string]struct{} {
	present := make(map[string]struct{})

	entries, err := os.ReadDir(l.storeRoot)
	if err != nil {
		util.WarnLog("Failed to scan content store %s: %v", l.storeRoot, err)
		return present
	}

	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".part") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !isAudioExt(ext) {
			continue
		}
		present[strings.TrimSuffix(name, filepath.Ext(name))] = struct{}{}
	}

	return present
}

// Present reports whether a store file exists for id
func (l *Ledger) Present(id string) bool {
	_, ok := l.FilePath(id)
	return ok
}

// FilePath resolves the content store file for id, trying each recognized
// extension. Returns false if no file exists.
func (l *Ledger) FilePath(id string) (string, bool) {
	for _, ext := range audioExtensions {
		path := filepath.Join(l.storeRoot, id+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// FileName returns the canonical store file name for id
func (l *Ledger) FileName(id string) string {
	return id + SongExt
}

// Save atomically persists the full mapping (write-to-temp-then-rename),
// so a crash mid-write never corrupts the previous good state. This is the
// only durable write the ledger performs.
func (l *Ledger) Save() error {
	l.mu.RLock()
	data, err := json.MarshalIndent(ledgerFile{Songs: l.songs}, "", "  ")
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	if err := util.AtomicWriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}

	return nil
}

func isAudioExt(ext string) bool {
	for _, e := range audioExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
