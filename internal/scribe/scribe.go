// Package scribe writes name/artist/cover tags into stored media files.
// Writes are gated by per-field status flags so a song is never re-tagged
// once a field has been written; calling WriteTags twice in a row with the
// same entry leaves the file bytes untouched the second time.
package scribe

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"golang.org/x/text/unicode/norm"

	"github.com/MyUncle/ytLocalPlaylist/internal/ledger"
	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

// DefaultGenre is stamped on every song the scribe touches
const DefaultGenre = "Nightcore"

// Scribe applies tags to stored songs via ffmpeg stream copy
type Scribe struct {
	genre string
}

// New creates a Scribe. An empty genre falls back to DefaultGenre.
func New(genre string) *Scribe {
	if genre == "" {
		genre = DefaultGenre
	}
	return &Scribe{genre: genre}
}

// writePlan records which gated fields this call will write
type writePlan struct {
	title  bool
	artist bool
	cover  bool
}

func (p writePlan) any() bool {
	return p.title || p.artist || p.cover
}

// planWrites decides the gated fields to write for this call. A field is
// written when its source value is set and its status flag is not. The
// cover additionally requires the image file to actually exist; when it
// does not, the flag stays unset and no save happens for it, so the write
// is attempted again once the image shows up.
func planWrites(e ledger.Entry, imageExists bool) writePlan {
	return writePlan{
		title:  e.Name != "" && !e.Status.Has(ledger.FlagName),
		artist: e.Artist != "" && !e.Status.Has(ledger.FlagArtist),
		cover:  e.Image != "" && !e.Status.Has(ledger.FlagPicture) && imageExists,
	}
}

// WriteTags applies tags to storeRoot/song and returns the entry with its
// status flags updated for every field actually written. A missing media
// file is a no-op, not an error: the scribe never creates files. A file
// whose tag container cannot be opened fails with ErrUnreadableMedia.
func (s *Scribe) WriteTags(storeRoot, song string, e ledger.Entry) (ledger.Entry, error) {
	path := filepath.Join(storeRoot, song)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return e, nil
	}

	if err := probe(path); err != nil {
		return e, err
	}

	imageExists := false
	if e.Image != "" {
		if info, err := os.Stat(e.Image); err == nil && !info.IsDir() {
			imageExists = true
		} else {
			util.DebugLog("Cover image %s missing, skipping picture for %s", e.Image, song)
		}
	}

	plan := planWrites(e, imageExists)
	if !plan.any() {
		return e, nil
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(song, filepath.Ext(song))
	tempPath := strings.TrimSuffix(path, ext) + ".tagged" + ext

	args := buildArgs(path, tempPath, base, s.genre, plan, e)

	cmd := exec.Command("ffmpeg", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(tempPath)
		return e, fmt.Errorf("ffmpeg failed for %s: %w (output: %s)", song, err, string(output))
	}

	if err := os.Remove(path); err != nil {
		os.Remove(tempPath)
		return e, fmt.Errorf("failed to remove original file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return e, fmt.Errorf("failed to rename tagged file: %w", err)
	}

	if plan.title {
		e.Status = e.Status.With(ledger.FlagName)
	}
	if plan.artist {
		e.Status = e.Status.With(ledger.FlagArtist)
	}
	if plan.cover {
		e.Status = e.Status.With(ledger.FlagPicture)
		util.DebugLog("Set cover - %s", song)
	}

	return e, nil
}

// buildArgs builds the ffmpeg argument list. Genre and album are stamped
// unconditionally on every save; title/artist/cover only per the plan.
func buildArgs(path, tempPath, album, genre string, p writePlan, e ledger.Entry) []string {
	args := []string{"-i", path}

	if p.cover {
		args = append(args, "-i", e.Image,
			"-map", "0:a", "-map", "1",
			"-disposition:v:0", "attached_pic")
	} else {
		args = append(args, "-map", "0")
	}

	args = append(args, "-c", "copy",
		"-metadata", "genre="+genre,
		"-metadata", "album="+album)

	if p.title {
		args = append(args, "-metadata", "title="+norm.NFC.String(e.Name))
	}
	if p.artist {
		args = append(args, "-metadata", "artist="+norm.NFC.String(e.Artist))
	}

	args = append(args, "-y", tempPath)
	return args
}

// probe opens the tag container to verify the file is taggable media
func probe(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", util.ErrUnreadableMedia, path, err)
	}
	defer f.Close()

	if _, err := tag.ReadFrom(f); err != nil {
		return fmt.Errorf("%w: %s: %v", util.ErrUnreadableMedia, path, err)
	}

	return nil
}

// ValidateFFmpeg checks if ffmpeg is available
func ValidateFFmpeg() error {
	cmd := exec.Command("ffmpeg", "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return nil
}
