package scribe

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MyUncle/ytLocalPlaylist/internal/ledger"
	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

func TestPlanWrites(t *testing.T) {
	tests := []struct {
		name        string
		entry       ledger.Entry
		imageExists bool
		expected    writePlan
	}{
		{
			name:     "untouched entry with no sources",
			entry:    ledger.Entry{},
			expected: writePlan{},
		},
		{
			name:     "name and artist available, nothing written yet",
			entry:    ledger.Entry{Name: "Song", Artist: "Artist"},
			expected: writePlan{title: true, artist: true},
		},
		{
			name:     "name already written",
			entry:    ledger.Entry{Name: "Song", Artist: "Artist", Status: "N"},
			expected: writePlan{artist: true},
		},
		{
			name:        "image set and present",
			entry:       ledger.Entry{Image: "/covers/x.jpg"},
			imageExists: true,
			expected:    writePlan{cover: true},
		},
		{
			name:     "image set but file missing contributes nothing",
			entry:    ledger.Entry{Image: "/covers/x.jpg"},
			expected: writePlan{},
		},
		{
			name:        "fully written entry needs nothing",
			entry:       ledger.Entry{Name: "Song", Artist: "Artist", Image: "/covers/x.jpg", Status: "NAP"},
			imageExists: true,
			expected:    writePlan{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := planWrites(tt.entry, tt.imageExists)
			if got != tt.expected {
				t.Errorf("planWrites() = %+v, expected %+v", got, tt.expected)
			}
		})
	}
}

func TestPlanWritesIdempotent(t *testing.T) {
	// Applying the plan's flags and planning again yields an empty plan:
	// the second call would not touch the file
	e := ledger.Entry{Name: "Song", Artist: "Artist", Image: "/covers/x.jpg"}

	first := planWrites(e, true)
	if !first.any() {
		t.Fatal("expected first plan to write")
	}

	if first.title {
		e.Status = e.Status.With(ledger.FlagName)
	}
	if first.artist {
		e.Status = e.Status.With(ledger.FlagArtist)
	}
	if first.cover {
		e.Status = e.Status.With(ledger.FlagPicture)
	}

	second := planWrites(e, true)
	if second.any() {
		t.Errorf("expected empty second plan, got %+v", second)
	}
}

func TestBuildArgs(t *testing.T) {
	entry := ledger.Entry{Name: "My Song", Artist: "Someone", Image: "/covers/a.jpg"}

	args := buildArgs("/store/a.m4a", "/store/a.tagged.m4a", "a", "Nightcore",
		writePlan{title: true, artist: true}, entry)

	assertContains(t, args, "-i", "/store/a.m4a")
	assertContains(t, args, "-metadata", "genre=Nightcore")
	assertContains(t, args, "-metadata", "album=a")
	assertContains(t, args, "-metadata", "title=My Song")
	assertContains(t, args, "-metadata", "artist=Someone")
	if contains(args, "/covers/a.jpg") {
		t.Error("cover input present without cover in plan")
	}
	if args[len(args)-1] != "/store/a.tagged.m4a" {
		t.Errorf("expected temp path last, got %v", args)
	}

	// With the cover planned, the image becomes a second input
	args = buildArgs("/store/a.m4a", "/store/a.tagged.m4a", "a", "Nightcore",
		writePlan{cover: true}, entry)
	assertContains(t, args, "-i", "/covers/a.jpg")
	assertContains(t, args, "-disposition:v:0", "attached_pic")
	if contains(args, "title=My Song") {
		t.Error("title written without title in plan")
	}
}

func TestWriteTagsMissingFileIsNoop(t *testing.T) {
	s := New("")
	entry := ledger.Entry{Name: "Song"}

	got, err := s.WriteTags(t.TempDir(), "nope.m4a", entry)
	if err != nil {
		t.Fatalf("expected no-op, got error: %v", err)
	}
	if got != entry {
		t.Errorf("expected entry unchanged, got %+v", got)
	}
}

func TestWriteTagsUnreadableMedia(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "junk.m4a"), []byte("this is not media"), 0644); err != nil {
		t.Fatal(err)
	}

	s := New("")
	_, err := s.WriteTags(dir, "junk.m4a", ledger.Entry{Name: "Song"})
	if !errors.Is(err, util.ErrUnreadableMedia) {
		t.Errorf("expected ErrUnreadableMedia, got %v", err)
	}
}

func assertContains(t *testing.T, args []string, flag, value string) {
	t.Helper()
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return
		}
	}
	t.Errorf("expected %q %q in args %v", flag, value, args)
}

func contains(args []string, value string) bool {
	for _, a := range args {
		if a == value {
			return true
		}
	}
	return false
}
