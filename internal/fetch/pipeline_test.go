package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/MyUncle/ytLocalPlaylist/internal/ledger"
	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

// fakeFetcher returns synthetic bytes, optionally failing or blocking on
// specific ids
type fakeFetcher struct {
	mu      sync.Mutex
	fetched []string
	fail    map[string]error
	blockOn map[string]bool
	started chan string
	release chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, id string, progress func(int)) ([]byte, error) {
	if f.started != nil {
		f.started <- id
	}
	if f.blockOn != nil && f.blockOn[id] {
		<-f.release
	}

	f.mu.Lock()
	f.fetched = append(f.fetched, id)
	f.mu.Unlock()

	if err := f.fail[id]; err != nil {
		return nil, err
	}
	if progress != nil {
		progress(100)
	}
	return []byte("media-" + id), nil
}

func (f *fakeFetcher) fetchedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.fetched))
	copy(out, f.fetched)
	return out
}

// fakeTagger marks the name flag when a name is available
type fakeTagger struct {
	fail map[string]error
}

func (ft *fakeTagger) WriteTags(storeRoot, song string, e ledger.Entry) (ledger.Entry, error) {
	if err := ft.fail[song]; err != nil {
		return e, err
	}
	if e.Name != "" {
		e.Status = e.Status.With(ledger.FlagName)
	}
	return e, nil
}

func newTestPipeline(t *testing.T, jobs int, fetcher Fetcher, tagger Tagger) (*Pipeline, *ledger.Ledger) {
	t.Helper()
	dir := t.TempDir()
	led, err := ledger.Load(filepath.Join(dir, "songdb.json"), dir)
	if err != nil {
		t.Fatal(err)
	}
	return NewPipeline(Config{
		Jobs:    jobs,
		Ledger:  led,
		Fetcher: fetcher,
		Tagger:  tagger,
	}), led
}

func TestPipelineFetchesAll(t *testing.T) {
	fetcher := &fakeFetcher{}
	pipe, led := newTestPipeline(t, 2, fetcher, &fakeTagger{})

	led.Upsert("A", ledger.Entry{Name: "Song A"})

	handle, err := pipe.Start(context.Background(), "test", []string{"A", "B", "C"})
	if err != nil {
		t.Fatal(err)
	}

	result, err := handle.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if result.Fetched != 3 || result.Failed != 0 || result.Cancelled != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	if err := result.FirstErr(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	// Bytes persisted into the content store
	for _, id := range []string{"A", "B", "C"} {
		path := filepath.Join(led.StoreRoot(), led.FileName(id))
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("store file for %s missing: %v", id, err)
		}
		if string(data) != "media-"+id {
			t.Errorf("unexpected store bytes for %s: %q", id, data)
		}
	}

	// Tag status reported back through the ledger
	e, _ := led.Get("A")
	if !e.Status.Has(ledger.FlagName) {
		t.Errorf("expected name flag on A, got %q", e.Status)
	}

	state, _ := handle.Poll()
	if state != StateCompleted {
		t.Errorf("expected completed state, got %v", state)
	}
}

func TestPipelineIsolatedFailure(t *testing.T) {
	fetchErr := fmt.Errorf("provider says no")
	fetcher := &fakeFetcher{fail: map[string]error{"B": fetchErr}}
	pipe, led := newTestPipeline(t, 2, fetcher, &fakeTagger{})

	handle, err := pipe.Start(context.Background(), "test", []string{"A", "B", "C"})
	if err != nil {
		t.Fatal(err)
	}

	result, err := handle.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// One failure does not stop the siblings
	if result.Fetched != 2 || result.Failed != 1 {
		t.Errorf("unexpected result: %+v", result)
	}

	// First observed failure surfaces only after the drain
	if !errors.Is(result.FirstErr(), util.ErrFetchFailed) {
		t.Errorf("expected ErrFetchFailed, got %v", result.FirstErr())
	}

	// The failed id has no store file; the successes do
	if _, err := os.Stat(filepath.Join(led.StoreRoot(), led.FileName("B"))); !os.IsNotExist(err) {
		t.Error("expected no store file for failed fetch")
	}
	if _, err := os.Stat(filepath.Join(led.StoreRoot(), led.FileName("A"))); err != nil {
		t.Error("expected store file for successful fetch")
	}
}

func TestPipelineTagFailureSurfaced(t *testing.T) {
	fetcher := &fakeFetcher{}
	tagger := &fakeTagger{fail: map[string]error{"A" + ledger.SongExt: util.ErrUnreadableMedia}}
	pipe, led := newTestPipeline(t, 1, fetcher, tagger)

	handle, err := pipe.Start(context.Background(), "test", []string{"A"})
	if err != nil {
		t.Fatal(err)
	}

	result, err := handle.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// Download succeeded but tagging did not: the song must not count as
	// complete, though its bytes stay in the store
	if result.Failed != 1 {
		t.Errorf("expected 1 failure, got %+v", result)
	}
	if _, err := os.Stat(filepath.Join(led.StoreRoot(), led.FileName("A"))); err != nil {
		t.Error("expected fetched bytes to be kept")
	}
}

func TestPipelineBusyGuard(t *testing.T) {
	fetcher := &fakeFetcher{
		blockOn: map[string]bool{"A": true},
		started: make(chan string, 1),
		release: make(chan struct{}),
	}
	pipe, _ := newTestPipeline(t, 1, fetcher, &fakeTagger{})

	handle, err := pipe.Start(context.Background(), "test", []string{"A"})
	if err != nil {
		t.Fatal(err)
	}
	<-fetcher.started

	// Second submission while running is rejected, not queued
	if _, err := pipe.Start(context.Background(), "test", []string{"B"}); !errors.Is(err, util.ErrPipelineBusy) {
		t.Errorf("expected ErrPipelineBusy, got %v", err)
	}

	// A different playlist is fine
	if _, err := pipe.Start(context.Background(), "other", nil); err != nil {
		t.Errorf("unexpected error for other playlist: %v", err)
	}

	close(fetcher.release)
	if _, err := handle.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Completed invocations release the guard
	if _, err := pipe.Start(context.Background(), "test", nil); err != nil {
		t.Errorf("expected fresh invocation after completion, got %v", err)
	}
}

func TestPipelineCancellation(t *testing.T) {
	fetcher := &fakeFetcher{
		blockOn: map[string]bool{"A": true},
		started: make(chan string, 1),
		release: make(chan struct{}),
	}
	pipe, _ := newTestPipeline(t, 1, fetcher, &fakeTagger{})

	handle, err := pipe.Start(context.Background(), "test", []string{"A", "B", "C"})
	if err != nil {
		t.Fatal(err)
	}

	// A is claimed and in flight; B and C are still queued
	<-fetcher.started

	if dropped := handle.Cancel(); dropped != 2 {
		t.Errorf("Cancel() dropped %d, expected 2", dropped)
	}

	state, _ := handle.Poll()
	if state != StateCancelling {
		t.Errorf("expected cancelling state, got %v", state)
	}

	// The in-flight fetch runs to completion
	close(fetcher.release)
	result, err := handle.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if result.Fetched != 1 || result.Cancelled != 2 {
		t.Errorf("unexpected result: %+v", result)
	}

	fetched := fetcher.fetchedIDs()
	if len(fetched) != 1 || fetched[0] != "A" {
		t.Errorf("expected only A fetched, got %v", fetched)
	}
}
