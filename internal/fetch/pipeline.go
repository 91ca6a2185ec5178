// Package fetch drains a worklist of song ids through a bounded worker
// pool: each worker claims one id, fetches its bytes, persists them into
// the content store, runs the tag writer and reports the outcome. Per-item
// failures are isolated; the first one is surfaced only after every worker
// has stopped cleanly.
package fetch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MyUncle/ytLocalPlaylist/internal/ledger"
	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

// State of one pipeline invocation
type State int32

const (
	StateRunning State = iota + 1
	StateCancelling
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCancelling:
		return "cancelling"
	case StateCompleted:
		return "completed"
	default:
		return "idle"
	}
}

// Fetcher retrieves the raw media bytes for one song id. Implementations
// report download progress through the callback as a 0-100 percentage.
type Fetcher interface {
	Fetch(ctx context.Context, id string, progress func(percent int)) ([]byte, error)
}

// Tagger applies tags to a stored song and returns the updated entry
type Tagger interface {
	WriteTags(storeRoot, song string, e ledger.Entry) (ledger.Entry, error)
}

// Recorder receives the audit record of each completed item. Optional.
type Recorder interface {
	RecordItem(invocationID, playlistName, songID string, bytes int64, started, completed time.Time, itemErr error)
}

// Config holds pipeline configuration
type Config struct {
	Jobs     int
	Ledger   *ledger.Ledger
	Fetcher  Fetcher
	Tagger   Tagger
	Recorder Recorder
}

// Pipeline runs fetch invocations. At most one invocation may be running
// per playlist at a time; a second submission is rejected, not queued.
type Pipeline struct {
	cfg Config

	mu      sync.Mutex
	running map[string]*Handle
}

// NewPipeline creates a Pipeline
func NewPipeline(cfg Config) *Pipeline {
	if cfg.Jobs <= 0 {
		cfg.Jobs = 4
	}
	return &Pipeline{
		cfg:     cfg,
		running: make(map[string]*Handle),
	}
}

// ItemResult is the outcome of one claimed id
type ItemResult struct {
	ID    string
	Bytes int64
	Err   error
}

// Result summarizes one completed invocation
type Result struct {
	Fetched   int
	Failed    int
	Cancelled int // items drained before any worker claimed them
	Items     []ItemResult
}

// FirstErr returns the first per-item failure observed, or nil. Only
// meaningful once the invocation has completed.
func (r *Result) FirstErr() error {
	for _, item := range r.Items {
		if item.Err != nil {
			return fmt.Errorf("%w: %s: %v", util.ErrFetchFailed, item.ID, item.Err)
		}
	}
	return nil
}

// Handle tracks one running invocation. The control loop polls it instead
// of joining the workers, so it never blocks.
type Handle struct {
	invocationID string
	playlist     string
	queue        *queue

	cancelled atomic.Bool
	drained   atomic.Int64
	slots     []atomic.Int64 // per-slot percent, the only progress granularity exposed

	mu    sync.Mutex
	items []ItemResult

	done chan struct{}
}

// InvocationID returns the unique id stamped on this invocation's audit
// records
func (h *Handle) InvocationID() string {
	return h.invocationID
}

// Playlist returns the playlist this invocation fetches for
func (h *Handle) Playlist() string {
	return h.playlist
}

// Cancel drains the not-yet-claimed items from the queue and returns how
// many were dropped. In-flight fetches are not aborted; they run to
// completion before the invocation reports Completed.
func (h *Handle) Cancel() int {
	h.cancelled.Store(true)
	n := h.queue.Drain()
	h.drained.Add(int64(n))
	return n
}

// Poll reports the invocation state. Once completed it also returns the
// result; before that the result is nil.
func (h *Handle) Poll() (State, *Result) {
	select {
	case <-h.done:
		return StateCompleted, h.result()
	default:
	}
	if h.cancelled.Load() {
		return StateCancelling, nil
	}
	return StateRunning, nil
}

// Progress returns the current percent per worker slot
func (h *Handle) Progress() []int {
	out := make([]int, len(h.slots))
	for i := range h.slots {
		out[i] = int(h.slots[i].Load())
	}
	return out
}

// Completed returns how many items have finished (success or failure)
func (h *Handle) Completed() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

// Wait blocks until the invocation completes or the context is cancelled
func (h *Handle) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-h.done:
		return h.result(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) result() *Result {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := &Result{
		Cancelled: int(h.drained.Load()),
		Items:     make([]ItemResult, len(h.items)),
	}
	copy(r.Items, h.items)

	for _, item := range r.Items {
		if item.Err != nil {
			r.Failed++
		} else {
			r.Fetched++
		}
	}
	return r
}

func (h *Handle) record(item ItemResult) {
	h.mu.Lock()
	h.items = append(h.items, item)
	h.mu.Unlock()
}

// Start submits a worklist for the playlist and returns the invocation
// handle. Returns ErrPipelineBusy while a previous invocation for the same
// playlist is still running.
func (p *Pipeline) Start(ctx context.Context, playlistName string, worklist []string) (*Handle, error) {
	p.mu.Lock()
	if _, busy := p.running[playlistName]; busy {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: playlist %s", util.ErrPipelineBusy, playlistName)
	}

	h := &Handle{
		invocationID: uuid.New().String(),
		playlist:     playlistName,
		queue:        newQueue(worklist),
		slots:        make([]atomic.Int64, p.cfg.Jobs),
		done:         make(chan struct{}),
	}
	p.running[playlistName] = h
	p.mu.Unlock()

	util.InfoLog("Starting fetch for %s: %d songs, %d workers", playlistName, len(worklist), p.cfg.Jobs)

	var wg sync.WaitGroup
	for slot := 0; slot < p.cfg.Jobs; slot++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			p.worker(ctx, h, slot)
		}(slot)
	}

	go func() {
		wg.Wait()
		p.mu.Lock()
		delete(p.running, playlistName)
		p.mu.Unlock()
		close(h.done)
	}()

	return h, nil
}

// worker claims ids until the queue is empty. Claim is non-blocking so a
// drained queue ends the slot immediately.
func (p *Pipeline) worker(ctx context.Context, h *Handle, slot int) {
	for {
		id, ok := h.queue.TryClaim()
		if !ok {
			return
		}

		h.slots[slot].Store(0)
		started := time.Now()

		bytes, err := p.fetchOne(ctx, h, slot, id)
		if err != nil {
			util.ErrorLog("Fetch failed for %s: %v", id, err)
		} else {
			h.slots[slot].Store(100)
		}

		item := ItemResult{ID: id, Bytes: bytes, Err: err}
		h.record(item)

		if p.cfg.Recorder != nil {
			p.cfg.Recorder.RecordItem(h.invocationID, h.playlist, id, bytes, started, time.Now(), err)
		}
	}
}

// fetchOne downloads, persists and tags a single song. No two workers ever
// hold the same id, so the store file and the ledger entry for id are
// touched by exactly one goroutine.
func (p *Pipeline) fetchOne(ctx context.Context, h *Handle, slot int, id string) (int64, error) {
	led := p.cfg.Ledger

	data, err := p.cfg.Fetcher.Fetch(ctx, id, func(percent int) {
		h.slots[slot].Store(int64(percent))
	})
	if err != nil {
		return 0, err
	}

	song := led.FileName(id)
	path := filepath.Join(led.StoreRoot(), song)
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return 0, err
	}

	entry, _ := led.Get(id)
	updated, err := p.cfg.Tagger.WriteTags(led.StoreRoot(), song, entry)
	if err != nil {
		// bytes are stored; only tagging failed. Keep the file, surface
		// the error so the song is not silently marked complete.
		return int64(len(data)), err
	}
	led.Upsert(id, updated)

	util.DebugLog("Fetched %s (%d bytes)", id, len(data))
	return int64(len(data)), nil
}
