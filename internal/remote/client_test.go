package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:           baseURL,
		RequestsPerSecond: 1000, // no throttling in tests
		Retry:             util.NoRetryConfig(),
	})
}

func TestResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/playlists/PL123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); ua != DefaultUserAgent {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Write([]byte(`{
			"found": [{"id": "A", "title": "Song A", "artist": "Someone"}, {"id": "B"}],
			"failed": ["C"]
		}`))
	}))
	defer srv.Close()

	found, failed, err := newTestClient(srv.URL).Resolve(context.Background(), "PL123")
	if err != nil {
		t.Fatal(err)
	}

	if len(found) != 2 || found[0].ID != "A" || found[0].Title != "Song A" || found[0].Artist != "Someone" {
		t.Errorf("unexpected found: %+v", found)
	}
	if len(failed) != 1 || failed[0] != "C" {
		t.Errorf("unexpected failed: %v", failed)
	}
}

func TestFetchReportsProgress(t *testing.T) {
	payload := make([]byte, 200*1024)
	for i := range payload {
		payload[i] = byte(i)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/songs/abc123/media" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write(payload)
	}))
	defer srv.Close()

	var last int
	data, err := newTestClient(srv.URL).Fetch(context.Background(), "abc123", func(percent int) {
		if percent < last {
			t.Errorf("progress went backwards: %d after %d", percent, last)
		}
		last = percent
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(data) != len(payload) {
		t.Errorf("got %d bytes, expected %d", len(data), len(payload))
	}
	if last != 100 {
		t.Errorf("final progress %d, expected 100", last)
	}
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Fetch(context.Background(), "abc123", nil); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestFetchRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("media"))
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:           srv.URL,
		RequestsPerSecond: 1000,
		Retry:             &util.RetryConfig{MaxAttempts: 2, InitialWait: 1},
	})

	data, err := client.Fetch(context.Background(), "abc123", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "media" {
		t.Errorf("unexpected data %q", data)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", calls.Load())
	}
}
