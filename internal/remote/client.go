// Package remote is the HTTP implementation of the two external
// collaborators: the playlist-metadata provider and the byte-fetch
// provider. Retries and rate limiting live here, not in the core: the
// pipeline assumes a fetch either returns bytes or fails.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/MyUncle/ytLocalPlaylist/internal/playlist"
	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

const (
	// DefaultUserAgent identifies this application to the provider
	DefaultUserAgent = "ytLocalPlaylist/1.0 (https://github.com/MyUncle/ytLocalPlaylist)"

	// DefaultTimeout bounds a single HTTP request
	DefaultTimeout = 60 * time.Second

	// DefaultRequestsPerSecond is the provider-friendly request rate
	DefaultRequestsPerSecond = 2
)

// Config holds client configuration
type Config struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Retry             *util.RetryConfig
}

// Client talks to the remote provider with rate limiting and retries
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	retry      *util.RetryConfig
}

// NewClient creates a Client
func NewClient(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Retry == nil {
		cfg.Retry = util.DefaultRetryConfig()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		retry:      cfg.Retry,
	}
}

// resolveResponse is the provider's playlist metadata payload
type resolveResponse struct {
	Found  []playlist.Track `json:"found"`
	Failed []string         `json:"failed"`
}

// Resolve fetches the playlist's (found, failed) split from the provider
func (c *Client) Resolve(ctx context.Context, playlistID string) ([]playlist.Track, []string, error) {
	urlStr := fmt.Sprintf("%s/playlists/%s", c.baseURL, url.PathEscape(playlistID))
	util.DebugLog("Resolving playlist %s", playlistID)

	var res resolveResponse
	err := util.Retry(ctx, c.retry, func() error {
		body, err := c.get(ctx, urlStr, nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &res)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve playlist %s: %w", playlistID, err)
	}

	return res.Found, res.Failed, nil
}

// Fetch downloads the raw media bytes for one song id, reporting progress
// as a percentage when the provider sends a Content-Length.
func (c *Client) Fetch(ctx context.Context, id string, progress func(percent int)) ([]byte, error) {
	urlStr := fmt.Sprintf("%s/songs/%s/media", c.baseURL, url.PathEscape(id))

	var data []byte
	err := util.Retry(ctx, c.retry, func() error {
		var err error
		data, err = c.get(ctx, urlStr, progress)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", id, err)
	}

	return data, nil
}

// get performs one rate-limited GET and reads the full body
func (c *Client) get(ctx context.Context, urlStr string, progress func(percent int)) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, urlStr)
	}

	if progress == nil || resp.ContentLength <= 0 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if progress != nil {
			progress(100)
		}
		return body, nil
	}

	return readWithProgress(resp.Body, resp.ContentLength, progress)
}

// readWithProgress reads the body in chunks, reporting percent complete
// against total.
func readWithProgress(r io.Reader, total int64, progress func(percent int)) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(total))

	chunk := make([]byte, 64*1024)
	var read int64

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			read += int64(n)
			progress(int(read * 100 / total))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
	}

	progress(100)
	return buf.Bytes(), nil
}
