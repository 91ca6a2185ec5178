package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/MyUncle/ytLocalPlaylist/internal/fetch"
	"github.com/MyUncle/ytLocalPlaylist/internal/history"
	"github.com/MyUncle/ytLocalPlaylist/internal/ledger"
	"github.com/MyUncle/ytLocalPlaylist/internal/playlist"
	"github.com/MyUncle/ytLocalPlaylist/internal/reconcile"
	"github.com/MyUncle/ytLocalPlaylist/internal/remote"
	"github.com/MyUncle/ytLocalPlaylist/internal/scribe"
	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

// playlistConfig is one playlists: entry in the config file
type playlistConfig struct {
	Name string `mapstructure:"name"`
	ID   string `mapstructure:"id"`
	Dir  string `mapstructure:"dir"`
}

// App wires the components together for one command run. Created once at
// process start and torn down after a final ledger save.
type App struct {
	Ledger     *ledger.Ledger
	History    *history.Store
	Remote     *remote.Client
	Scribe     *scribe.Scribe
	Reconciler *reconcile.Reconciler
	Pipeline   *fetch.Pipeline
	Playlists  []*playlist.Playlist
}

// openApp builds the App from the effective configuration
func openApp() (*App, error) {
	storeRoot := viper.GetString("store")
	if storeRoot == "" {
		return nil, fmt.Errorf("%w: content store directory not set", util.ErrInvalidConfig)
	}
	if err := os.MkdirAll(storeRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create content store: %w", err)
	}

	ledgerPath := viper.GetString("ledger")
	if ledgerPath == "" {
		ledgerPath = filepath.Join(storeRoot, "songdb.json")
	}

	// A corrupt ledger aborts here; nothing runs against a ledger that
	// cannot be trusted.
	led, err := ledger.Load(ledgerPath, storeRoot)
	if err != nil {
		return nil, err
	}

	client := remote.NewClient(remote.Config{
		BaseURL:           viper.GetString("provider.base_url"),
		UserAgent:         viper.GetString("provider.user_agent"),
		RequestsPerSecond: viper.GetFloat64("provider.requests_per_second"),
	})

	var playlistCfgs []playlistConfig
	if err := viper.UnmarshalKey("playlists", &playlistCfgs); err != nil {
		return nil, fmt.Errorf("%w: bad playlists section: %v", util.ErrInvalidConfig, err)
	}

	playlists := make([]*playlist.Playlist, 0, len(playlistCfgs))
	for _, pc := range playlistCfgs {
		if pc.Name == "" || pc.ID == "" || pc.Dir == "" {
			return nil, fmt.Errorf("%w: playlist needs name, id and dir", util.ErrInvalidConfig)
		}
		pl := playlist.New(pc.Name, pc.ID, pc.Dir, client)
		if err := pl.Load(); err != nil {
			return nil, err
		}
		playlists = append(playlists, pl)
	}

	var hist *history.Store
	if path := viper.GetString("history"); path != "" {
		hist, err = history.Open(path)
		if err != nil {
			util.WarnLog("Fetch history unavailable: %v", err)
			hist = nil
		}
	}

	scr := scribe.New(viper.GetString("genre"))

	var recorder fetch.Recorder
	if hist != nil {
		recorder = hist
	}

	app := &App{
		Ledger:     led,
		History:    hist,
		Remote:     client,
		Scribe:     scr,
		Reconciler: reconcile.New(led),
		Pipeline: fetch.NewPipeline(fetch.Config{
			Jobs:     viper.GetInt("jobs"),
			Ledger:   led,
			Fetcher:  client,
			Tagger:   scr,
			Recorder: recorder,
		}),
		Playlists: playlists,
	}

	return app, nil
}

// Close releases the App's resources
func (a *App) Close() {
	if a.History != nil {
		a.History.Close()
	}
}

// PlaylistByName finds a configured playlist
func (a *App) PlaylistByName(name string) (*playlist.Playlist, error) {
	for _, pl := range a.Playlists {
		if pl.Name == name {
			return pl, nil
		}
	}
	return nil, fmt.Errorf("%w: playlist %q is not configured", util.ErrNotFound, name)
}
