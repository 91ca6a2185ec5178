package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/MyUncle/ytLocalPlaylist/internal/fetch"
	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <playlist>",
	Short: "Download the playlist's missing songs into the content store",
	Long: `Compute the playlist's worklist (found upstream, not stored locally)
and drain it through the concurrent download pipeline. Each fetched song is
written atomically into the content store and tagged before the next item
is claimed by that worker.

Ctrl-C cancels cooperatively: queued songs are dropped, downloads already
in flight run to completion. Progress already made is kept either way -
a later fetch resumes where this one stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	pl, err := app.PlaylistByName(args[0])
	if err != nil {
		return err
	}

	worklist, err := app.Reconciler.Worklist(ctx, pl)
	if err != nil {
		return err
	}

	if len(worklist) == 0 {
		util.SuccessLog("Playlist %s has no missing songs", pl.Name)
		return nil
	}

	handle, err := app.Pipeline.Start(ctx, pl.Name, worklist)
	if err != nil {
		return err
	}

	// First Ctrl-C drains the queue; in-flight downloads finish
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	result, err := watchPipeline(ctx, handle, len(worklist), sigCh)
	if err != nil {
		return err
	}

	// Keep partial progress durable before surfacing any failure
	if err := app.Ledger.Save(); err != nil {
		return err
	}

	if result.Cancelled > 0 {
		util.WarnLog("Cancelled: %d songs fetched, %d dropped from queue",
			result.Fetched, result.Cancelled)
	} else {
		util.SuccessLog("Fetched %d/%d songs", result.Fetched, len(worklist))
	}

	if result.Failed > 0 {
		util.WarnLog("Failed songs:")
		for _, item := range result.Items {
			if item.Err != nil {
				util.WarnLog("  - %s: %v", item.ID, item.Err)
			}
		}
	}

	// One reconciliation pass with fresh provider data now that the store
	// has changed
	pl.Refresh()
	counts, err := app.Reconciler.Classify(ctx, pl)
	if err != nil {
		return err
	}
	util.InfoLog("%s: total=%d present=%d missing=%d lost=%d unrecoverable=%d",
		pl.Name, counts.Total, counts.Present, counts.Missing,
		counts.LostRecoverable, counts.LostUnrecoverable)

	return result.FirstErr()
}

// watchPipeline polls the invocation on a timer tick, driving the progress
// bar and the cancel signal, until the pipeline reports completion.
func watchPipeline(ctx context.Context, handle *fetch.Handle, total int, sigCh <-chan os.Signal) (*fetch.Result, error) {
	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stderr.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Fetching"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("songs"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			dropped := handle.Cancel()
			util.WarnLog("Cancelling: dropped %d queued songs, waiting for %d in-flight downloads",
				dropped, activeSlots(handle))
		case <-ticker.C:
			state, result := handle.Poll()
			if bar != nil {
				bar.Set(handle.Completed())
			}
			if state == fetch.StateCompleted {
				if bar != nil {
					bar.Finish()
				}
				return result, nil
			}
			if state == fetch.StateRunning {
				util.DebugLog("Worker slots: %s", formatSlots(handle.Progress()))
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// activeSlots counts worker slots mid-download
func activeSlots(handle *fetch.Handle) int {
	active := 0
	for _, pct := range handle.Progress() {
		if pct > 0 && pct < 100 {
			active++
		}
	}
	return active
}

func formatSlots(slots []int) string {
	out := ""
	for i, pct := range slots {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("DL-%d:%d%%", i, pct)
	}
	return out
}
