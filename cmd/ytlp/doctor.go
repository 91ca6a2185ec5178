package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MyUncle/ytLocalPlaylist/internal/history"
	"github.com/MyUncle/ytLocalPlaylist/internal/ledger"
	"github.com/MyUncle/ytLocalPlaylist/internal/scribe"
	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure ytlp can operate correctly.

This command checks:
- ffmpeg availability (needed for tag writing)
- Content store directory permissions
- Ledger file parseability
- Fetch history database integrity
- That each playlist directory shares a filesystem with the content store
  (hard links cannot cross filesystems)

Use this command to troubleshoot issues before running ytlp operations.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== ytlp Doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{}

	results = append(results, checkFFmpeg())

	storeRoot := viper.GetString("store")
	results = append(results, checkStore(storeRoot))

	ledgerPath := viper.GetString("ledger")
	if ledgerPath == "" {
		ledgerPath = filepath.Join(storeRoot, "songdb.json")
	}
	results = append(results, checkLedger(ledgerPath, storeRoot))

	if histPath := viper.GetString("history"); histPath != "" {
		results = append(results, checkHistory(histPath))
	}

	var playlistCfgs []playlistConfig
	if err := viper.UnmarshalKey("playlists", &playlistCfgs); err == nil {
		for _, pc := range playlistCfgs {
			results = append(results, checkPlaylistDir(pc, storeRoot))
		}
	}

	// Print results
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")

	failed := 0
	for _, r := range results {
		switch {
		case r.error:
			failed++
			util.ErrorLog("[FAIL] %s: %s", r.name, r.message)
		case r.warning:
			util.WarnLog("[WARN] %s: %s", r.name, r.message)
		default:
			util.SuccessLog("[OK]   %s: %s", r.name, r.message)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d diagnostic checks failed", failed)
	}

	util.InfoLog("")
	util.SuccessLog("All checks passed")
	return nil
}

func checkFFmpeg() checkResult {
	if err := scribe.ValidateFFmpeg(); err != nil {
		return checkResult{name: "ffmpeg", message: err.Error(), error: true}
	}
	return checkResult{name: "ffmpeg", message: "available"}
}

func checkStore(storeRoot string) checkResult {
	r := checkResult{name: "content store"}

	if storeRoot == "" {
		r.message = "not configured"
		r.error = true
		return r
	}

	info, err := os.Stat(storeRoot)
	if os.IsNotExist(err) {
		r.message = fmt.Sprintf("%s does not exist yet (created on first run)", storeRoot)
		r.warning = true
		return r
	}
	if err != nil {
		r.message = err.Error()
		r.error = true
		return r
	}
	if !info.IsDir() {
		r.message = fmt.Sprintf("%s is not a directory", storeRoot)
		r.error = true
		return r
	}

	// Probe writability
	probe := filepath.Join(storeRoot, ".ytlp-doctor")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		r.message = fmt.Sprintf("%s is not writable: %v", storeRoot, err)
		r.error = true
		return r
	}
	os.Remove(probe)

	r.message = fmt.Sprintf("%s writable", storeRoot)
	return r
}

func checkLedger(ledgerPath, storeRoot string) checkResult {
	r := checkResult{name: "ledger"}

	led, err := ledger.Load(ledgerPath, storeRoot)
	if err != nil {
		r.message = err.Error()
		r.error = true
		return r
	}

	r.message = fmt.Sprintf("%s parses, %d songs", ledgerPath, led.Len())
	return r
}

func checkHistory(path string) checkResult {
	r := checkResult{name: "fetch history"}

	store, err := history.Open(path)
	if err != nil {
		r.message = err.Error()
		r.error = true
		return r
	}
	defer store.Close()

	if err := store.CheckIntegrity(); err != nil {
		r.message = err.Error()
		r.error = true
		return r
	}

	r.message = fmt.Sprintf("%s intact", path)
	return r
}

func checkPlaylistDir(pc playlistConfig, storeRoot string) checkResult {
	r := checkResult{name: fmt.Sprintf("playlist %s", pc.Name)}

	if _, err := os.Stat(pc.Dir); os.IsNotExist(err) {
		r.message = fmt.Sprintf("%s does not exist yet (created on first link)", pc.Dir)
		r.warning = true
		return r
	}

	same, err := util.IsSameFilesystem(storeRoot, pc.Dir)
	if err != nil {
		r.message = err.Error()
		r.warning = true
		return r
	}
	if !same {
		r.message = fmt.Sprintf("%s is on a different filesystem than the content store - hard links will fail", pc.Dir)
		r.error = true
		return r
	}

	r.message = fmt.Sprintf("%s shares a filesystem with the store", pc.Dir)
	return r
}
