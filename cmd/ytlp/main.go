package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "ytlp",
		Short: "Local playlist manager - keep a local music library in sync with remote playlists",
		Long: `ytlp keeps a local music library synchronized with a set of remote playlists.
It classifies every playlist entry against the local content store, fetches
missing songs through a bounded concurrent pipeline, stamps each stored file
with resumable metadata tags, and materializes playlist directories as hard
links so shared songs are stored exactly once.`,
		Version: Version,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/example.yaml)")
	rootCmd.PersistentFlags().String("store", "store", "content store directory")
	rootCmd.PersistentFlags().String("ledger", "", "song ledger file (default is <store>/songdb.json)")
	rootCmd.PersistentFlags().String("history", "ytlp-history.db", "fetch history database file")
	rootCmd.PersistentFlags().IntP("jobs", "j", 4, "number of concurrent download workers")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))
	viper.BindPFlag("ledger", rootCmd.PersistentFlags().Lookup("ledger"))
	viper.BindPFlag("history", rootCmd.PersistentFlags().Lookup("history"))
	viper.BindPFlag("jobs", rootCmd.PersistentFlags().Lookup("jobs"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("example")
		viper.SetConfigType("yaml")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("YTLP")
	viper.AutomaticEnv()

	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
	if !util.IsTerminal(os.Stderr.Fd()) {
		util.SetColors(false)
	}

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
