// Package main provides the newsbot command line: the news and share
// pipelines, the logging proxy and the setup helpers.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/teams-newsbot/internal/logging"
)

var (
	configPath string
	dryRun     bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "newsbot",
	Short: "AI news and X share bot for Microsoft Teams",
	Long: `newsbot collects AI news from RSS feeds and X shares from Gmail, lets a
language model pick and rewrite them, and posts Adaptive Cards to a Teams webhook.

Settings come from the environment (and .env), optionally overlaid by --config.
Command-line flags override both.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON config file overlaid on the environment")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Log cards instead of posting them")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	err := rootCmd.Execute()
	// flush LOG_FILE before exiting
	logging.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
