package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/teams-newsbot/internal/config"
	"github.com/jonathan/teams-newsbot/internal/feeds"
	"github.com/jonathan/teams-newsbot/internal/filtering"
	"github.com/jonathan/teams-newsbot/internal/observability"
	"github.com/jonathan/teams-newsbot/internal/pipeline"
	"github.com/jonathan/teams-newsbot/internal/teams"
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Collect AI news from RSS feeds and post the best articles to Teams",
	Long: `Fetches every configured feed, keeps entries published within --hours-back,
asks the language model to pick the most relevant ones and posts them as an
Adaptive Card. Without a model the first articles are posted unranked.

Exits non-zero when nothing was posted.`,
	RunE: runNews,
}

var (
	newsPerArticle bool
	newsHoursBack  int
	newsMaxItems   int
	newsFeedsFile  string
)

func init() {
	newsCmd.Flags().BoolVar(&newsPerArticle, "per-article", false, "Post a summary card followed by one card per article")
	newsCmd.Flags().IntVar(&newsHoursBack, "hours-back", 0, "Recency window in hours (overrides HOURS_BACK)")
	newsCmd.Flags().IntVar(&newsMaxItems, "max-items", 0, "Maximum articles to post (overrides MAX_NEWS_ITEMS)")
	newsCmd.Flags().StringVar(&newsFeedsFile, "feeds", "", "YAML feed list (overrides FEEDS_FILE)")
	rootCmd.AddCommand(newsCmd)
}

// applyNewsFlags copies explicitly set news flags onto cfg.
func applyNewsFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("hours-back") {
		cfg.HoursBack = newsHoursBack
	}
	if cmd.Flags().Changed("max-items") {
		cfg.MaxNewsItems = newsMaxItems
	}
	if cmd.Flags().Changed("feeds") {
		cfg.FeedsFile = newsFeedsFile
	}
}

func runNews(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyNewsFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}

	sources, err := config.LoadFeeds(cfg.FeedsFile)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	if client != nil {
		defer func() { _ = client.Close() }()
	}

	now := func() time.Time { return time.Now().In(loc) }
	_, err = pipeline.RunNews(ctx, pipeline.NewsOptions{
		Source: feeds.NewCollector(sources, feeds.Options{
			HoursBack:         cfg.HoursBack,
			MaxEntriesPerFeed: cfg.MaxEntriesPerFeed,
			Location:          loc,
			Now:               now,
		}),
		Filter: filtering.New(client, filtering.Options{
			MaxItems:         cfg.MaxNewsItems,
			MaxArticlesToLLM: cfg.MaxArticlesToLLM,
		}),
		Publisher:         teams.NewPublisher(cfg.TeamsWebhookURL, teams.Options{DryRun: cfg.DryRun}),
		PerArticle:        newsPerArticle,
		HoursBack:         cfg.HoursBack,
		MaxEntriesPerFeed: cfg.MaxEntriesPerFeed,
		Now:               now,
		Printer:           observability.NewPrinter(os.Stdout),
	})
	if err != nil {
		return fmt.Errorf("news run failed: %w", err)
	}
	return nil
}
