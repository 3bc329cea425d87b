package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/teams-newsbot/internal/config"
	"github.com/jonathan/teams-newsbot/internal/extraction"
	"github.com/jonathan/teams-newsbot/internal/mail"
	"github.com/jonathan/teams-newsbot/internal/observability"
	"github.com/jonathan/teams-newsbot/internal/pipeline"
	"github.com/jonathan/teams-newsbot/internal/rewriting"
	"github.com/jonathan/teams-newsbot/internal/teams"
)

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Post X shares received by email to Teams",
	Long: `Searches Gmail for recent X share emails, extracts the post, rewrites it
with the language model and posts one card per email, oldest first.

Run gmail-auth once beforehand to create the token file.`,
	RunE: runShare,
}

var (
	shareHoursBack  int
	shareMaxEmails  int
	shareAll        bool
	shareKeepUnread bool
)

func init() {
	shareCmd.Flags().IntVar(&shareHoursBack, "hours-back", 0, "Search window in hours (overrides CHECK_HOURS_BACK_TWEET)")
	shareCmd.Flags().IntVar(&shareMaxEmails, "max-emails", 0, "Maximum emails to process (overrides MAX_EMAILS_PER_RUN)")
	shareCmd.Flags().BoolVar(&shareAll, "all", false, "Include already read emails")
	shareCmd.Flags().BoolVar(&shareKeepUnread, "keep-unread", false, "Do not mark processed emails as read")
	rootCmd.AddCommand(shareCmd)
}

// applyShareFlags copies explicitly set share flags onto cfg.
func applyShareFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("hours-back") {
		cfg.CheckHoursBackTweet = shareHoursBack
	}
	if cmd.Flags().Changed("max-emails") {
		cfg.MaxEmailsPerRun = shareMaxEmails
	}
	if cmd.Flags().Changed("all") {
		cfg.ProcessOnlyUnread = !shareAll
	}
	if cmd.Flags().Changed("keep-unread") {
		cfg.MarkAsRead = !shareKeepUnread
	}
}

func runShare(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyShareFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	svc, err := mail.NewService(ctx, cfg.GmailCredentialsFile, cfg.GmailTokenFile)
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

	_, err = pipeline.RunShare(ctx, pipeline.ShareOptions{
		Mailbox:    mail.NewMailbox(svc),
		Extractor:  extraction.New(),
		Rewriter:   rewriting.New(client),
		Publisher:  teams.NewPublisher(cfg.TeamsWebhookURL, teams.Options{DryRun: cfg.DryRun}),
		Address:    cfg.GmailAddress,
		HoursBack:  cfg.CheckHoursBackTweet,
		OnlyUnread: cfg.ProcessOnlyUnread,
		MarkAsRead: cfg.MarkAsRead,
		MaxEmails:  cfg.MaxEmailsPerRun,
		DryRun:     cfg.DryRun,
		Location:   loc,
		Now:        func() time.Time { return time.Now().In(loc) },
		Printer:    observability.NewPrinter(os.Stdout),
	})
	if err != nil {
		return fmt.Errorf("share run failed: %w", err)
	}
	return nil
}
