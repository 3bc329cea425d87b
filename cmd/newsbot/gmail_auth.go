package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/jonathan/teams-newsbot/internal/logging"
	"github.com/jonathan/teams-newsbot/internal/mail"
)

var gmailAuthForce bool

var gmailAuthCmd = &cobra.Command{
	Use:   "gmail-auth",
	Short: "Create or refresh the Gmail OAuth token",
	Long: `Checks the saved Gmail token. A valid token is left alone, an expired one
is refreshed, and otherwise the browser consent flow is started and the new
token is written to GMAIL_TOKEN_FILE.`,
	RunE: runGmailAuth,
}

func init() {
	gmailAuthCmd.Flags().BoolVar(&gmailAuthForce, "force", false, "Run the consent flow even if a usable token exists")
	rootCmd.AddCommand(gmailAuthCmd)
}

func runGmailAuth(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}

	oauthCfg, err := mail.OAuthConfig(cfg.GmailCredentialsFile)
	if err != nil {
		return err
	}

	if !gmailAuthForce {
		ok, err := refreshSavedToken(ctx, oauthCfg, cfg.GmailTokenFile)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(os.Stdout, "Gmail token is valid: %s\n", cfg.GmailTokenFile)
			return nil
		}
	}

	tok, err := mail.Authorize(ctx, oauthCfg, func(url string) {
		fmt.Fprintf(os.Stdout, "Open this URL in a browser and grant access:\n\n%s\n\n", url)
	})
	if err != nil {
		return fmt.Errorf("gmail authorization failed: %w", err)
	}
	if err := mail.SaveToken(cfg.GmailTokenFile, tok); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Gmail token saved: %s\n", cfg.GmailTokenFile)
	return nil
}

// refreshSavedToken reports whether the token at path is usable, refreshing
// and re-saving it when it has expired. A missing or unrefreshable token
// yields false with no error so the consent flow can run.
func refreshSavedToken(ctx context.Context, oauthCfg *oauth2.Config, path string) (bool, error) {
	tok, err := mail.LoadToken(path)
	if errors.Is(err, mail.ErrNoToken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if tok.Valid() {
		return true, nil
	}
	if tok.RefreshToken == "" {
		logging.Log.Warn("saved gmail token expired and has no refresh token")
		return false, nil
	}

	ts, err := mail.TokenSource(ctx, oauthCfg, path)
	if err != nil {
		return false, err
	}
	if _, err := ts.Token(); err != nil {
		logging.WarnWithFields("gmail token refresh failed", logging.Fields{"error": err.Error()})
		return false, nil
	}
	logging.InfoWithFields("gmail token refreshed", logging.Fields{"token_file": path})
	return true, nil
}
