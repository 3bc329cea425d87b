package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// Scopes are requested during the installed-app flow. Modify is needed to
// clear the UNREAD label.
var Scopes = []string{gmail.GmailReadonlyScope, gmail.GmailModifyScope}

// ErrNoToken is returned when the token file does not exist.
var ErrNoToken = errors.New("gmail token file not found; run gmail-auth first")

// OAuthConfig reads an installed-app client secret downloaded from the
// Google Cloud console.
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", credentialsFile, err)
	}
	cfg, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", credentialsFile, err)
	}
	return cfg, nil
}

// LoadToken reads a token saved by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file %s: %w", path, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token file %s: %w", path, err)
	}
	return &tok, nil
}

// SaveToken writes tok as JSON, creating parent directories.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file %s: %w", path, err)
	}
	return nil
}

// persistingTokenSource saves the token whenever the wrapped source
// hands out a new access token, so refreshes survive the process.
type persistingTokenSource struct {
	src  oauth2.TokenSource
	path string
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := SaveToken(s.path, tok); err != nil {
			return nil, err
		}
	}
	return tok, nil
}

// TokenSource returns a refreshing source for the token stored at tokenFile.
func TokenSource(ctx context.Context, cfg *oauth2.Config, tokenFile string) (oauth2.TokenSource, error) {
	tok, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}
	return oauth2.ReuseTokenSource(nil, &persistingTokenSource{
		src:  cfg.TokenSource(ctx, tok),
		path: tokenFile,
		last: tok.AccessToken,
	}), nil
}

// Authorize runs the installed-app flow: it listens on a loopback port,
// hands the consent URL to openURL and exchanges the returned code.
func Authorize(ctx context.Context, cfg *oauth2.Config, openURL func(string)) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to open loopback listener: %w", err)
	}
	defer func() { _ = listener.Close() }()

	flowCfg := *cfg
	flowCfg.RedirectURL = fmt.Sprintf("http://%s/", listener.Addr().String())

	state := randomState()
	codes := make(chan string, 1)
	errs := make(chan error, 1)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errs <- errors.New("oauth state mismatch")
		case q.Get("error") != "":
			http.Error(w, "authorization denied", http.StatusBadRequest)
			errs <- fmt.Errorf("authorization denied: %s", q.Get("error"))
		default:
			_, _ = w.Write([]byte("Authentication complete. You can close this window."))
			codes <- q.Get("code")
		}
	})}
	go func() { _ = srv.Serve(listener) }()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	openURL(flowCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	select {
	case code := <-codes:
		tok, err := flowCfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
		}
		return tok, nil
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
