package mail

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testCredentials = `{
  "installed": {
    "client_id": "client.apps.googleusercontent.com",
    "client_secret": "secret",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["http://localhost"]
  }
}`

func TestOAuthConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(testCredentials), 0o600))

	cfg, err := OAuthConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "client.apps.googleusercontent.com", cfg.ClientID)
	assert.Equal(t, Scopes, cfg.Scopes)
}

func TestOAuthConfig_Missing(t *testing.T) {
	_, err := OAuthConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorContains(t, err, "failed to read credentials file")
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, SaveToken(path, tok))
	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, tok.AccessToken, got.AccessToken)
	assert.Equal(t, tok.RefreshToken, got.RefreshToken)
	assert.True(t, tok.Expiry.Equal(got.Expiry))
}

func TestLoadToken_Missing(t *testing.T) {
	_, err := LoadToken(filepath.Join(t.TempDir(), "token.json"))
	assert.True(t, errors.Is(err, ErrNoToken))
}

func TestTokenSource_ValidTokenNotRewritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	tok := &oauth2.Token{AccessToken: "still-valid", Expiry: time.Now().Add(time.Hour)}
	require.NoError(t, SaveToken(path, tok))
	before, err := os.Stat(path)
	require.NoError(t, err)

	ts, err := TokenSource(context.Background(), &oauth2.Config{}, path)
	require.NoError(t, err)

	got, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "still-valid", got.AccessToken)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}
