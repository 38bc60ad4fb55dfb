package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears variables for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestNewServer_Defaults(t *testing.T) {
	unsetEnv(t, "STUDYSYNC_PORT", "PORT", "STUDYSYNC_STORE", "STORE")

	cfg, err := NewServer()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Empty(t, cfg.OAuthProviders())
}

func TestNewServer_RejectsUnknownStore(t *testing.T) {
	t.Setenv("STUDYSYNC_STORE", "postgres")

	_, err := NewServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported STORE")
}

func TestServer_OAuthProvidersNeedIDAndSecret(t *testing.T) {
	cfg := NewServerForTesting()
	cfg.GoogleClientID = "id"
	assert.Empty(t, cfg.OAuthProviders())

	cfg.GoogleClientSecret = "secret"
	cfg.GitHubClientID = "gh"
	cfg.GitHubClientSecret = "gh-secret"
	assert.Equal(t, []string{"google", "github"}, cfg.OAuthProviders())
}

func TestNewClient_FileValuesBelowEnvironment(t *testing.T) {
	t.Setenv("STUDYSYNC_API_URL", "http://api.example:9000")
	unsetEnv(t, "STUDYSYNC_POLL_INTERVAL", "POLL_INTERVAL", "STUDYSYNC_TIMEOUT", "TIMEOUT")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("apiUrl: http://file.example\npollInterval: 5s\n"), 0o600))

	base, err := LoadClientFile(path)
	require.NoError(t, err)

	cfg, err := NewClient(base)
	require.NoError(t, err)
	assert.Equal(t, "http://api.example:9000", cfg.APIURL)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
}

func TestLoadClientFile_Missing(t *testing.T) {
	cfg, err := LoadClientFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &Client{}, cfg)
}
