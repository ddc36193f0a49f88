package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
spotify:
  client_id: id-1
  client_secret: secret-1
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "id-1", cfg.Spotify.ClientID)
	assert.Equal(t, 8888, cfg.Spotify.CallbackPort)
	assert.Equal(t, 100, cfg.Spotify.PageLimit)
	assert.Equal(t, 100, cfg.Sync.PacingMs)
	assert.Equal(t, 256, cfg.Cache.MaxEntries)
	assert.Equal(t, "stderr", cfg.Log.Output)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ExplicitValuesWin(t *testing.T) {
	path := writeConfig(t, `
spotify:
  client_id: id-1
  client_secret: secret-1
  callback_port: 9999
  page_limit: 50
sync:
  pacing_ms: 250
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Spotify.CallbackPort)
	assert.Equal(t, 50, cfg.Spotify.PageLimit)
	assert.Equal(t, 250, cfg.Sync.PacingMs)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
spotify:
  client_id: file-id
  client_secret: file-secret
`)
	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-id", cfg.Spotify.ClientID)
	assert.Equal(t, "env-secret", cfg.Spotify.ClientSecret)
}

func TestLoad_MissingFileWithEnv(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-id", cfg.Spotify.ClientID)
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "page limit above API maximum",
			yaml: `
spotify:
  client_id: id
  client_secret: secret
  page_limit: 101
`,
		},
		{
			name: "negative pacing",
			yaml: `
spotify:
  client_id: id
  client_secret: secret
sync:
  pacing_ms: -1
`,
		},
		{
			name: "unknown log level",
			yaml: `
spotify:
  client_id: id
  client_secret: secret
log:
  level: loud
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "spotify: [nope"))
	assert.Error(t, err)
}

func TestRedirectURL(t *testing.T) {
	cfg := &Config{}
	cfg.Spotify.CallbackPort = 8888
	assert.Equal(t, "http://127.0.0.1:8888/callback", cfg.RedirectURL())
}

func TestPacing(t *testing.T) {
	cfg := &Config{}
	cfg.Sync.PacingMs = 250
	assert.Equal(t, 250*time.Millisecond, cfg.Pacing())
}
