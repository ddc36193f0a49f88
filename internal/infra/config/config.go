// Package config provides configuration loading from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Spotify SpotifyConfig `yaml:"spotify"`
	Sync    SyncConfig    `yaml:"sync"`
	Cache   CacheConfig   `yaml:"cache"`
	Secrets SecretsConfig `yaml:"secrets"`
	Log     LogConfig     `yaml:"log"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	CallbackPort int    `yaml:"callback_port" default:"8888" validate:"gte=1,lte=65535"`
	PageLimit    int    `yaml:"page_limit" default:"100" validate:"gte=1,lte=100"`
}

// SyncConfig represents sync execution configuration.
type SyncConfig struct {
	// PacingMs is the delay between consecutive remote mutation calls
	// during a sync, kept above zero to respect API rate limits.
	PacingMs int `yaml:"pacing_ms" default:"100" validate:"gte=0,lte=5000"`
}

// CacheConfig represents album-art cache configuration.
type CacheConfig struct {
	Dir        string `yaml:"dir"` // empty selects the XDG cache dir
	MaxEntries int    `yaml:"max_entries" default:"256" validate:"gte=1"`
}

// SecretsConfig represents secret store configuration.
type SecretsConfig struct {
	Dir string `yaml:"dir"` // empty selects the XDG state dir
}

// LogConfig represents logger configuration.
type LogConfig struct {
	Output string `yaml:"output" default:"stderr"`
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	File   string `yaml:"file"`
}

// Load loads configuration from a YAML file. Environment variables take
// precedence over file values for credentials. A missing file is fine
// when the credentials arrive via environment.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case os.IsNotExist(err):
		// Defaults plus environment only.
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// RedirectURL returns the OAuth callback URL for the configured port.
func (c *Config) RedirectURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/callback", c.Spotify.CallbackPort)
}

// Pacing returns the sync pacing as a duration.
func (c *Config) Pacing() time.Duration {
	return time.Duration(c.Sync.PacingMs) * time.Millisecond
}
