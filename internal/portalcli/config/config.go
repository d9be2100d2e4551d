// Package config holds the runtime settings for the portal CLI and loads
// them from defaults, an optional JSON file, and command-line flags, in that
// order of precedence.
package config

import (
	"time"

	"github.com/talenorix/candidate-portal/internal/backend"
	"github.com/talenorix/candidate-portal/internal/localstate"
)

// Config holds runtime settings for the portal CLI.
type Config struct {
	// BaseURL is the root of the hosted backend.
	BaseURL string
	// AnonKey is the public API key sent with every request.
	AnonKey string
	// HTTPTimeout bounds individual backend requests.
	HTTPTimeout time.Duration
	// ReadyTimeout bounds the startup readiness handshake.
	ReadyTimeout time.Duration
	// StateDir is where the CLI persists local UI state.
	StateDir string

	Storage backend.StorageConfig
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://127.0.0.1:8085"
	c.AnonKey = ""
	c.HTTPTimeout = 10 * time.Second
	c.ReadyTimeout = 5 * time.Second
	c.StateDir = localstate.DefaultDir()
	c.Storage = backend.StorageConfig{Region: "us-east-1"}
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
