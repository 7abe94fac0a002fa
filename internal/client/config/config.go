package config

import (
	"time"

	"github.com/dmitrijs2005/coursepay/internal/client/api"
)

// Config holds runtime settings for the checkout CLI.
type Config struct {
	BaseURL          string
	RequestTimeout   time.Duration
	RefreshWaitLimit int
	SessionDB        string
	LogLevel         string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://127.0.0.1:8080"
	c.RequestTimeout = api.DefaultTimeout
	c.RefreshWaitLimit = api.DefaultWaitLimit
	c.SessionDB = "session.db"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
