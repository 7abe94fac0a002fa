// Package config handles configuration for the payments sandbox server,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the sandbox server.
//
// Fields:
//   - Addr: HTTP bind address.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use the default outside local testing.
//   - AccessTokenTTL / RefreshTokenTTL: token lifetimes.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	Addr            string
	SecretKey       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	LogLevel        string
}

// LoadDefaults populates Config with development defaults. The short access
// token lifetime makes the client's refresh path easy to exercise.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.SecretKey = "secretKey"
	c.AccessTokenTTL = 1 * time.Minute
	c.RefreshTokenTTL = 60 * time.Minute
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
