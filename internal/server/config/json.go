package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/coursepay/internal/flagx"
	"github.com/dmitrijs2005/coursepay/internal/timex"
)

// JsonConfig is the JSON form of Config. Durations accept "90s" style
// strings or integer nanoseconds.
type JsonConfig struct {
	Addr            string         `json:"addr"`
	SecretKey       string         `json:"secret_key"`
	AccessTokenTTL  timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL timex.Duration `json:"refresh_token_ttl"`
	LogLevel        string         `json:"log_level"`
}

// parseJson overlays Config with the non-zero values from the file named by
// -c/-config. Read or decode errors panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.Addr != "" {
		config.Addr = c.Addr
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenTTL.Duration > 0 {
		config.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.RefreshTokenTTL.Duration > 0 {
		config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
}
