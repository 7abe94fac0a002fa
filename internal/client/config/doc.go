// Package config loads runtime configuration for the checkout CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the marketplace API
//	-t int      per-attempt request timeout (seconds)
//	-w int      maximum requests queued behind a token refresh
//	-d string   path of the SQLite session database
//	-l string   log level: debug, info, warn, error
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "15s"
// or integer nanoseconds. Keys left out keep their default:
//
//	{
//	  "base_url": "http://127.0.0.1:8080",
//	  "request_timeout": "15s",
//	  "refresh_wait_limit": 64,
//	  "session_db": "session.db",
//	  "log_level": "info"
//	}
package config
