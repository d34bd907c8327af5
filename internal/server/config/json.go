package config

import (
	"encoding/json"
	"os"

	"github.com/vposukhov/authvault/internal/flagx"
	"github.com/vposukhov/authvault/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, any fields that were set are
// copied into the runtime Config, which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP     string         `json:"endpoint_addr_http"`
	DatabaseDSN          string         `json:"database_dsn"`
	SecretKey            string         `json:"secret_key"`
	AccessTokenValidity  timex.Duration `json:"access_token_validity"`
	RefreshTokenValidity timex.Duration `json:"refresh_token_validity"`
	ResetTokenValidity   timex.Duration `json:"reset_token_validity"`
	RateLimitMaxAttempts int            `json:"rate_limit_max_attempts"`
	RateLimitWindow      timex.Duration `json:"rate_limit_window"`
	AttemptRetention     timex.Duration `json:"attempt_retention"`
	CleanupInterval      timex.Duration `json:"cleanup_interval"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; if neither
// is set, no JSON file is loaded. Fields absent from the file keep their
// current (default) values. If the file cannot be read or contains invalid
// JSON, the function panics.
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

	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenValidity.Duration != 0 {
		config.AccessTokenValidity = c.AccessTokenValidity.Duration
	}
	if c.RefreshTokenValidity.Duration != 0 {
		config.RefreshTokenValidity = c.RefreshTokenValidity.Duration
	}
	if c.ResetTokenValidity.Duration != 0 {
		config.ResetTokenValidity = c.ResetTokenValidity.Duration
	}
	if c.RateLimitMaxAttempts != 0 {
		config.RateLimitMaxAttempts = c.RateLimitMaxAttempts
	}
	if c.RateLimitWindow.Duration != 0 {
		config.RateLimitWindow = c.RateLimitWindow.Duration
	}
	if c.AttemptRetention.Duration != 0 {
		config.AttemptRetention = c.AttemptRetention.Duration
	}
	if c.CleanupInterval.Duration != 0 {
		config.CleanupInterval = c.CleanupInterval.Duration
	}
}
