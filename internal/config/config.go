// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

// Package config loads and validates the Brainbase configuration.
package config

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	bberr "github.com/brainbase-dev/brainbase/pkg/errors"
)

// Config is the top-level Brainbase configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig controls how the HTTP server listens.
type ServerConfig struct {
	Listen           string   `mapstructure:"listen"`
	CORSOrigins      []string `mapstructure:"cors_origins"`
	ReadTimeoutSecs  int      `mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs int      `mapstructure:"write_timeout_secs"`
}

// StorageConfig locates the graph database.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig selects how caller identity is established.
// AllowInsecureHeaders trusts the x-brainbase-* request headers and must
// stay off unless an authenticating proxy owns those headers.
type AuthConfig struct {
	AllowInsecureHeaders bool `mapstructure:"allow_insecure_headers"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix BRAINBASE_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.listen", "127.0.0.1:8787")
	v.SetDefault("server.read_timeout_secs", 30)
	v.SetDefault("server.write_timeout_secs", 60)
	v.SetDefault("storage.path", "brainbase.db")
	v.SetDefault("auth.allow_insecure_headers", false)
	v.SetDefault("log.level", "info")

	// Environment
	v.SetEnvPrefix("BRAINBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, bberr.Wrapf(err, bberr.CodeConfigInvalid, "reading config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, bberr.Wrap(err, bberr.CodeConfigInvalid, "unmarshalling config")
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, bberr.Wrap(errors.Join(errs...), bberr.CodeConfigInvalid, "validating config")
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors, collecting all
// issues rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)

	if c.Storage.Path == "" {
		errs = append(errs, bberr.New(bberr.CodeConfigInvalid, "config: storage.path must not be empty"))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, bberr.Errorf(bberr.CodeConfigInvalid,
			"config: log.level must be one of [debug, info, warn, error], got %q", c.Log.Level))
	}

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, bberr.New(bberr.CodeConfigInvalid, "config: server.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, bberr.Errorf(bberr.CodeConfigInvalid,
			"config: server.listen must be a valid host:port address, got %q", c.Server.Listen))
		return errs
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, bberr.Errorf(bberr.CodeConfigInvalid,
			"config: server.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, bberr.Errorf(bberr.CodeConfigInvalid,
			"config: server.listen port must be between 1 and 65535, got %d", port))
	}

	if c.Server.ReadTimeoutSecs < 0 || c.Server.WriteTimeoutSecs < 0 {
		errs = append(errs, bberr.New(bberr.CodeConfigInvalid, "config: server timeouts must not be negative"))
	}

	return errs
}
