// Package config provides engine-level options, sourced from defaults,
// an optional YAML file, and environment variables, trimmed from the
// teacher's CLI-oriented viper singleton (internal/config/config.go) down
// to the handful of options an embedded engine actually needs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Options holds the resolved engine configuration.
type Options struct {
	DatabasePath   string
	BusyTimeout    time.Duration
	ForceInit      bool
	LogPath        string
	LogMaxSizeMB   int
	LogMaxBackups  int
}

const envPrefix = "PMTOOL"

// Load resolves Options from defaults, an optional YAML file at
// configPath (skipped if empty or missing), and PMTOOL_-prefixed
// environment variables, in that precedence order (env overrides file
// overrides default).
func Load(configPath string) (*Options, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("database_path", "pmtool.db")
	v.SetDefault("busy_timeout_ms", 5000)
	v.SetDefault("force_init", false)
	v.SetDefault("log_path", "pmtool.log")
	v.SetDefault("log_max_size_mb", 10)
	v.SetDefault("log_max_backups", 3)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if ext := filepath.Ext(configPath); len(ext) > 1 {
				v.SetConfigType(ext[1:])
			}
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
			}
		}
	}

	return &Options{
		DatabasePath:  v.GetString("database_path"),
		BusyTimeout:   time.Duration(v.GetInt("busy_timeout_ms")) * time.Millisecond,
		ForceInit:     v.GetBool("force_init"),
		LogPath:       v.GetString("log_path"),
		LogMaxSizeMB:  v.GetInt("log_max_size_mb"),
		LogMaxBackups: v.GetInt("log_max_backups"),
	}, nil
}

// Default returns Options populated purely from defaults, for callers
// (like cmd/demo) that have no config file or environment to read.
func Default() *Options {
	opts, _ := Load("")
	return opts
}
