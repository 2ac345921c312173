// Package config provides centralized configuration management for the
// message board server.
//
// Configuration follows a layered hierarchy, highest priority first:
//
//  1. CLI flags (bound through Cobra/pflag)
//  2. Environment variables (MSGBOARD_*)
//  3. An optional config file (YAML), read by Viper
//  4. Built-in defaults
//
// If the store root or its entries/users/user_list layout is missing, the
// server creates it at startup (store.Open) before serving requests.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the server.
type Config struct {
	// Port is the TCP port the server listens on.
	// Environment: MSGBOARD_PORT
	// Default: 8000
	Port int `mapstructure:"port"`

	// StoreRoot is the root directory of the on-disk content store.
	// Environment: MSGBOARD_STORE_ROOT
	// Default: "./data"
	StoreRoot string `mapstructure:"store_root"`

	// Workers is the size of the fixed worker pool.
	// Environment: MSGBOARD_WORKERS
	// Default: 4
	Workers int `mapstructure:"workers"`

	// LogLevel is the minimum level the logger emits.
	// Environment: MSGBOARD_LOG_LEVEL
	// Default: "info"
	LogLevel string `mapstructure:"log_level"`

	// ShutdownTimeout is resolved like the other settings, but no shutdown
	// path reads it: on SIGINT/SIGTERM messageboardd cancels the pipeline
	// and waits for it to return with no time bound.
	// Environment: MSGBOARD_SHUTDOWN_TIMEOUT
	// Default: 10s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Defaults returns a Config populated with the built-in defaults.
func Defaults() Config {
	return Config{
		Port:            8000,
		StoreRoot:       "./data",
		Workers:         4,
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load resolves configuration from the config file (if present), environment
// variables, and the already-applied CLI flag values in v, in that order of
// increasing priority.
//
// configFile may be empty, in which case the default search path
// ($XDG_CONFIG_HOME/message_board/config.yaml, falling back to
// ~/.config/message_board/config.yaml) is used if present. A missing file is
// not an error.
func Load(v *viper.Viper, configFile string) (Config, error) {
	cfg := Defaults()
	v.SetDefault("port", cfg.Port)
	v.SetDefault("store_root", cfg.StoreRoot)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)

	v.SetEnvPrefix("MSGBOARD")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// defaultConfigDir returns "~/.config/message_board", preferring
// XDG_CONFIG_HOME when set.
func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "message_board")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/message_board"
	}
	return filepath.Join(home, ".config", "message_board")
}
