// Package config owns hornet's configuration directory and the settings
// file read through viper.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the user's hornet configuration.
type Config struct {
	Theme              string `json:"theme" mapstructure:"theme"`
	CollectionsDir     string `json:"collections_dir" mapstructure:"collections_dir"`
	DefaultEnvironment string `json:"default_environment" mapstructure:"default_environment"`
	RequestTimeoutSecs int    `json:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	HistoryLimit       int    `json:"history_limit" mapstructure:"history_limit"`
}

// Dir returns hornet's configuration directory, creating nothing.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(base, "hornet"), nil
}

// HistoryPath returns the execution log location inside the config dir.
func HistoryPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.sqlite"), nil
}

// Initialize creates the hornet folder and default files on first run.
// Safe to call on every start; an existing folder is left alone apart
// from ensuring the collections directory exists.
func Initialize() error {
	dir, err := Dir()
	if err != nil {
		return err
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Initializing %s for the first time...\n", dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config folder: %w", err)
		}
		if err := writeDefaultConfig(dir); err != nil {
			return err
		}
	}

	cfg, err := Load()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.CollectionsDir, 0755); err != nil {
		return fmt.Errorf("create collections folder: %w", err)
	}
	return nil
}

func writeDefaultConfig(dir string) error {
	cfg := Config{
		Theme:              "dark",
		CollectionsDir:     filepath.Join(dir, "collections"),
		DefaultEnvironment: "dev",
		RequestTimeoutSecs: 30,
		HistoryLimit:       50,
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// SetupViper points viper at the config file. An explicit path wins
// over the default location. Called from cobra.OnInitialize.
func SetupViper(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if dir, err := Dir(); err == nil {
			viper.AddConfigPath(dir)
		}
		viper.SetConfigType("json")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("hornet")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// Load reads the current settings with defaults filled in for anything
// the file does not set.
func Load() (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Config{}, err
	}
	viper.SetDefault("theme", "dark")
	viper.SetDefault("collections_dir", filepath.Join(dir, "collections"))
	viper.SetDefault("default_environment", "dev")
	viper.SetDefault("request_timeout_secs", 30)
	viper.SetDefault("history_limit", 50)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return cfg, nil
}
