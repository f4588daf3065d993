// Package config provides Viper-based configuration management for mangas
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete mangas configuration
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	List     ListConfig     `mapstructure:"list"`
	Images   ImagesConfig   `mapstructure:"images"`
	Viewport ViewportConfig `mapstructure:"viewport"`
	History  HistoryConfig  `mapstructure:"history"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// APIConfig points at the reading site's JSON API
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ListConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// ImagesConfig controls page image loading
type ImagesConfig struct {
	FallbackBaseURL string  `mapstructure:"fallback_base_url"`
	RatePerSecond   float64 `mapstructure:"rate_per_second"`
	Concurrency     int     `mapstructure:"concurrency"`
}

// ViewportConfig tunes which page counts as the one being read
type ViewportConfig struct {
	Threshold float64 `mapstructure:"threshold"`
	Margin    float64 `mapstructure:"margin"`
}

type HistoryConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		// Search paths for .mangas.yaml
		v.SetConfigName(".mangas")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/mangas")
	}

	// MANGAS_API_BASE_URL overrides api.base_url
	v.SetEnvPrefix("MANGAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:3000/api")
	v.SetDefault("api.timeout", 15*time.Second)

	v.SetDefault("list.page_size", 18)

	v.SetDefault("images.fallback_base_url", "")
	v.SetDefault("images.rate_per_second", 4.0)
	v.SetDefault("images.concurrency", 3)

	v.SetDefault("viewport.threshold", 0.5)
	v.SetDefault("viewport.margin", 0.35)

	v.SetDefault("history.db_path", defaultHistoryPath())

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".mangas", "history.db")
	}
	return filepath.Join(home, ".mangas", "history.db")
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if err := checkURL("api.base_url", cfg.API.BaseURL); err != nil {
		return err
	}
	if cfg.Images.FallbackBaseURL != "" {
		if err := checkURL("images.fallback_base_url", cfg.Images.FallbackBaseURL); err != nil {
			return err
		}
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative: %s", cfg.API.Timeout)
	}
	if cfg.List.PageSize <= 0 {
		return fmt.Errorf("list.page_size must be positive: %d", cfg.List.PageSize)
	}
	if cfg.Images.Concurrency <= 0 {
		return fmt.Errorf("images.concurrency must be positive: %d", cfg.Images.Concurrency)
	}
	if cfg.Images.RatePerSecond < 0 {
		return fmt.Errorf("images.rate_per_second must not be negative: %g", cfg.Images.RatePerSecond)
	}
	if cfg.Viewport.Threshold <= 0 || cfg.Viewport.Threshold > 1 {
		return fmt.Errorf("viewport.threshold must be in (0, 1]: %g", cfg.Viewport.Threshold)
	}
	if cfg.Viewport.Margin < 0 || cfg.Viewport.Margin >= 0.5 {
		return fmt.Errorf("viewport.margin must be in [0, 0.5): %g", cfg.Viewport.Margin)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (must be text or json)", cfg.Logging.Format)
	}

	return nil
}

func checkURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL: %q", key, raw)
	}
	return nil
}
