package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("EPSTEINPULL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("epsteinpull")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".epsteinpull"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("crawl.base_url", cfg.Crawl.BaseURL)
	v.SetDefault("crawl.datasets", cfg.Crawl.Datasets)
	v.SetDefault("crawl.output_dir", cfg.Crawl.OutputDir)
	v.SetDefault("crawl.max_pages", cfg.Crawl.MaxPages)
	v.SetDefault("crawl.per_page_limit", cfg.Crawl.PerPageLimit)
	v.SetDefault("crawl.recycle_interval", cfg.Crawl.RecycleInterval)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.nav_timeout", cfg.Browser.NavTimeout)
	v.SetDefault("browser.idle_timeout", cfg.Browser.IdleTimeout)
	v.SetDefault("browser.request_timeout", cfg.Browser.RequestTimeout)
	v.SetDefault("browser.user_data_dir", cfg.Browser.UserDataDir)

	v.SetDefault("verify.max_attempts", cfg.Verify.MaxAttempts)
	v.SetDefault("verify.attempt_pause", cfg.Verify.AttemptPause)

	v.SetDefault("fetch.max_retries", cfg.Fetch.MaxRetries)
	v.SetDefault("fetch.backoff_base", cfg.Fetch.BackoffBase)
	v.SetDefault("fetch.max_body_size", cfg.Fetch.MaxBodySize)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)
}
