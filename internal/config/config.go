package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for epsteinpull.
type Config struct {
	Crawl   CrawlConfig   `mapstructure:"crawl"   yaml:"crawl"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Verify  VerifyConfig  `mapstructure:"verify"  yaml:"verify"`
	Fetch   FetchConfig   `mapstructure:"fetch"   yaml:"fetch"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CrawlConfig controls the per-dataset crawl loop.
type CrawlConfig struct {
	BaseURL         string        `mapstructure:"base_url"          yaml:"base_url"`
	Datasets        []string      `mapstructure:"datasets"          yaml:"datasets"`
	OutputDir       string        `mapstructure:"output_dir"        yaml:"output_dir"`
	MaxPages        int           `mapstructure:"max_pages"         yaml:"max_pages"`
	PerPageLimit    int           `mapstructure:"per_page_limit"    yaml:"per_page_limit"`
	RecycleInterval time.Duration `mapstructure:"recycle_interval"  yaml:"recycle_interval"`
}

// BrowserConfig controls the Chromium session.
type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless"        yaml:"headless"`
	Stealth        bool          `mapstructure:"stealth"         yaml:"stealth"`
	NavTimeout     time.Duration `mapstructure:"nav_timeout"     yaml:"nav_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"    yaml:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	UserDataDir    string        `mapstructure:"user_data_dir"   yaml:"user_data_dir"`
}

// VerifyConfig controls age/bot gate clearing.
type VerifyConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"  yaml:"max_attempts"`
	AttemptPause time.Duration `mapstructure:"attempt_pause" yaml:"attempt_pause"`
}

// FetchConfig controls file retrieval retries.
type FetchConfig struct {
	MaxRetries  int           `mapstructure:"max_retries"  yaml:"max_retries"`
	BackoffBase time.Duration `mapstructure:"backoff_base" yaml:"backoff_base"`
	MaxBodySize int64         `mapstructure:"max_body_size" yaml:"max_body_size"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Crawl: CrawlConfig{
			BaseURL:         "https://www.justice.gov/epstein/doj-disclosures",
			Datasets:        []string{"data-set-8-files"},
			OutputDir:       "./output",
			MaxPages:        0,
			PerPageLimit:    0,
			RecycleInterval: 1 * time.Minute,
		},
		Browser: BrowserConfig{
			Headless:       true,
			Stealth:        true,
			NavTimeout:     30 * time.Second,
			IdleTimeout:    10 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Verify: VerifyConfig{
			MaxAttempts:  3,
			AttemptPause: 1 * time.Second,
		},
		Fetch: FetchConfig{
			MaxRetries:  3,
			BackoffBase: 1 * time.Second,
			MaxBodySize: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
