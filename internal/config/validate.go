package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Crawl.BaseURL); err != nil {
		return fmt.Errorf("crawl.base_url: %w", err)
	}
	if len(cfg.Crawl.Datasets) == 0 {
		return fmt.Errorf("crawl.datasets must name at least one dataset path")
	}
	if cfg.Crawl.MaxPages < 0 {
		return fmt.Errorf("crawl.max_pages must be >= 0, got %d", cfg.Crawl.MaxPages)
	}
	if cfg.Crawl.PerPageLimit < 0 {
		return fmt.Errorf("crawl.per_page_limit must be >= 0, got %d", cfg.Crawl.PerPageLimit)
	}
	if cfg.Crawl.RecycleInterval < 0 {
		return fmt.Errorf("crawl.recycle_interval must be >= 0")
	}

	if cfg.Browser.NavTimeout <= 0 {
		return fmt.Errorf("browser.nav_timeout must be > 0")
	}
	if cfg.Browser.IdleTimeout <= 0 {
		return fmt.Errorf("browser.idle_timeout must be > 0")
	}
	if cfg.Browser.RequestTimeout <= 0 {
		return fmt.Errorf("browser.request_timeout must be > 0")
	}

	if cfg.Verify.MaxAttempts < 1 {
		return fmt.Errorf("verify.max_attempts must be >= 1, got %d", cfg.Verify.MaxAttempts)
	}
	if cfg.Verify.AttemptPause < 0 {
		return fmt.Errorf("verify.attempt_pause must be >= 0")
	}

	if cfg.Fetch.MaxRetries < 1 {
		return fmt.Errorf("fetch.max_retries must be >= 1, got %d", cfg.Fetch.MaxRetries)
	}
	if cfg.Fetch.BackoffBase <= 0 {
		return fmt.Errorf("fetch.backoff_base must be > 0")
	}
	if cfg.Fetch.MaxBodySize < 0 {
		return fmt.Errorf("fetch.max_body_size must be >= 0")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks if a URL string is usable as a crawl root.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
