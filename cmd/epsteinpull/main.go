package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Linghan9/epsteinFilePull/internal/browser"
	"github.com/Linghan9/epsteinFilePull/internal/config"
	"github.com/Linghan9/epsteinFilePull/internal/crawl"
	"github.com/Linghan9/epsteinFilePull/internal/fetch"
	"github.com/Linghan9/epsteinFilePull/internal/paginate"
	"github.com/Linghan9/epsteinFilePull/internal/sink"
	"github.com/Linghan9/epsteinFilePull/internal/verify"
)

var (
	cfgFile      string
	verbose      bool
	datasets     string
	baseURL      string
	dojSection   string
	outputDir    string
	maxPages     int
	perPageLimit int
	navTimeout   string
	headless     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "epsteinpull",
		Short: "epsteinpull — DOJ disclosure archiver",
		Long: `epsteinpull walks the Department of Justice Epstein disclosure
catalog with a real browser, clears the age and bot gates the site puts
in front of it, and saves every released document locally.

Runs are resumable: files already present in the output directory are
skipped, and files that could not be fetched are recorded in a dead
letter log for a later pass.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(pullCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// pullCmd creates the "pull" subcommand.
func pullCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Crawl the configured datasets and download their files",
		RunE:  runPull,
	}

	cmd.Flags().StringVar(&datasets, "datasets", "", "comma-separated dataset paths (e.g. data-set-8-files)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "disclosure catalog root URL")
	cmd.Flags().StringVar(&dojSection, "doj-section", "", "DOJ site section under /epstein/ (default doj-disclosures)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	cmd.Flags().IntVar(&maxPages, "max-pages", -1, "maximum catalog pages per dataset (0 = unlimited)")
	cmd.Flags().IntVar(&perPageLimit, "per-page-limit", -1, "maximum files fetched per catalog page (0 = unlimited)")
	cmd.Flags().StringVar(&navTimeout, "timeout", "", "page navigation timeout (e.g. 45s)")
	cmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")

	return cmd
}

func runPull(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cmd, cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := setupLogger(&cfg.Logging, verbose)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}

	runDir := filepath.Join(cfg.Crawl.OutputDir, "run_"+time.Now().Format("20060102_150405"))
	out, err := sink.New(runDir, logger)
	if err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	logger.Info("starting pull",
		"base_url", cfg.Crawl.BaseURL,
		"datasets", cfg.Crawl.Datasets,
		"run_dir", out.RunDir(),
	)

	oracle := verify.NewOracle(logger)
	probes := verify.NewProbes(cfg.Browser.IdleTimeout, out, logger)
	verifier := verify.NewVerifier(oracle, probes,
		cfg.Verify.MaxAttempts, cfg.Verify.AttemptPause,
		cfg.Browser.IdleTimeout, out, logger)
	fetcher := fetch.New(probes, cfg.Fetch.MaxRetries, cfg.Fetch.BackoffBase, logger)
	walker := paginate.NewWalker(verifier, out, cfg.Browser.IdleTimeout, logger)
	recycler := crawl.NewRecycleScheduler(cfg.Crawl.RecycleInterval, nil)

	sessions := func() (crawl.Session, error) {
		return browser.NewSession(&cfg.Browser, logger,
			browser.WithMaxBodySize(cfg.Fetch.MaxBodySize))
	}

	crawler := crawl.New(&cfg.Crawl, sessions, verifier, fetcher, walker, recycler, out, logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down...", "signal", sig)
		cancel()
	}()

	start := time.Now()
	if err := crawler.Run(ctx); err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	logger.Info("pull complete", "duration", time.Since(start).Round(time.Second))
	return nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("epsteinpull %s\n", config.Version)
		},
	}
}

// setupLogger builds the logger from the logging config. --verbose
// overrides the configured level to debug.
func setupLogger(cfg *config.LoggingConfig, verbose bool) (*slog.Logger, error) {
	w, err := logWriter(cfg.Output)
	if err != nil {
		return nil, err
	}
	return slog.New(newLogHandler(cfg, verbose, w)), nil
}

// logWriter resolves the configured log destination. Anything other
// than stderr/stdout is treated as a file path, opened for append.
func logWriter(output string) (io.Writer, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		return f, nil
	}
}

func newLogHandler(cfg *config.LoggingConfig, verbose bool, w io.Writer) slog.Handler {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// applyCLIOverrides applies command-line flag values to the config.
// Only flags the user actually set override the config file.
func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) {
	if datasets != "" {
		var paths []string
		for _, d := range strings.Split(datasets, ",") {
			if d = strings.TrimSpace(d); d != "" {
				paths = append(paths, d)
			}
		}
		cfg.Crawl.Datasets = paths
	}
	if baseURL != "" {
		cfg.Crawl.BaseURL = baseURL
	} else if dojSection != "" {
		cfg.Crawl.BaseURL = "https://www.justice.gov/epstein/" + strings.Trim(dojSection, "/")
	}
	if outputDir != "" {
		cfg.Crawl.OutputDir = outputDir
	}
	if maxPages >= 0 {
		cfg.Crawl.MaxPages = maxPages
	}
	if perPageLimit >= 0 {
		cfg.Crawl.PerPageLimit = perPageLimit
	}
	if navTimeout != "" {
		if d, err := time.ParseDuration(navTimeout); err == nil {
			cfg.Browser.NavTimeout = d
		}
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = headless
	}
}
