package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Linghan9/epsteinFilePull/internal/config"
)

func TestNewLogHandlerFormatSelection(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.LoggingConfig{Level: "info", Format: "json"}

	slog.New(newLogHandler(cfg, false, &buf)).Info("hello", "k", "v")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("format json must emit JSON records, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "hello" || record["k"] != "v" {
		t.Errorf("unexpected record: %v", record)
	}

	buf.Reset()
	cfg.Format = "text"
	slog.New(newLogHandler(cfg, false, &buf)).Info("hello")
	if json.Unmarshal(buf.Bytes(), &map[string]any{}) == nil {
		t.Errorf("format text must not emit JSON, got %q", buf.String())
	}
}

func TestNewLogHandlerLevelSelection(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.LoggingConfig{Level: "error", Format: "text"}

	logger := slog.New(newLogHandler(cfg, false, &buf))
	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("level error must suppress info logs, got %q", buf.String())
	}
	logger.Error("loud")
	if buf.Len() == 0 {
		t.Error("level error must pass error logs")
	}
}

func TestNewLogHandlerVerboseOverridesLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.LoggingConfig{Level: "error", Format: "text"}

	slog.New(newLogHandler(cfg, true, &buf)).Debug("trace me")
	if !strings.Contains(buf.String(), "trace me") {
		t.Errorf("verbose must force debug level, got %q", buf.String())
	}
}

func TestLogWriterDestinations(t *testing.T) {
	if w, err := logWriter(""); err != nil || w != os.Stderr {
		t.Errorf("empty output must default to stderr, got %v/%v", w, err)
	}
	if w, err := logWriter("stdout"); err != nil || w != os.Stdout {
		t.Errorf("expected stdout writer, got %v/%v", w, err)
	}

	path := filepath.Join(t.TempDir(), "run.log")
	w, err := logWriter(path)
	if err != nil {
		t.Fatalf("file output failed: %v", err)
	}
	if _, err := w.Write([]byte("line\n")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "line\n" {
		t.Errorf("expected log line on disk, got %q, %v", got, err)
	}
}

func TestSetupLoggerUsesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	cfg := &config.LoggingConfig{Level: "info", Format: "json", Output: path}

	logger, err := setupLogger(cfg, false)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	logger.Info("configured")

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(raw), &record); err != nil {
		t.Fatalf("expected JSON record in %q: %v", raw, err)
	}
	if record["msg"] != "configured" {
		t.Errorf("unexpected record: %v", record)
	}
}
