// Package sink is the filesystem collaborator: downloaded files, debug
// snapshots, and the dead-letter log. Snapshot and dead-letter writes
// are best-effort; their failures are logged and never abort the crawl.
package sink

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Clock lets tests pin timestamps in generated filenames.
type Clock func() time.Time

// Sink writes crawl outputs under a run directory. Downloaded files land
// in the parent of the run directory; snapshots stay inside it so a
// re-run against a fresh run directory still sees previous downloads.
type Sink struct {
	runDir string
	outDir string
	now    Clock
	logger *slog.Logger
}

// New creates a Sink rooted at runDir, creating the directory if needed.
func New(runDir string, logger *slog.Logger) (*Sink, error) {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &Sink{
		runDir: runDir,
		outDir: filepath.Dir(runDir),
		now:    time.Now,
		logger: logger.With("component", "sink"),
	}, nil
}

// WithClock overrides the timestamp source. Used by tests.
func (s *Sink) WithClock(now Clock) *Sink {
	s.now = now
	return s
}

// RunDir returns the run directory path.
func (s *Sink) RunDir() string { return s.runDir }

// SaveFile persists downloaded content next to previous runs' files.
func (s *Sink) SaveFile(filename string, content []byte) error {
	outPath := filepath.Join(s.outDir, filename)
	if err := os.WriteFile(outPath, content, 0o644); err != nil {
		return fmt.Errorf("save %s: %w", filename, err)
	}
	s.logger.Info("file saved", "path", outPath, "size", len(content))
	return nil
}

// AlreadySaved reports whether a file of this name exists from any run.
// Used to keep re-runs idempotent.
func (s *Sink) AlreadySaved(filename string) bool {
	_, err := os.Stat(filepath.Join(s.outDir, filename))
	return err == nil
}

// AppendDeadLetter records a permanently failed URL. The dead-letter
// file is append-only and shared across runs.
func (s *Sink) AppendDeadLetter(url string) {
	path := filepath.Join(s.outDir, "dead_letter.txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Warn("dead letter open failed", "url", url, "error", err)
		return
	}
	defer f.Close()

	line := fmt.Sprintf("%s - %s\n", s.now().Format("2006-01-02 15:04:05"), url)
	if _, err := f.WriteString(line); err != nil {
		s.logger.Warn("dead letter write failed", "url", url, "error", err)
		return
	}
	s.logger.Debug("dead letter appended", "url", url)
}

// WriteSnapshot dumps serialized document content for human debugging.
// Never read back by the crawler.
func (s *Sink) WriteSnapshot(basename, event, html string) {
	name := fmt.Sprintf("%s_snapshot_%s_%s.html", s.now().Format("20060102_150405"), basename, event)
	path := filepath.Join(s.runDir, name)
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		s.logger.Warn("snapshot write failed", "event", event, "error", err)
		return
	}
	s.logger.Debug("snapshot saved", "event", event, "path", path)
}
