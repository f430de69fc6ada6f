// Package report renders analysis results as markdown and saves them to the reports folder.
package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olegiv/logreport-ai-go/internal/logging"
)

const (
	// DefaultSummary is used when the caller provides a blank summary
	DefaultSummary = "Log analysis completed successfully."

	fileNameLayout  = "2006-01-02_150405"
	generatedLayout = "2006-01-02 15:04:05"

	// maxCollisionSuffix bounds the _2, _3, ... search for a free file name
	maxCollisionSuffix = 1000
)

// Writer builds and saves markdown reports.
type Writer struct {
	dir string
	now func() time.Time
	log *logging.SecureLogger
}

// NewWriter creates a report writer for dir
func NewWriter(dir string, log *logging.SecureLogger) *Writer {
	if log == nil {
		log = logging.Nop()
	}
	return &Writer{dir: dir, now: time.Now, log: log}
}

// WithClock replaces the time source used for file names and the Generated line
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// Dir returns the reports folder
func (w *Writer) Dir() string {
	return w.dir
}

// FolderExists reports whether the reports folder exists
func (w *Writer) FolderExists() bool {
	info, err := os.Stat(w.dir)
	return err == nil && info.IsDir()
}

// GenerateFileName returns "Report_yyyy-MM-dd_HHmmss.md" for the current local time
func (w *Writer) GenerateFileName() string {
	return "Report_" + w.now().Format(fileNameLayout) + ".md"
}

// FormatSection renders a markdown header of level '#' characters, a blank line, and content.
func FormatSection(header, content string, level int) string {
	if level < 1 {
		level = 2
	}
	return strings.Repeat("#", level) + " " + header + "\n\n" + content + "\n"
}

// Build assembles the full report. Sections always appear in the same order.
func (w *Writer) Build(analysis string, fileNames []string, summary string) string {
	if strings.TrimSpace(summary) == "" {
		summary = DefaultSummary
	}

	var sources strings.Builder
	for i, name := range fileNames {
		if i > 0 {
			sources.WriteString("\n")
		}
		sources.WriteString("- " + name)
	}

	var b strings.Builder
	b.WriteString("# Log Analysis Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", w.now().Format(generatedLayout))
	b.WriteString(FormatSection("Summary", summary, 2))
	b.WriteString("\n")
	b.WriteString(FormatSection("Log Sources Analyzed", sources.String(), 2))
	b.WriteString("\n")
	b.WriteString(FormatSection("Detailed Analysis", analysis, 2))
	return b.String()
}

// Save writes content to the reports folder, creating it if needed, and returns the path written.
// An empty customFileName uses GenerateFileName. Existing files are never overwritten:
// a taken name gets a _2, _3, ... suffix before its extension.
func (w *Writer) Save(content, customFileName string) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports folder: %w", err)
	}

	name := customFileName
	if strings.TrimSpace(name) == "" {
		name = w.GenerateFileName()
	}
	if filepath.Base(name) != name {
		return "", fmt.Errorf("invalid report file name %q", name)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for n := 1; n <= maxCollisionSuffix; n++ {
		candidate := name
		if n > 1 {
			candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		path := filepath.Join(w.dir, candidate)

		err := writeExclusive(path, content)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to write report: %w", err)
		}

		w.log.Info().
			Str("path", path).
			Int("bytes", len(content)).
			Msg("Report saved")
		return path, nil
	}

	return "", fmt.Errorf("failed to write report: no free file name for %q", name)
}

// writeExclusive creates path and writes content, failing with fs.ErrExist if it is already present
func writeExclusive(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}
