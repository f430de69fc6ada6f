// Package logfiles discovers, reads, and combines the *.log files in the logs folder.
package logfiles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"github.com/olegiv/logreport-ai-go/internal/logging"
)

const (
	// largeFileWarnBytes triggers a non-fatal size warning
	largeFileWarnBytes = 10 * 1024 * 1024

	delimiterWidth = 80

	modifiedLayout = "2006-01-02 15:04:05"
)

// ErrNoLogContent is returned by Combine when no file could be included.
var ErrNoLogContent = errors.New("no log content could be combined")

var delimiter = strings.Repeat("=", delimiterWidth)

// FileMetadata describes one log file at read time.
type FileMetadata struct {
	Name         string
	SizeBytes    int64
	SizeKB       float64
	SizeMB       float64
	LastModified time.Time
	FullPath     string
}

// SkippedFile is a log file left out of the combined content
type SkippedFile struct {
	Name string
	Err  error
}

// Combined is the concatenation of all readable log files with header blocks.
// Skipped and LargeFiles let callers tell the user what was left out or may be slow.
type Combined struct {
	Content    string
	Files      []FileMetadata
	TotalBytes int64
	Skipped    []SkippedFile
	LargeFiles []FileMetadata
}

// FileNames returns the names of the files included in the combined content
func (c *Combined) FileNames() []string {
	names := make([]string, len(c.Files))
	for i, f := range c.Files {
		names[i] = f.Name
	}
	return names
}

// TotalKB returns the combined size of the included files in kilobytes
func (c *Combined) TotalKB() float64 {
	return float64(c.TotalBytes) / 1024
}

// Collector reads the *.log files directly inside one folder. Nothing is cached.
type Collector struct {
	dir string
	log *logging.SecureLogger
}

// NewCollector creates a collector for dir
func NewCollector(dir string, log *logging.SecureLogger) *Collector {
	if log == nil {
		log = logging.Nop()
	}
	return &Collector{dir: dir, log: log}
}

// Dir returns the logs folder
func (c *Collector) Dir() string {
	return c.dir
}

// FolderExists reports whether the logs folder exists
func (c *Collector) FolderExists() bool {
	info, err := os.Stat(c.dir)
	return err == nil && info.IsDir()
}

// List returns the paths of *.log regular files directly inside the folder.
// Subfolders are not searched. A missing or empty folder yields an empty list.
func (c *Collector) List() []string {
	if !c.FolderExists() {
		c.log.Warn().Str("path", c.dir).Msg("Logs folder not found")
		return []string{}
	}

	matches, err := doublestar.Glob(os.DirFS(c.dir), "*.log")
	if err != nil {
		c.log.Warn().Err(err).Str("path", c.dir).Msg("Failed to list log files")
		return []string{}
	}

	paths := make([]string, 0, len(matches))
	for _, name := range matches {
		path := filepath.Join(c.dir, name)
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			continue
		}
		paths = append(paths, path)
	}

	if len(paths) == 0 {
		c.log.Warn().Str("path", c.dir).Msg("No .log files found")
	}

	return paths
}

// Metadata returns size and modification time of a log file
func (c *Collector) Metadata(path string) (*FileMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}

	size := info.Size()
	return &FileMetadata{
		Name:         info.Name(),
		SizeBytes:    size,
		SizeKB:       float64(size) / 1024,
		SizeMB:       float64(size) / 1024 / 1024,
		LastModified: info.ModTime(),
		FullPath:     path,
	}, nil
}

// Read returns the full UTF-8 text of a log file.
// Files above 10 MB are read with a warning; unreadable or non-UTF-8 files fail.
func (c *Collector) Read(path string) (string, error) {
	if info, err := os.Stat(path); err == nil && info.Size() > largeFileWarnBytes {
		c.log.Warn().
			Str("file", filepath.Base(path)).
			Str("size", humanize.IBytes(uint64(info.Size()))).
			Msg("Large log file, analysis may be slow or exceed the model context")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read log file: %w", err)
	}

	if !utf8.Valid(content) {
		return "", fmt.Errorf("log file %s is not valid UTF-8 text", filepath.Base(path))
	}

	return string(content), nil
}

// Combine concatenates every readable log file, each framed by a header block.
// Files whose metadata or content cannot be read are skipped and listed in Skipped.
// When nothing could be included it returns ErrNoLogContent along with the skip list.
func (c *Collector) Combine() (*Combined, error) {
	var b strings.Builder
	combined := &Combined{}

	for _, path := range c.List() {
		meta, err := c.Metadata(path)
		if err != nil {
			c.log.Warn().Err(err).Str("file", filepath.Base(path)).Msg("Skipping log file: metadata unavailable")
			combined.Skipped = append(combined.Skipped, SkippedFile{Name: filepath.Base(path), Err: err})
			continue
		}

		content, err := c.Read(path)
		if err != nil {
			c.log.Warn().Err(err).Str("file", meta.Name).Msg("Skipping log file: content unreadable")
			combined.Skipped = append(combined.Skipped, SkippedFile{Name: meta.Name, Err: err})
			continue
		}
		if meta.SizeBytes > largeFileWarnBytes {
			combined.LargeFiles = append(combined.LargeFiles, *meta)
		}

		writeHeader(&b, meta)
		b.WriteString(content)
		b.WriteString("\n\n")

		combined.Files = append(combined.Files, *meta)
		combined.TotalBytes += meta.SizeBytes
	}

	if len(combined.Files) == 0 {
		return combined, ErrNoLogContent
	}

	combined.Content = b.String()

	c.log.Info().
		Int("files", len(combined.Files)).
		Str("total_size", humanize.IBytes(uint64(combined.TotalBytes))).
		Int("estimated_tokens", EstimateTokens(combined.Content)).
		Msg("Log files combined")

	return combined, nil
}

// writeHeader writes the delimiter block that precedes each file's content
func writeHeader(b *strings.Builder, meta *FileMetadata) {
	b.WriteString(delimiter)
	b.WriteString("\n")
	fmt.Fprintf(b, "FILE: %s\n", meta.Name)
	fmt.Fprintf(b, "SIZE: %.2f KB (%d bytes)\n", meta.SizeKB, meta.SizeBytes)
	fmt.Fprintf(b, "MODIFIED: %s\n", meta.LastModified.Format(modifiedLayout))
	b.WriteString(delimiter)
	b.WriteString("\n")
}

// EstimateTokens estimates the number of tokens in the content.
// Uses the algorithm: max(chars/4, words/0.75)
func EstimateTokens(content string) int {
	chars := len(content)
	words := len(strings.Fields(content))

	charsEstimate := chars / 4
	wordsEstimate := int(float64(words) / 0.75)

	if charsEstimate > wordsEstimate {
		return charsEstimate
	}
	return wordsEstimate
}
