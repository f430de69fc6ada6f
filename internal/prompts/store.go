// Package prompts manages the reusable analysis templates stored as plain-text files.
package prompts

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/olegiv/logreport-ai-go/internal/logging"
)

const (
	// readmeFileName is skipped when listing templates (exact, case-sensitive match)
	readmeFileName = "README.txt"

	additionalInstructionsSeparator = "--- Additional Instructions ---"
)

// Template is a prompt template file discovered in the prompts folder.
type Template struct {
	DisplayName string
	FileName    string
	FilePath    string
}

// Store lists and reads prompt templates. The folder is scanned fresh on every call.
type Store struct {
	dir string
	log *logging.SecureLogger
}

// NewStore creates a template store for dir
func NewStore(dir string, log *logging.SecureLogger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{dir: dir, log: log}
}

// Dir returns the templates folder
func (s *Store) Dir() string {
	return s.dir
}

// FolderExists reports whether the templates folder exists
func (s *Store) FolderExists() bool {
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}

// List returns the *.txt templates directly inside the folder, excluding README.txt.
// A missing folder yields an empty list.
func (s *Store) List() []Template {
	if !s.FolderExists() {
		s.log.Warn().Str("path", s.dir).Msg("Prompts folder not found")
		return []Template{}
	}

	matches, err := doublestar.Glob(os.DirFS(s.dir), "*.txt")
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.dir).Msg("Failed to list prompt templates")
		return []Template{}
	}

	templates := make([]Template, 0, len(matches))
	for _, name := range matches {
		if name == readmeFileName {
			continue
		}
		path := filepath.Join(s.dir, name)
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			continue
		}
		templates = append(templates, Template{
			DisplayName: DisplayName(name),
			FileName:    name,
			FilePath:    path,
		})
	}

	return templates
}

// Read returns the template content with leading and trailing whitespace trimmed
func (s *Store) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", filepath.Base(path), err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("template %s is not valid UTF-8", filepath.Base(path))
	}
	return strings.TrimSpace(string(data)), nil
}

// Find resolves a template by file name (with or without .txt) or display name,
// case-insensitively.
func (s *Store) Find(name string) (*Template, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return nil, fmt.Errorf("template name is empty")
	}

	templates := s.List()
	for i := range templates {
		t := &templates[i]
		if strings.ToLower(t.FileName) == want ||
			strings.ToLower(strings.TrimSuffix(t.FileName, ".txt")) == want ||
			strings.ToLower(t.DisplayName) == want {
			return t, nil
		}
	}

	available := make([]string, len(templates))
	for i, t := range templates {
		available[i] = t.FileName
	}
	return nil, fmt.Errorf("template %q not found in %s (available: %v): %w", name, s.dir, available, fs.ErrNotExist)
}

// DisplayName converts a template file name to Title Case words:
// "database-issues.txt" -> "Database Issues".
func DisplayName(fileName string) string {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	parts := strings.FieldsFunc(stem, func(r rune) bool {
		return r == '-' || r == '_'
	})

	words := make([]string, 0, len(parts))
	for _, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		words = append(words, strings.ToUpper(string(r))+strings.ToLower(p[size:]))
	}
	return strings.Join(words, " ")
}

// BuildFinalPrompt appends free-form instructions to a template.
// The template is returned unchanged when customText is blank.
func BuildFinalPrompt(template, customText string) string {
	if strings.TrimSpace(customText) == "" {
		return template
	}
	return template + "\n\n" + additionalInstructionsSeparator + "\n" + customText
}
