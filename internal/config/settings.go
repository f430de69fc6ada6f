package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/olegiv/logreport-ai-go/internal/ai"
	"github.com/olegiv/logreport-ai-go/internal/prompts"
	"github.com/spf13/viper"
)

// SettingsFileName is the name of the LLM settings file inside the base directory.
const SettingsFileName = "config.json"

var (
	// ErrConfigNotFound is returned when config.json does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
	// ErrMissingField is returned when a required setting is absent or empty.
	ErrMissingField = errors.New("required configuration field missing")
)

// requiredKeys must be present in config.json for it to be usable.
var requiredKeys = []string{"apiEndpoint", "apiPort", "apiPath", "model", "systemPrompt"}

// Settings holds the LLM connection settings persisted in config.json
type Settings struct {
	APIEndpoint    string  `json:"apiEndpoint" mapstructure:"apiEndpoint"`       // scheme + host, e.g. "http://localhost"
	APIPort        int     `json:"apiPort" mapstructure:"apiPort"`               // 1-65535
	APIPath        string  `json:"apiPath" mapstructure:"apiPath"`               // e.g. "/v1/chat/completions"
	Model          string  `json:"model" mapstructure:"model"`                   // model identifier sent in the request
	Temperature    float64 `json:"temperature" mapstructure:"temperature"`       // 0.0-1.0
	MaxTokens      int     `json:"maxTokens" mapstructure:"maxTokens"`           // > 0
	TimeoutSeconds int     `json:"timeoutSeconds" mapstructure:"timeoutSeconds"` // > 0
	SystemPrompt   string  `json:"systemPrompt" mapstructure:"systemPrompt"`
}

// DefaultSettings returns the settings written on first run.
// LM Studio listens on 1234; Ollama users switch the port to 11434.
func DefaultSettings() *Settings {
	return &Settings{
		APIEndpoint:    "http://localhost",
		APIPort:        1234,
		APIPath:        "/v1/chat/completions",
		Model:          "local-model",
		Temperature:    0.7,
		MaxTokens:      2000,
		TimeoutSeconds: 30,
		SystemPrompt:   prompts.DefaultSystemPrompt(),
	}
}

// URL returns the chat endpoint these settings point at
func (s *Settings) URL() string {
	return ai.ComposeURL(s.APIEndpoint, s.APIPort, s.APIPath)
}

// Validate checks that the settings are usable for a request
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.APIEndpoint) == "" {
		return fmt.Errorf("apiEndpoint is required")
	}
	if s.APIPort < 1 || s.APIPort > 65535 {
		return fmt.Errorf("apiPort must be between 1 and 65535 (got: %d)", s.APIPort)
	}
	if strings.TrimSpace(s.APIPath) == "" {
		return fmt.Errorf("apiPath is required")
	}
	if strings.TrimSpace(s.Model) == "" {
		return fmt.Errorf("model is required")
	}
	if s.Temperature < 0 || s.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0.0 and 1.0 (got: %g)", s.Temperature)
	}
	if s.MaxTokens <= 0 {
		return fmt.Errorf("maxTokens must be greater than 0 (got: %d)", s.MaxTokens)
	}
	if s.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeoutSeconds must be greater than 0 (got: %d)", s.TimeoutSeconds)
	}
	return nil
}

// missingRequired returns the first required field that is empty, or "".
func (s *Settings) missingRequired() string {
	switch {
	case strings.TrimSpace(s.APIEndpoint) == "":
		return "apiEndpoint"
	case s.APIPort == 0:
		return "apiPort"
	case strings.TrimSpace(s.APIPath) == "":
		return "apiPath"
	case strings.TrimSpace(s.Model) == "":
		return "model"
	case strings.TrimSpace(s.SystemPrompt) == "":
		return "systemPrompt"
	}
	return ""
}

// Store reads and writes config.json. Every call goes to disk; nothing is cached.
type Store struct {
	path string
}

// NewStore creates a settings store for config.json inside dir
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, SettingsFileName)}
}

// Path returns the location of config.json
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether config.json exists and parses as valid JSON
func (s *Store) Exists() bool {
	_, err := s.read()
	return err == nil
}

// InitializeDefaults writes DefaultSettings only when no file exists.
// It never overwrites; the returned bool reports whether a file was created.
func (s *Store) InitializeDefaults() (bool, error) {
	if _, err := os.Stat(s.path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to stat configuration file: %w", err)
	}

	if err := s.Save(DefaultSettings()); err != nil {
		return false, fmt.Errorf("failed to write default configuration: %w", err)
	}
	return true, nil
}

// Load reads config.json fresh from disk.
// Fails when the file is missing, is not valid JSON, or lacks a required key.
func (s *Store) Load() (*Settings, error) {
	v, err := s.read()
	if err != nil {
		return nil, err
	}

	for _, key := range requiredKeys {
		if !v.IsSet(key) {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, key)
		}
	}

	// Optional keys fall back to defaults
	defaults := DefaultSettings()
	v.SetDefault("temperature", defaults.Temperature)
	v.SetDefault("maxTokens", defaults.MaxTokens)
	v.SetDefault("timeoutSeconds", defaults.TimeoutSeconds)

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	return &settings, nil
}

// Save validates that required fields are present and writes config.json atomically.
// The file on disk is left untouched when validation fails.
func (s *Store) Save(settings *Settings) error {
	if settings == nil {
		return fmt.Errorf("%w: settings are nil", ErrMissingField)
	}
	if field := settings.missingRequired(); field != "" {
		return fmt.Errorf("%w: %s", ErrMissingField, field)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create configuration directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary configuration file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close configuration file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace configuration file: %w", err)
	}

	return nil
}

// read loads config.json into a fresh viper instance
func (s *Store) read() (*viper.Viper, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to stat configuration file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w", s.path, err)
	}
	return v, nil
}
