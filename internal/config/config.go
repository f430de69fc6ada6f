package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Folder names inside the base directory
const (
	LogsDir    = "logs"
	ReportsDir = "reports"
	PromptsDir = "prompts"
	DataDir    = "data"
)

// Options holds the ambient application settings (logging, history).
// LLM connection settings live in config.json and are handled by Store.
type Options struct {
	BaseDir string

	// Application logging
	LogLevel   string
	LogConsole bool
	LogDir     string

	// Report history database
	HistoryEnabled bool
	HistoryDBPath  string
}

// LoadOptions loads ambient options for the given base directory.
// Priority: explicit logLevel argument > OS environment variables > .env file in baseDir > defaults
func LoadOptions(baseDir, logLevel string) (*Options, error) {
	if baseDir == "" {
		baseDir = "."
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// godotenv.Load sets unset OS env vars from .env, which viper will then read.
	// A missing .env file is not an error.
	_ = godotenv.Load(filepath.Join(baseDir, ".env"))

	setDefaults(v)

	opts := &Options{
		BaseDir:        baseDir,
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogConsole:     v.GetBool("LOG_CONSOLE"),
		LogDir:         v.GetString("LOG_DIR"),
		HistoryEnabled: v.GetBool("HISTORY_ENABLED"),
		HistoryDBPath:  v.GetString("HISTORY_DB"),
	}

	if logLevel != "" {
		opts.LogLevel = logLevel
	}

	// Relative paths are resolved against the base directory
	if !filepath.IsAbs(opts.LogDir) {
		opts.LogDir = filepath.Join(baseDir, opts.LogDir)
	}
	if !filepath.IsAbs(opts.HistoryDBPath) {
		opts.HistoryDBPath = filepath.Join(baseDir, opts.HistoryDBPath)
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return opts, nil
}

// setDefaults sets default option values
func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_CONSOLE", false)
	// Application logs stay out of logs/ so the tool never analyzes its own output
	v.SetDefault("LOG_DIR", DataDir)
	// The sqlite report history is opt-in; by default only flat files are written
	v.SetDefault("HISTORY_ENABLED", false)
	v.SetDefault("HISTORY_DB", filepath.Join(DataDir, "history.db"))
}

// Validate validates the options
func (o *Options) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(o.LogLevel)] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	if o.HistoryEnabled && o.HistoryDBPath == "" {
		return fmt.Errorf("HISTORY_DB is required when HISTORY_ENABLED=true")
	}

	return nil
}

// LogsPath returns the folder scanned for *.log files
func (o *Options) LogsPath() string {
	return filepath.Join(o.BaseDir, LogsDir)
}

// ReportsPath returns the folder reports are written to
func (o *Options) ReportsPath() string {
	return filepath.Join(o.BaseDir, ReportsDir)
}

// PromptsPath returns the folder scanned for prompt templates
func (o *Options) PromptsPath() string {
	return filepath.Join(o.BaseDir, PromptsDir)
}
