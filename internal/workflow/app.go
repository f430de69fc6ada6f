// Package workflow runs the interactive menu and the analyze and report pipeline.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/olegiv/logreport-ai-go/internal/ai"
	"github.com/olegiv/logreport-ai-go/internal/config"
	"github.com/olegiv/logreport-ai-go/internal/console"
	"github.com/olegiv/logreport-ai-go/internal/logfiles"
	"github.com/olegiv/logreport-ai-go/internal/logging"
	"github.com/olegiv/logreport-ai-go/internal/prompts"
	"github.com/olegiv/logreport-ai-go/internal/report"
	"github.com/olegiv/logreport-ai-go/internal/storage"
)

const (
	menuTitle = "Log Analysis Report Generator"

	promptsReadmeName = "README.txt"
	promptsReadme     = `Prompt templates
================

Every *.txt file in this folder is offered as an analysis template.
The file name becomes the menu entry: "database-issues.txt" is shown as "Database Issues".
The file content replaces the default analysis instructions sent to the model.

This README.txt file is never listed as a template.
`
)

var menuOptions = []string{
	"Test LLM Connection",
	"Analyze Logs & Generate Report",
	"Exit",
}

var troubleshootingTips = []string{
	"Make sure the LLM server (for example LM Studio) is running",
	"Verify that a model is loaded and the local server is started",
	"Check apiEndpoint, apiPort and apiPath in config.json",
	"Make sure no firewall blocks the configured port",
}

// HistoryRecorder stores a record of every saved report
type HistoryRecorder interface {
	SaveReport(record *storage.ReportRecord) error
}

// Deps are the collaborators of an App. History may be nil to disable recording.
type Deps struct {
	Options *config.Options
	Console *console.Console
	Client  *ai.Client
	History HistoryRecorder
	Log     *logging.SecureLogger
}

// Result describes one successful analyze and report run
type Result struct {
	RunID        string
	ReportPath   string
	FileNames    []string
	TotalBytes   int64
	TemplateName string
	Duration     time.Duration
}

// App wires the collector, templates, LLM client, and report writer behind the menu.
type App struct {
	opts     *config.Options
	settings *config.Store
	logs     *logfiles.Collector
	prompts  *prompts.Store
	client   *ai.Client
	reports  *report.Writer
	history  HistoryRecorder
	console  *console.Console
	log      *logging.SecureLogger
}

// New creates an App for the base directory in d.Options
func New(d Deps) *App {
	log := d.Log
	if log == nil {
		log = logging.Nop()
	}
	client := d.Client
	if client == nil {
		client = ai.NewClient(log)
	}

	return &App{
		opts:     d.Options,
		settings: config.NewStore(d.Options.BaseDir),
		logs:     logfiles.NewCollector(d.Options.LogsPath(), log),
		prompts:  prompts.NewStore(d.Options.PromptsPath(), log),
		client:   client,
		reports:  report.NewWriter(d.Options.ReportsPath(), log),
		history:  d.History,
		console:  d.Console,
		log:      log,
	}
}

// Prompts returns the template store, used to build selectors
func (a *App) Prompts() *prompts.Store {
	return a.prompts
}

// Startup prepares the base directory: folders, the prompts README, and a default config.json.
// Any error here is fatal for the process.
func (a *App) Startup() error {
	if err := os.MkdirAll(a.opts.BaseDir, 0755); err != nil {
		return fmt.Errorf("failed to create base directory %s: %w", a.opts.BaseDir, err)
	}

	for _, dir := range []string{a.opts.LogsPath(), a.opts.ReportsPath(), a.opts.PromptsPath()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create folder %s: %w", dir, err)
		}
	}

	readme := filepath.Join(a.opts.PromptsPath(), promptsReadmeName)
	if _, err := os.Stat(readme); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(readme, []byte(promptsReadme), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", readme, err)
		}
	}

	created, err := a.settings.InitializeDefaults()
	if err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}
	if created {
		a.console.Info(fmt.Sprintf("Created default configuration: %s", a.settings.Path()))
		a.log.Info().Str("path", a.settings.Path()).Msg("Default configuration written")
	}

	a.log.Debug().Str("base_dir", a.opts.BaseDir).Msg("Startup completed")
	return nil
}

// Run shows the main menu until the user exits, the input ends, or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.console.Title(menuTitle)

	for {
		if ctx.Err() != nil {
			return nil
		}

		a.console.ShowMenu("Main Menu", menuOptions)
		choice, err := a.console.ReadChoice(ctx, fmt.Sprintf("Enter choice [1-%d]", len(menuOptions)), 1, len(menuOptions))
		switch {
		case ctx.Err() != nil:
			a.console.Info("Interrupted, exiting.")
			return nil
		case errors.Is(err, io.EOF):
			a.console.Println()
			return nil
		case errors.Is(err, console.ErrInvalidChoice):
			a.console.Warn(fmt.Sprintf("Invalid choice. Please enter a number from 1 to %d.", len(menuOptions)))
			continue
		case err != nil:
			return fmt.Errorf("failed to read menu choice: %w", err)
		}

		switch choice {
		case 1:
			a.TestConnection(ctx)
		case 2:
			// Failures are reported on the console; the menu continues either way
			_, _ = a.AnalyzeAndReport(ctx, a.prompts.Interactive(a.console))
		case 3:
			a.console.Info("Goodbye!")
			return nil
		}

		a.console.Pause(ctx)
	}
}

// TestConnection loads and validates config.json and pings the LLM server.
func (a *App) TestConnection(ctx context.Context) bool {
	a.console.Title("Test LLM Connection")

	settings, err := a.loadSettings()
	if err != nil {
		return false
	}

	a.console.Info(fmt.Sprintf("Testing connection to %s (model: %s)...", settings.URL(), settings.Model))
	if err := a.checkConnection(ctx, settings); err != nil {
		return false
	}

	a.console.Success("Connection successful. The LLM server is responding.")
	return true
}

// AnalyzeAndReport combines the logs, asks the LLM for an analysis, and saves a report.
// It stops at the first failing step with guidance on the console and returns the reason.
func (a *App) AnalyzeAndReport(ctx context.Context, selector prompts.Selector) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := a.log.With("run_id", runID)

	a.console.Title("Analyze Logs & Generate Report")

	// 1. Logs folder
	if !a.logs.FolderExists() {
		a.console.Warn(fmt.Sprintf("Logs folder not found: %s", a.logs.Dir()))
		a.console.Hint("Create the folder and copy the .log files to analyze into it")
		return nil, ErrLogsFolderMissing
	}

	// 2. Log files
	files := a.logs.List()
	if len(files) == 0 {
		a.console.Warn(fmt.Sprintf("No .log files found in %s", a.logs.Dir()))
		a.console.Hint("Copy the log files to analyze into the logs folder (only *.log files are read)")
		return nil, ErrNoLogFiles
	}
	a.console.Info(fmt.Sprintf("Found %d log file(s):", len(files)))
	for _, f := range files {
		a.console.Hint(filepath.Base(f))
	}

	// 3. Combined content
	combined, err := a.logs.Combine()
	if combined != nil {
		a.reportCombineNotices(combined)
	}
	if err != nil || strings.TrimSpace(combined.Content) == "" {
		a.console.Warn("The log files could not be read or contain no text.")
		a.console.Hint("Check that the files are readable UTF-8 text")
		if err == nil {
			err = logfiles.ErrNoLogContent
		}
		return nil, fmt.Errorf("%w: %w", ErrNoLogContent, err)
	}

	// 4. Configuration
	settings, err := a.loadSettings()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigUnavailable, err)
	}

	// 5. Prompt
	selection, err := selector.Select(ctx)
	if err != nil {
		if ctx.Err() != nil {
			a.console.Warn("Analysis cancelled.")
			return nil, ctx.Err()
		}
		a.console.Error(fmt.Sprintf("Cannot use the requested template: %v", err))
		a.console.Hint(fmt.Sprintf("Templates are the *.txt files in %s", a.prompts.Dir()))
		return nil, fmt.Errorf("%w: %w", ErrPromptUnavailable, err)
	}
	systemPrompt := a.systemPrompt(settings, selection)

	// 6. Connectivity
	a.console.Info(fmt.Sprintf("Checking connection to %s...", settings.URL()))
	if err := a.checkConnection(ctx, settings); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// 7. Analysis
	a.console.Info(fmt.Sprintf("Analyzing %d log file(s) with %s, this may take a while...", len(combined.Files), settings.Model))
	analysis, err := a.client.Analyze(ctx, combined.Content, ai.AnalyzeParams{
		Endpoint:       settings.APIEndpoint,
		Port:           settings.APIPort,
		Path:           settings.APIPath,
		SystemPrompt:   systemPrompt,
		Model:          settings.Model,
		Temperature:    settings.Temperature,
		MaxTokens:      settings.MaxTokens,
		TimeoutSeconds: settings.TimeoutSeconds,
	})
	if err != nil {
		a.console.Error(fmt.Sprintf("Analysis failed: %v", err))
		a.console.Hint("Large logs may exceed the model context or the timeout")
		a.console.Hint("Try fewer or smaller log files, or raise timeoutSeconds and maxTokens in config.json")
		log.Error().Err(err).Msg("Analysis request failed")
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	// 8. Report
	summary := fmt.Sprintf("Analyzed %d log file(s) totaling %.2f KB.", len(combined.Files), combined.TotalKB())
	content := a.reports.Build(analysis, combined.FileNames(), summary)
	path, err := a.reports.Save(content, "")
	if err != nil {
		a.console.Error(fmt.Sprintf("Could not save the report: %v", err))
		a.console.Hint(fmt.Sprintf("Check that %s is writable and the disk is not full", a.reports.Dir()))
		log.Error().Err(err).Msg("Report save failed")
		return nil, fmt.Errorf("%w: %w", ErrReportNotSaved, err)
	}

	result := &Result{
		RunID:        runID,
		ReportPath:   path,
		FileNames:    combined.FileNames(),
		TotalBytes:   combined.TotalBytes,
		TemplateName: selection.Label(),
		Duration:     time.Since(start),
	}
	a.record(log, result, settings.Model)

	// 9. Success
	a.console.Success("Report generated successfully")
	a.console.Hint(fmt.Sprintf("Files analyzed: %d", len(result.FileNames)))
	a.console.Hint(fmt.Sprintf("Total size: %.2f KB", combined.TotalKB()))
	a.console.Hint(fmt.Sprintf("Saved to: %s", path))

	log.Info().
		Str("report", path).
		Int("files", len(result.FileNames)).
		Int64("total_bytes", result.TotalBytes).
		Str("template", result.TemplateName).
		Float64("duration_seconds", result.Duration.Seconds()).
		Msg("Report generated")

	return result, nil
}

// reportCombineNotices tells the user which files were skipped or are unusually large
func (a *App) reportCombineNotices(combined *logfiles.Combined) {
	for _, skipped := range combined.Skipped {
		a.console.Warn(fmt.Sprintf("Skipped %s: %v", skipped.Name, skipped.Err))
	}
	for _, large := range combined.LargeFiles {
		a.console.Warn(fmt.Sprintf("%s is %s; the analysis may be slow or exceed the model context",
			large.Name, humanize.IBytes(uint64(large.SizeBytes))))
	}
}

// loadSettings reads and validates config.json, reporting problems on the console
func (a *App) loadSettings() (*config.Settings, error) {
	settings, err := a.settings.Load()
	if err != nil {
		a.console.Error(fmt.Sprintf("Could not load configuration: %v", err))
		a.console.Hint(fmt.Sprintf("Check %s or delete it to recreate the defaults on next start", a.settings.Path()))
		a.log.Warn().Err(err).Msg("Configuration load failed")
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		a.console.Error(fmt.Sprintf("Invalid configuration: %v", err))
		a.console.Hint(fmt.Sprintf("Fix the value in %s", a.settings.Path()))
		a.log.Warn().Err(err).Msg("Configuration invalid")
		return nil, err
	}
	return settings, nil
}

// checkConnection runs the connectivity check and prints troubleshooting tips on failure
func (a *App) checkConnection(ctx context.Context, settings *config.Settings) error {
	err := a.client.TestConnection(ctx, settings.APIEndpoint, settings.APIPort, settings.APIPath,
		settings.Model, ai.DefaultPingTimeoutSeconds)
	if err == nil {
		return nil
	}

	a.console.Error(fmt.Sprintf("Cannot reach the LLM server at %s: %v", settings.URL(), err))
	a.console.Println("Troubleshooting:")
	for _, tip := range troubleshootingTips {
		a.console.Hint(tip)
	}
	a.log.Warn().Err(err).Str("url", settings.URL()).Msg("Connection test failed")
	return err
}

// systemPrompt picks the template or configured prompt and appends custom instructions
func (a *App) systemPrompt(settings *config.Settings, sel prompts.Selection) string {
	base := settings.SystemPrompt
	if sel.Source == prompts.SourceTemplate && strings.TrimSpace(sel.TemplateContent) != "" {
		base = sel.TemplateContent
	}
	if strings.TrimSpace(base) == "" {
		base = prompts.DefaultSystemPrompt()
	}
	return prompts.BuildFinalPrompt(base, sel.CustomText)
}

// record stores the run in the history database; failures only warn
func (a *App) record(log *logging.SecureLogger, result *Result, model string) {
	if a.history == nil {
		return
	}

	err := a.history.SaveReport(&storage.ReportRecord{
		RunID:           result.RunID,
		Timestamp:       time.Now(),
		FileName:        filepath.Base(result.ReportPath),
		LogFiles:        result.FileNames,
		TotalBytes:      result.TotalBytes,
		Model:           model,
		TemplateName:    result.TemplateName,
		DurationSeconds: result.Duration.Seconds(),
	})
	if err != nil {
		a.console.Warn("The report was saved but could not be recorded in the history database.")
		log.Warn().Err(err).Msg("Failed to record report history")
	}
}
