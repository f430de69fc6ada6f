package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/logreport-ai-go/internal/storage"
	"github.com/olegiv/logreport-ai-go/internal/workflow"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCmd(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_CONSOLE", "false")

	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(input), &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func findCmd(t *testing.T, root *cobra.Command, name string) *cobra.Command {
	t.Helper()
	for _, c := range root.Commands() {
		if c.Name() == name {
			return c
		}
	}
	t.Fatalf("command %q not registered", name)
	return nil
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})

	assert.Equal(t, "logreport", root.Use)
	assert.NotNil(t, root.PersistentFlags().Lookup("dir"))
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
	assert.Equal(t, ".", root.PersistentFlags().Lookup("dir").DefValue)

	analyze := findCmd(t, root, "analyze")
	assert.NotNil(t, analyze.Flags().Lookup("template"))
	assert.NotNil(t, analyze.Flags().Lookup("instructions"))

	history := findCmd(t, root, "history")
	assert.Equal(t, "10", history.Flags().Lookup("limit").DefValue)
	assert.NotNil(t, history.Flags().Lookup("prune-days"))

	findCmd(t, root, "test-connection")
}

func TestVersionFlag(t *testing.T) {
	out, err := executeCmd(t, "", "--version")
	require.NoError(t, err)
	assert.Equal(t, "logreport "+Version+"\n", out)
}

func TestInteractive_ExitFromMenu(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HISTORY_ENABLED", "")

	out, err := executeCmd(t, "3\n", "--dir", dir, "--log-level", "debug")
	require.NoError(t, err)

	assert.Contains(t, out, "Log Analysis Report Generator")
	assert.Contains(t, out, "Goodbye!")
	for _, name := range []string{"logs", "reports", "prompts", "config.json"} {
		assert.FileExists(t, filepath.Join(dir, name), name)
	}
	assert.NoFileExists(t, filepath.Join(dir, "data", "history.db"), "history is opt-in")
}

func TestInteractive_HistoryOptIn(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HISTORY_ENABLED", "true")

	_, err := executeCmd(t, "3\n", "--dir", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "data", "history.db"))
}

func TestAnalyze_NoLogFiles(t *testing.T) {
	dir := t.TempDir()

	out, err := executeCmd(t, "", "analyze", "--dir", dir)

	require.Error(t, err)
	assert.True(t, errors.Is(err, workflow.ErrNoLogFiles), "err = %v", err)
	var silent *silentError
	assert.True(t, errors.As(err, &silent))
	assert.Contains(t, out, "No .log files found")
}

func TestAnalyze_UnknownTemplate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logs", "app.log"), []byte("INFO ok"), 0644))

	out, err := executeCmd(t, "", "analyze", "--dir", dir, "--template", "no-such-template")

	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrPromptUnavailable)
	assert.Contains(t, out, "Cannot use the requested template")
}

func TestHistory_Empty(t *testing.T) {
	t.Setenv("HISTORY_ENABLED", "true")
	out, err := executeCmd(t, "", "history", "--dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No reports recorded yet.")
}

func TestHistory_ListsRecords(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.New(filepath.Join(dir, "data", "history.db"), nil)
	require.NoError(t, err)
	require.NoError(t, store.SaveReport(&storage.ReportRecord{
		RunID:        "run-1",
		Timestamp:    time.Now(),
		FileName:     "Report_2024-03-15_143022.md",
		LogFiles:     []string{"app.log"},
		TotalBytes:   2048,
		Model:        "local-model",
		TemplateName: "Default",
	}))
	require.NoError(t, store.Close())

	t.Setenv("HISTORY_ENABLED", "true")
	out, err := executeCmd(t, "", "history", "--dir", dir, "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "1 report(s) recorded")
	assert.Contains(t, out, "Report_2024-03-15_143022.md")
	assert.Contains(t, out, "model: local-model")
}

func TestHistory_Disabled(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HISTORY_ENABLED", "")
	t.Setenv("LOG_CONSOLE", "false")

	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(""), &out, &bytes.Buffer{})
	cmd.SetArgs([]string{"history", "--dir", dir})

	assert.ErrorIs(t, cmd.Execute(), errHistoryDisabled)
	_, statErr := os.Stat(filepath.Join(dir, "data", "history.db"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFormatHistory(t *testing.T) {
	now := time.Date(2024, 3, 15, 15, 0, 0, 0, time.Local)
	records := []*storage.ReportRecord{{
		Timestamp:       now.Add(-time.Hour),
		FileName:        "Report_2024-03-15_140000.md",
		LogFiles:        []string{"a.log", "b.log"},
		TotalBytes:      3 * 1024,
		Model:           "local-model",
		TemplateName:    "Security Audit",
		DurationSeconds: 4.5,
	}}
	stats := &storage.Statistics{TotalReports: 1, TotalBytes: 3 * 1024, LastReportAt: now.Add(-time.Hour)}

	got := formatHistory(records, stats, now)

	assert.Contains(t, got, "1 report(s) recorded, 3.0 KiB of logs analyzed, last 1 hour ago")
	assert.Contains(t, got, "2024-03-15 14:00:00  Report_2024-03-15_140000.md")
	assert.Contains(t, got, "template: Security Audit, model: local-model, 3.0 KiB in a.log, b.log, took 4.5s")

	assert.Equal(t, "No reports recorded yet.\n", formatHistory(nil, &storage.Statistics{}, now))
}
