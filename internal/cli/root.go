// Package cli defines the logreport command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

// Version information, set by main from build-time ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// globalFlags are shared by every sub-command
type globalFlags struct {
	dir      string
	logLevel string
}

// Execute runs the command tree against the process streams and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// After the first signal restore the default handling so a second one terminates
	go func() {
		<-ctx.Done()
		stop()
	}()

	cmd := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		var silent *silentError
		if !errors.As(err, &silent) {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return exitFailure
	}
	return exitSuccess
}

// silentError marks failures that were already reported on the console
type silentError struct {
	err error
}

func (e *silentError) Error() string { return e.err.Error() }

func (e *silentError) Unwrap() error { return e.err }

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "logreport",
		Short: "Local LLM log analysis report generator",
		Long: `logreport collects the *.log files in the logs folder, sends them to a local
OpenAI-compatible LLM server (for example LM Studio), and saves the analysis as a
markdown report in the reports folder.

Run without a sub-command to open the interactive menu.`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), flags, in, out)
		},
	}

	root.CompletionOptions.DisableDefaultCmd = true
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	root.PersistentFlags().StringVarP(&flags.dir, "dir", "d", ".", "Base directory containing logs/, reports/, prompts/ and config.json")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")

	root.AddCommand(
		newAnalyzeCmd(flags, in, out),
		newTestConnectionCmd(flags, in, out),
		newHistoryCmd(flags, in, out),
	)

	return root
}

func versionString() string {
	v := Version
	if GitCommit != "unknown" {
		v += " (commit " + GitCommit + ")"
	}
	if BuildTime != "unknown" {
		v += " built " + BuildTime
	}
	return v
}

func runInteractive(ctx context.Context, flags *globalFlags, in io.Reader, out io.Writer) error {
	env, err := newEnvironment(flags, in, out)
	if err != nil {
		return err
	}
	defer env.Close()

	env.log.Info().Str("version", Version).Str("base_dir", env.opts.BaseDir).Msg("Starting interactive session")
	return env.app.Run(ctx)
}
