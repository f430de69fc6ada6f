package cli

import (
	"fmt"
	"io"

	"github.com/olegiv/go-logger"
	"github.com/olegiv/logreport-ai-go/internal/ai"
	"github.com/olegiv/logreport-ai-go/internal/config"
	"github.com/olegiv/logreport-ai-go/internal/console"
	"github.com/olegiv/logreport-ai-go/internal/logging"
	"github.com/olegiv/logreport-ai-go/internal/storage"
	"github.com/olegiv/logreport-ai-go/internal/workflow"
)

// environment is everything a command needs, built from the global flags
type environment struct {
	opts    *config.Options
	log     *logging.SecureLogger
	console *console.Console
	history *storage.Storage
	app     *workflow.App
}

// newEnvironment loads options, opens the log and history database, and runs startup.
// History problems are not fatal: the session continues without recording.
func newEnvironment(flags *globalFlags, in io.Reader, out io.Writer) (*environment, error) {
	opts, err := config.LoadOptions(flags.dir, flags.logLevel)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	log := logging.NewSecure(logger.New(logger.Config{
		Level:      opts.LogLevel,
		LogDir:     opts.LogDir,
		MaxSizeMB:  10,
		MaxBackups: 5,
		Console:    opts.LogConsole,
	}))

	env := &environment{
		opts:    opts,
		log:     log,
		console: console.New(in, out),
	}

	deps := workflow.Deps{
		Options: opts,
		Console: env.console,
		Client:  ai.NewClient(log),
		Log:     log,
	}

	if opts.HistoryEnabled {
		store, err := storage.New(opts.HistoryDBPath, log)
		if err != nil {
			env.console.Warn("Report history is unavailable; reports will not be recorded.")
			log.Warn().Err(err).Str("path", opts.HistoryDBPath).Msg("Failed to open history database")
		} else {
			env.history = store
			deps.History = store
		}
	}

	env.app = workflow.New(deps)
	if err := env.app.Startup(); err != nil {
		env.Close()
		return nil, fmt.Errorf("startup failed: %w", err)
	}

	return env, nil
}

// Close releases the history database and flushes the log
func (e *environment) Close() {
	if e.history != nil {
		if err := e.history.Close(); err != nil {
			e.log.Warn().Err(err).Msg("Failed to close history database")
		}
	}
	_ = e.log.Close()
}
