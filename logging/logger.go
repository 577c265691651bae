package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ComponentLogger provides structured logging for pipeline components
type ComponentLogger struct {
	logger zerolog.Logger
}

// Options controls the process-wide logger configuration.
type Options struct {
	// Level is one of debug, info, warn, error. Empty falls back to the
	// LOG_LEVEL environment variable, then to info.
	Level string
	// File, when set, routes output to a size-rotated log file instead of
	// the console writer.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Configure sets up the global zerolog logger. Call once at process start,
// before any component logger is created.
func Configure(opts Options) {
	zerolog.TimeFieldFormat = time.RFC3339

	level := opts.Level
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if opts.File != "" {
		log.Logger = log.Output(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		})
		return
	}

	// Console output for interactive runs
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    false,
	})
}

// NewComponentLogger creates a component-specific logger with consistent context
func NewComponentLogger(componentName string) *ComponentLogger {
	logger := log.With().
		Str("component", componentName).
		Logger()

	return &ComponentLogger{
		logger: logger,
	}
}

// WithRun returns a derived logger carrying the run identifier on every event.
func (cl *ComponentLogger) WithRun(runID string) *ComponentLogger {
	return &ComponentLogger{
		logger: cl.logger.With().Str("run_id", runID).Logger(),
	}
}

func (cl *ComponentLogger) Info() *zerolog.Event {
	return cl.logger.Info()
}

func (cl *ComponentLogger) Error() *zerolog.Event {
	return cl.logger.Error()
}

func (cl *ComponentLogger) Warn() *zerolog.Event {
	return cl.logger.Warn()
}

func (cl *ComponentLogger) Debug() *zerolog.Event {
	return cl.logger.Debug()
}
