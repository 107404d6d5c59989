package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

var (
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()

	DebugEnabled = false

	logFile *os.File
)

// InitLogging sets up logging based on configuration.
// Without a log path output goes to stderr; the TUI always passes one.
func InitLogging(debugMode bool, logPath string) error {
	DebugEnabled = debugMode

	level := zerolog.WarnLevel
	if debugMode {
		level = zerolog.DebugLevel
	}

	var out io.Writer = os.Stderr

	if logPath != "" {
		err := os.MkdirAll(filepath.Dir(logPath), 0o755)
		if err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}

		logFile = f
		out = f
	}

	setOutput(out, level, logPath != "")

	return nil
}

// SetOutput redirects the logger, mostly for tests.
func SetOutput(w io.Writer, level zerolog.Level) {
	setOutput(w, level, true)
}

func setOutput(w io.Writer, level zerolog.Level, noColor bool) {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.DateTime,
		NoColor:    noColor,
	}
	log = zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// Close closes the log file if open.
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// With returns a child logger tagged with a component name.
func With(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

func Infof(format string, v ...interface{}) {
	log.Info().Msgf(format, v...)
}

// Errorf logs an error message.
func Errorf(format string, v ...interface{}) {
	log.Error().Msgf(format, v...)
}

func Debugf(format string, v ...interface{}) {
	log.Debug().Msgf(format, v...)
}

func Warnf(format string, v ...interface{}) {
	log.Warn().Msgf(format, v...)
}
