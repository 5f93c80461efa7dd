// Package log wraps github.com/go-kit/log to give the project one consistent
// logging surface: level-filtered JSON logs with "msg", "ts" and "caller"
// fields, plus an "error" field on ERROR-level logs.
package log

import (
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type Logger = log.Logger

// New returns a level-filtered JSON logger writing to stderr.
// lvl may be one of DEBUG, INFO, WARN, ERROR (case-insensitive);
// anything unrecognized falls back to INFO.
func New(lvl string) Logger {
	return log.With(
		level.NewFilter(
			log.NewJSONLogger(os.Stderr),
			level.Allow(level.ParseDefault(lvl, level.InfoValue())),
		),
		"ts", log.DefaultTimestamp,
		"caller", log.Caller(5),
	)
}

// Default returns a logger at the level named by the LOG_LEVEL environment
// variable, or INFO when unset.
func Default() Logger {
	return New(os.Getenv("LOG_LEVEL"))
}

// With is a wrapper for log.With() and exists to provide brevity.
func With(logger Logger, keyvals ...interface{}) Logger {
	return log.With(logger, keyvals...)
}

// Debug logs a message and any keyvals with DEBUG level.
func Debug(l Logger, msg interface{}, kv ...interface{}) {
	logWithMessage(level.Debug(l), msg, kv...)
}

// Info logs a message and any keyvals with INFO level.
func Info(l Logger, msg interface{}, kv ...interface{}) {
	logWithMessage(level.Info(l), msg, kv...)
}

// Warn logs a message and any keyvals with WARN level.
func Warn(l Logger, msg interface{}, kv ...interface{}) {
	logWithMessage(level.Warn(l), msg, kv...)
}

// Error logs a message, error and any keyvals with ERROR level.
func Error(l Logger, msg interface{}, err error, kv ...interface{}) {
	logWithMessage(level.Error(log.With(l, "error", err)), msg, kv...)
}

// Errorf logs like Error() and returns a new error wrapping err with msg, so
// callers can log and propagate in one statement.
func Errorf(l Logger, msg interface{}, err error, kv ...interface{}) error {
	logWithMessage(level.Error(log.With(l, "error", err)), msg, kv...)
	return fmt.Errorf("%s: %w", msg, err)
}

func logWithMessage(l Logger, msg interface{}, kv ...interface{}) {
	log.With(l, "msg", msg).Log(kv...)
}
