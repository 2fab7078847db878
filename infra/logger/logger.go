// Package logger provides the zerolog-backed implementation of the core
// logger interface.
package logger

import corelogger "github.com/kilianp07/gridmerit/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// New returns a Logger for the given component at info level. The output
// format follows the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}
