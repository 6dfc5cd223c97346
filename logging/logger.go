// Package logging contains the leveled, structured logger shared by the drive's components.
package logging

import (
	"context"
	"os"
)

// Logger is a leveled logger. The `w` variants take alternating keys and values that are written
// as structured fields. The `C` variants take the caller's context; levels alone decide what is
// written.
//
// The plain Debug, Info, Warn and Fatal methods make a Logger usable with
// `go.viam.com/utils.ContextualMain`.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})

	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	CDebugw(ctx context.Context, msg string, keysAndValues ...interface{})
	CInfow(ctx context.Context, msg string, keysAndValues ...interface{})
	CWarnw(ctx context.Context, msg string, keysAndValues ...interface{})
	CErrorw(ctx context.Context, msg string, keysAndValues ...interface{})

	// Sublogger returns a logger named "<name>.<subname>" that starts at this logger's level and
	// shares its outputs. Its level is independent afterwards.
	Sublogger(subname string) Logger
	SetLevel(level Level)
	GetLevel() Level
	Sync() error
}

// NewLogger returns a logger that writes Info+ logs to stdout in UTC.
func NewLogger(name string) Logger {
	return newImpl(name, INFO, true, consoleAppender{os.Stdout})
}
