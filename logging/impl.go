package logging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.viam.com/utils"
)

var errUnpairedKey = errors.New("unpaired log key")

type impl struct {
	name      string
	level     AtomicLevel
	inUTC     bool
	appenders []Appender
}

func newImpl(name string, level Level, inUTC bool, appenders ...Appender) *impl {
	return &impl{name: name, level: NewAtomicLevelAt(level), inUTC: inUTC, appenders: appenders}
}

func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return newImpl(name, imp.level.Get(), imp.inUTC, imp.appenders...)
}

func (imp *impl) SetLevel(level Level) { imp.level.Set(level) }

func (imp *impl) GetLevel() Level { return imp.level.Get() }

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.appenders {
		err = multierr.Combine(err, appender.Sync())
	}
	return err
}

// emit writes one entry to every appender. It must be called directly from the exported method
// so that the recorded caller is the line that logged.
func (imp *impl) emit(level Level, msg string, keysAndValues []interface{}) {
	if level < imp.level.Get() {
		return
	}
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: imp.name,
		Message:    msg,
		Caller:     zapcore.NewEntryCaller(runtime.Caller(2)),
	}
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	fields := toFields(keysAndValues)
	for _, appender := range imp.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// toFields pairs up keys and values. A trailing key without a value is kept with an error value
// rather than dropped. The error is a plain one so zap does not add a verbose stack field.
func toFields(keysAndValues []interface{}) []zapcore.Field {
	if len(keysAndValues) == 0 {
		return nil
	}
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errUnpairedKey))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

func (imp *impl) Debug(args ...interface{}) { imp.emit(DEBUG, fmt.Sprint(args...), nil) }
func (imp *impl) Info(args ...interface{})  { imp.emit(INFO, fmt.Sprint(args...), nil) }
func (imp *impl) Warn(args ...interface{})  { imp.emit(WARN, fmt.Sprint(args...), nil) }
func (imp *impl) Error(args ...interface{}) { imp.emit(ERROR, fmt.Sprint(args...), nil) }

// Fatal logs at error level, flushes, and exits the process.
func (imp *impl) Fatal(args ...interface{}) {
	imp.emit(ERROR, fmt.Sprint(args...), nil)
	utils.UncheckedError(imp.Sync())
	os.Exit(1)
}

func (imp *impl) Debugw(msg string, kv ...interface{}) { imp.emit(DEBUG, msg, kv) }
func (imp *impl) Infow(msg string, kv ...interface{})  { imp.emit(INFO, msg, kv) }
func (imp *impl) Warnw(msg string, kv ...interface{})  { imp.emit(WARN, msg, kv) }
func (imp *impl) Errorw(msg string, kv ...interface{}) { imp.emit(ERROR, msg, kv) }

func (imp *impl) CDebugw(_ context.Context, msg string, kv ...interface{}) { imp.emit(DEBUG, msg, kv) }
func (imp *impl) CInfow(_ context.Context, msg string, kv ...interface{})  { imp.emit(INFO, msg, kv) }
func (imp *impl) CWarnw(_ context.Context, msg string, kv ...interface{})  { imp.emit(WARN, msg, kv) }
func (imp *impl) CErrorw(_ context.Context, msg string, kv ...interface{}) { imp.emit(ERROR, msg, kv) }
