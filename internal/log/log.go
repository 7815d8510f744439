package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// ParseLevel accepts the level names understood on the command line.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return l, nil
	default:
		return "", fmt.Errorf("log: unknown level %q (want one of debug, info, warn, error)", s)
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger is a leveled key=value logger. It is constructed by the process
// entry point and handed to the components that log. Loggers derived with
// With share the minimum level of their parent, so SetLevel on the root
// applies everywhere.
//
// A nil *Logger discards everything.
type Logger struct {
	zl  zerolog.Logger
	min *atomic.Int32
}

// New creates a console logger writing human-readable lines to w.
func New(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat, NoColor: !isTerminal(w)}
	l := &Logger{
		zl:  zerolog.New(cw).With().Timestamp().Logger(),
		min: new(atomic.Int32),
	}
	l.SetLevel(level)
	return l
}

// Nop returns a logger that never writes anything.
func Nop() *Logger {
	l := &Logger{zl: zerolog.Nop(), min: new(atomic.Int32)}
	l.min.Store(int32(zerolog.Disabled))
	return l
}

func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.min.Store(int32(level.zerolog()))
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	if l == nil {
		return false
	}
	return level.zerolog() >= zerolog.Level(l.min.Load())
}

// With returns a child logger that adds kv to every line.
func (l *Logger) With(kv ...any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{
		zl:  l.zl.With().Fields(pairs(kv)).Logger(),
		min: l.min,
	}
}

func (l *Logger) Debug(msg string, kv ...any) {
	l.logWithLevel(LevelDebug, msg, nil, kv...)
}

func (l *Logger) Info(msg string, kv ...any) {
	l.logWithLevel(LevelInfo, msg, nil, kv...)
}

func (l *Logger) Warn(msg string, kv ...any) {
	l.logWithLevel(LevelWarn, msg, nil, kv...)
}

func (l *Logger) Error(msg string, err error, kv ...any) {
	l.logWithLevel(LevelError, msg, err, kv...)
}

func (l *Logger) logWithLevel(level Level, msg string, err error, kv ...any) {
	if !l.Enabled(level) {
		return
	}
	e := l.zl.WithLevel(level.zerolog())
	if e == nil {
		return
	}
	if err != nil {
		e = e.Err(err)
	}
	if len(kv) > 0 {
		e = e.Fields(pairs(kv))
	}
	e.Msg(msg)
}

// pairs drops a trailing key without a value and any non-string key, so
// a malformed call never panics inside zerolog.
func pairs(kv []any) []any {
	out := make([]any, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, key, kv[i+1])
	}
	return out
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
