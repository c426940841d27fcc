// Package dlog is the injected logging sink every das2go package writes
// through instead of calling the log package directly, mirroring das2C's
// daslog_{info,warn,error,debug} global dispatcher (SPEC_FULL.md's ambient
// logging section) in the leveled-wrapper style of github.com/m-lab/go/logx.
package dlog

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Level orders severity; a Logger only emits events at or above its
// configured Level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a named, leveled sink built with New; the zero value has no
// output and is not usable. Default logs at LevelInfo to stderr, matching
// das2C's default (nothing suppressed but debug chatter).
type Logger struct {
	name  string
	level Level
	out   *log.Logger
}

// New returns a Logger tagged name, writing to stderr at level and above.
func New(name string, level Level) *Logger {
	return &Logger{name: name, level: level, out: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *Logger) emit(lvl Level, format string, args []any) {
	if l == nil || lvl < l.level {
		return
	}

	l.out.Printf("%s [%s] %s", lvl, l.name, fmt.Sprintf(format, args...))
}

// Debugf logs at LevelDebug.
func (l *Logger) Debugf(format string, args ...any) { l.emit(LevelDebug, format, args) }

// Infof logs at LevelInfo.
func (l *Logger) Infof(format string, args ...any) { l.emit(LevelInfo, format, args) }

// Warnf logs at LevelWarn.
func (l *Logger) Warnf(format string, args ...any) { l.emit(LevelWarn, format, args) }

// Errorf logs at LevelError.
func (l *Logger) Errorf(format string, args ...any) { l.emit(LevelError, format, args) }

// SetOutput redirects where l writes, e.g. to a test's bytes.Buffer.
func (l *Logger) SetOutput(w io.Writer) { l.out.SetOutput(w) }

// Default is the package-wide logger every das2go component falls back to
// when it isn't given one explicitly (e.g. via config.WithLogger).
var Default = New("das2go", LevelInfo)
