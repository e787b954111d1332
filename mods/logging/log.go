package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

type Log interface {
	io.Writer

	TraceEnabled() bool
	Trace(...any)
	Tracef(format string, args ...any)
	DebugEnabled() bool
	Debug(...any)
	Debugf(format string, args ...any)
	InfoEnabled() bool
	Info(...any)
	Infof(format string, args ...any)
	WarnEnabled() bool
	Warn(...any)
	Warnf(format string, args ...any)
	ErrorEnabled() bool
	Error(...any)
	Errorf(format string, args ...any)

	LogEnabled(level Level) bool
	Logf(level Level, format string, args ...any)

	SetLevel(level Level)
	Level() Level
}

type levelLogger struct {
	name        string
	level       Level
	underlying  []*logWriter
	prefixWidth int
	// slog compat
	attrs  []slog.Attr
	filter func(name string, r slog.Record) bool
}

var _ Log = (*levelLogger)(nil)

func (l *levelLogger) SetLevel(level Level) { l.level = level }
func (l *levelLogger) Level() Level         { return l.level }

func (l *levelLogger) TraceEnabled() bool { return l.level <= LevelTrace }
func (l *levelLogger) DebugEnabled() bool { return l.level <= LevelDebug }
func (l *levelLogger) InfoEnabled() bool  { return l.level <= LevelInfo }
func (l *levelLogger) WarnEnabled() bool  { return l.level <= LevelWarn }
func (l *levelLogger) ErrorEnabled() bool { return l.level <= LevelError }

func (l *levelLogger) LogEnabled(lvl Level) bool { return l.level <= lvl }

func (l *levelLogger) Trace(m ...any) { l.logf(LevelTrace, "", m) }
func (l *levelLogger) Debug(m ...any) { l.logf(LevelDebug, "", m) }
func (l *levelLogger) Info(m ...any)  { l.logf(LevelInfo, "", m) }
func (l *levelLogger) Warn(m ...any)  { l.logf(LevelWarn, "", m) }
func (l *levelLogger) Error(m ...any) { l.logf(LevelError, "", m) }

func (l *levelLogger) Tracef(format string, args ...any)          { l.logf(LevelTrace, format, args) }
func (l *levelLogger) Debugf(format string, args ...any)          { l.logf(LevelDebug, format, args) }
func (l *levelLogger) Infof(format string, args ...any)           { l.logf(LevelInfo, format, args) }
func (l *levelLogger) Warnf(format string, args ...any)           { l.logf(LevelWarn, format, args) }
func (l *levelLogger) Errorf(format string, args ...any)          { l.logf(LevelError, format, args) }
func (l *levelLogger) Logf(lvl Level, format string, args ...any) { l.logf(lvl, format, args) }

// Write lets the logger be the output of other loggers.
func (l *levelLogger) Write(buff []byte) (n int, err error) {
	ts := time.Now().Format("2006/01/02 15:04:05.000") + " -     "
	for _, w := range l.underlying {
		w.Write([]byte(ts))
		n, err = w.Write(buff)
	}
	return
}

const (
	yellow = "\033[90;43m"
	red    = "\033[97;41m"
	reset  = "\033[0m"
)

func (l *levelLogger) logf(lvl Level, format string, args []any) {
	if lvl < l.level {
		return
	}

	totalCounter.Inc(1)
	if lvl == LevelWarn {
		warnCounter.Inc(1)
	} else if lvl >= LevelError {
		errorCounter.Inc(1)
	}

	var msg string
	if format == "" {
		toks := make([]string, len(args))
		for i, a := range args {
			if s, ok := a.(string); ok {
				toks[i] = s
			} else {
				toks[i] = fmt.Sprintf("%v", a)
			}
		}
		msg = strings.Join(toks, " ")
	} else {
		msg = fmt.Sprintf(format, args...)
	}
	for _, a := range l.attrs {
		msg += fmt.Sprintf(" %s=%v", a.Key, a.Value)
	}

	name := fmt.Sprintf("%-*s", l.prefixWidth, l.name)
	timestamp := time.Now().Format("2006/01/02 15:04:05.000")
	levelName := fmt.Sprintf("%-5s", LogLevelName(lvl))

	for _, w := range l.underlying {
		if w.isTerm {
			colorBegin, colorEnd := "", ""
			if lvl == LevelWarn {
				colorBegin, colorEnd = yellow, reset
			} else if lvl >= LevelError {
				colorBegin, colorEnd = red, reset
			}
			fmt.Fprintf(w, "%s %s%s%s %s %s\n", timestamp, colorBegin, levelName, colorEnd, name, msg)
		} else {
			fmt.Fprintf(w, "%s %s %s %s\n", timestamp, levelName, name, msg)
		}
	}
}
