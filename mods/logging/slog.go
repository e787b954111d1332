package logging

import (
	"context"
	"fmt"
	"log/slog"
)

// Wrap returns a slog.Logger writing through l.
// filter, if not nil, drops the records for which it returns false.
func Wrap(l Log, filter func(name string, r slog.Record) bool) *slog.Logger {
	if h, ok := l.(*levelLogger); ok {
		return slog.New(&levelLogger{
			name:        h.name,
			level:       h.level,
			underlying:  h.underlying,
			prefixWidth: h.prefixWidth,
			attrs:       h.attrs,
			filter:      filter,
		})
	}
	return slog.Default()
}

func toLevel(level slog.Level) Level {
	switch {
	case level < slog.LevelInfo:
		return LevelDebug
	case level < slog.LevelWarn:
		return LevelInfo
	case level < slog.LevelError:
		return LevelWarn
	default:
		return LevelError
	}
}

func (l *levelLogger) Enabled(_ context.Context, level slog.Level) bool {
	return l.LogEnabled(toLevel(level))
}

func (l *levelLogger) Handle(_ context.Context, r slog.Record) error {
	if l.filter != nil && !l.filter(l.name, r) {
		return nil
	}
	args := []any{r.Message}
	r.Attrs(func(a slog.Attr) bool {
		args = append(args, fmt.Sprintf("%v=%v", a.Key, a.Value))
		return true
	})
	l.logf(toLevel(r.Level), "", args)
	return nil
}

func (l *levelLogger) WithAttrs(attrs []slog.Attr) slog.Handler {
	ret := *l
	ret.attrs = append(append([]slog.Attr{}, l.attrs...), attrs...)
	return &ret
}

// WithGroup switches to the logger named after the group.
func (l *levelLogger) WithGroup(name string) slog.Handler {
	if name == "" {
		return l
	}
	ret := GetLog(name).(*levelLogger)
	ret.filter = l.filter
	return ret
}
