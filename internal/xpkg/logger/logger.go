package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

// Logger is a structured JSON logger. Every record carries the hostname and,
// once set through Action, the action that produced it.
type Logger struct {
	l *slog.Logger
}

type ctxKey struct{}

// New builds a logger writing to stdout at the given level
// (DEBUG, INFO, WARN, ERROR).
func New(level string) (Logger, error) {
	return NewWithWriter(os.Stdout, level)
}

func NewWithWriter(w io.Writer, level string) (Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return Logger{}, err
	}

	hostname, _ := os.Hostname()
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				a.Key = "timestamp"
				a.Value = slog.StringValue(a.Value.Time().UTC().Format("2006-01-02T15:04:05.000Z07:00"))
			case slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	})
	return Logger{l: slog.New(h).With("hostname", hostname)}, nil
}

// Nop discards everything. Used by tests.
func Nop() Logger {
	return Logger{l: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level: %s", level)
}

func (lg Logger) logger() *slog.Logger {
	if lg.l == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return lg.l
}

func (lg Logger) Action(action string) Logger {
	return Logger{l: lg.logger().With("action", action)}
}

func (lg Logger) With(args ...any) Logger {
	return Logger{l: lg.logger().With(args...)}
}

func (lg Logger) WithGroup(name string) Logger {
	return Logger{l: lg.logger().WithGroup(name)}
}

func (lg Logger) Debug(msg string, args ...any) {
	lg.logger().Debug(msg, args...)
}

func (lg Logger) Info(msg string, args ...any) {
	lg.logger().Info(msg, args...)
}

func (lg Logger) Warn(msg string, args ...any) {
	lg.logger().Warn(msg, args...)
}

// Error logs msg with the error message and the caller stack.
func (lg Logger) Error(msg string, err error, args ...any) {
	errMsg := "<nil>"
	if err != nil {
		errMsg = err.Error()
	}
	buf := make([]byte, 1024)
	n := runtime.Stack(buf, false)

	args = append(args, slog.Group("error", "msg", errMsg, "stack", string(buf[:n])))
	lg.logger().Error(msg, args...)
}

// WithContext stores the logger in ctx, for handlers that receive the logger
// through a request.
func WithContext(ctx context.Context, lg Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, lg)
}

// FromContext returns the logger stored by WithContext or fallback.
func FromContext(ctx context.Context, fallback Logger) Logger {
	if lg, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return lg
	}
	return fallback
}
