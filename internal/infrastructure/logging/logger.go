package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/config"
)

// ServiceName is attached to every log entry.
const ServiceName = "inelsbridge"

// Logger is a slog.Logger carrying the service and version fields. Child
// loggers made with With or Component share their parent's level.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New builds a Logger for cfg. Output "stderr" selects standard error;
// anything else writes to standard output.
func New(cfg config.LoggingConfig, version string) *Logger {
	out := io.Writer(os.Stdout)
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return NewWithWriter(cfg, version, out)
}

// NewWithWriter builds a Logger writing to w; cfg.Output is ignored.
// Format "text" selects slog's text handler, anything else JSON.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.Level))

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	}

	base := slog.New(h).With(
		slog.String("service", ServiceName),
		slog.String("version", version),
	)
	return &Logger{Logger: base, level: level}
}

// Default returns an info-level JSON logger on stdout, used until the
// configuration has been read.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json"}, "dev")
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewWithWriter(config.LoggingConfig{Level: "error"}, "", io.Discard)
}

// parseLevel maps a configured level name onto slog; unknown or empty
// names mean info.
func parseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SetLevel changes the minimum level of l and every logger derived from it.
func (l *Logger) SetLevel(name string) {
	l.level.Set(parseLevel(name))
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// With returns a child logger with extra attributes.
//
//	l := logger.With("device_id", id)
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), level: l.level}
}

// Component returns a child logger tagged component=name.
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}
