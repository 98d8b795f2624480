package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kestrelhq/kestrel-sync/internal/infrastructure/config"
)

// Logger is slog with the daemon's default fields (service, version)
// attached to every record. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a logger from configuration. Unknown levels fall back to info,
// unknown formats to JSON, unknown outputs to stdout.
func New(cfg config.LoggingConfig, version string) *Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return &Logger{Logger: slog.New(newHandler(out, cfg, version))}
}

func newHandler(out io.Writer, cfg config.LoggingConfig, version string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	} else {
		h = slog.NewJSONHandler(out, opts)
	}

	return h.WithAttrs([]slog.Attr{
		slog.String("service", "kestrel-sync"),
		slog.String("version", version),
	})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying additional default attributes, e.g.
// logger.With("component", "push").
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the logger used during early startup, before configuration is
// available: JSON to stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
