// internal/console/logger.go
package console

import (
	"io"
	"log/slog"
)

// NewLogger builds the binaries' logger. format "json" selects slog's JSON
// handler; anything else the coloured console handler.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	logLevel := new(slog.LevelVar)
	setLogLevel(level, logLevel)

	opts := &slog.HandlerOptions{Level: logLevel}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(NewHandler(w, opts))
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
