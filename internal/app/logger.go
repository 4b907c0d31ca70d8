package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger: JSON in production-style
// deployments, text everywhere else. Source locations are attached so
// integrity-kind errors point at the violating call site.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("app", "andino"))
}
