// Package logger configures log/slog for the binaries and hands out
// per-component loggers.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Level     slog.Level
	Format    string // "text" or "json"
	Output    io.Writer
	AddSource bool
}

func DefaultConfig() Config {
	return Config{Level: slog.LevelInfo, Format: "text", Output: os.Stderr}
}

// Init installs the configured handler as the slog default.
func Init(cfg Config) {
	slog.SetDefault(slog.New(NewHandler(cfg)))
}

func NewHandler(cfg Config) slog.Handler {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	if cfg.Format == "json" {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

// ParseLevel accepts the slog level names plus "warning". Blank means info.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// ForComponent returns a logger tagged with component. Package-level
// loggers are built before Init runs, so records are routed through
// whatever slog.Default is at the time they are written.
func ForComponent(component string) *slog.Logger {
	return slog.New(lateHandler{}).With("component", component)
}

// lateHandler replays its attrs and groups onto slog.Default's handler.
type lateHandler struct {
	chain []func(slog.Handler) slog.Handler
}

func (h lateHandler) target() slog.Handler {
	next := slog.Default().Handler()
	for _, wrap := range h.chain {
		next = wrap(next)
	}
	return next
}

func (h lateHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slog.Default().Handler().Enabled(ctx, level)
}

func (h lateHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.target().Handle(ctx, r)
}

func (h lateHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.then(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h lateHandler) WithGroup(name string) slog.Handler {
	return h.then(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h lateHandler) then(wrap func(slog.Handler) slog.Handler) slog.Handler {
	chain := make([]func(slog.Handler) slog.Handler, len(h.chain), len(h.chain)+1)
	copy(chain, h.chain)
	return lateHandler{chain: append(chain, wrap)}
}
