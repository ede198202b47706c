// Package observability provides the structured-logging, metrics, and
// tracing stack shared by every component of the orchestrator service.
package observability

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// LogConfig configures the process-wide logger built by NewSlogLogger.
type LogConfig struct {
	Level          string // "debug", "info", "warn", "error"
	Format         string // "json" or "text"
	AddSource      bool
	RedactPatterns []string // additional patterns merged with DefaultRedactPatterns
}

// DefaultRedactPatterns covers the secret shapes most likely to land in a
// log line by accident: API keys passed as key=value pairs, bearer tokens,
// Anthropic keys, and JWTs.
var DefaultRedactPatterns = []string{
	`(?i)(api[_-]?key|apikey)[\s:=]+["']?([a-zA-Z0-9_\-]{16,})["']?`,
	`(?i)(bearer|token)[\s:]+([a-zA-Z0-9_\-.]{16,})`,
	`(?i)(secret|password|passwd|pwd)[\s:=]+["']?([^\s"']{8,})["']?`,
	`sk-ant-[a-zA-Z0-9_-]{95,}`,
	`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`,
}

// NewSlogLogger builds the process-wide *slog.Logger: a JSON or text
// handler at the configured level, wrapped with a redactingHandler so any
// message or attribute matching DefaultRedactPatterns (or the caller's
// RedactPatterns) is scrubbed before it reaches the sink. Every package in
// this service that accepts a *slog.Logger should receive one built here,
// not slog.Default().
func NewSlogLogger(cfg LogConfig) *slog.Logger {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	patterns := make([]string, 0, len(DefaultRedactPatterns)+len(cfg.RedactPatterns))
	patterns = append(patterns, DefaultRedactPatterns...)
	patterns = append(patterns, cfg.RedactPatterns...)

	return slog.New(newRedactingHandler(handler, patterns))
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

// redactingHandler wraps an slog.Handler and scrubs any attribute value
// matching one of its patterns before delegating to the wrapped handler.
type redactingHandler struct {
	next    slog.Handler
	redacts []*regexp.Regexp
}

func newRedactingHandler(next slog.Handler, patterns []string) *redactingHandler {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			compiled = append(compiled, re)
		}
	}
	return &redactingHandler{next: next, redacts: compiled}
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, record slog.Record) error {
	record.Message = h.redact(record.Message)
	redacted := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, redacted)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &redactingHandler{next: h.next.WithAttrs(redacted), redacts: h.redacts}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{next: h.next.WithGroup(name), redacts: h.redacts}
}

func (h *redactingHandler) redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, h.redact(a.Value.String()))
	}
	return a
}

func (h *redactingHandler) redact(s string) string {
	for _, re := range h.redacts {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}
