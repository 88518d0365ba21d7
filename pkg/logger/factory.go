package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format represents logger output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Deployment environments recognised by WithEnvironment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Option configures logger creation.
type Option func(*config)

func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

// WithLevelName parses "debug", "info", "warn" or "error".
// Unknown names leave the level unchanged.
func WithLevelName(name string) Option {
	return func(c *config) {
		var l slog.Level
		if err := l.UnmarshalText([]byte(strings.TrimSpace(name))); err == nil {
			c.level = l
		}
	}
}

// WithFormat sets output format. Panics on unknown formats: a misconfigured
// logger must stop startup.
func WithFormat(f Format) Option {
	return func(c *config) {
		switch f {
		case FormatJSON, FormatText:
			c.format = f
		default:
			panic(fmt.Errorf("invalid log format %q: must be %q or %q", f, FormatJSON, FormatText))
		}
	}
}

// WithOutput sets the destination. Nil writers are ignored.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithAttr adds static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// WithContextExtractors registers functions that inject attributes from context.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(c *config) {
		for _, ex := range extractors {
			if ex != nil {
				c.extractors = append(c.extractors, ex)
			}
		}
	}
}

// WithEnvironment applies the preset for env: text/debug for development,
// json/info otherwise. "prod" and "stage" are accepted as aliases.
func WithEnvironment(env, service string) Option {
	return func(c *config) {
		switch env {
		case EnvProduction, "prod":
			c.preset(EnvProduction, service, slog.LevelInfo, FormatJSON)
		case EnvStaging, "stage":
			c.preset(EnvStaging, service, slog.LevelInfo, FormatJSON)
		default:
			c.preset(EnvDevelopment, service, slog.LevelDebug, FormatText)
		}
	}
}

// WithRedactedKeys adds attribute keys whose values are replaced with
// "[REDACTED]". Passwords, codes and tokens are redacted by default.
func WithRedactedKeys(keys ...string) Option {
	return func(c *config) {
		for _, k := range keys {
			c.redact[strings.ToLower(k)] = struct{}{}
		}
	}
}

func SetAsDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

type config struct {
	level      slog.Level
	format     Format
	output     io.Writer
	attrs      []slog.Attr
	extractors []ContextExtractor
	redact     map[string]struct{}
}

var defaultRedacted = []string{"password", "code", "pending_token", "token", "secret", "backup_code"}

func (c *config) replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if _, ok := c.redact[strings.ToLower(a.Key)]; ok && a.Value.Kind() != slog.KindGroup {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}

func (c *config) preset(env, service string, level slog.Level, format Format) {
	c.level = level
	c.format = format
	if service != "" {
		c.attrs = append(c.attrs, slog.String("service", service))
	}
	c.attrs = append(c.attrs, slog.String("env", env))
}

// New creates a slog.Logger. Registered extractors run on every record.
// Defaults: JSON, info, stdout.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
		redact: make(map[string]struct{}),
	}
	WithRedactedKeys(defaultRedacted...)(cfg)
	for _, opt := range opts {
		opt(cfg)
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.level, ReplaceAttr: cfg.replaceAttr}

	var handler slog.Handler
	if cfg.format == FormatText {
		handler = slog.NewTextHandler(cfg.output, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(cfg.output, handlerOpts)
	}

	if len(cfg.attrs) > 0 {
		handler = handler.WithAttrs(cfg.attrs)
	}

	return slog.New(withContext(handler, cfg.extractors))
}

// Discard returns a logger that drops everything. Components use it when no
// logger is supplied.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
