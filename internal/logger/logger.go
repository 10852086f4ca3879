// Package logger is the structured logger used by every schemadigest package.
// It wraps zerolog so callers never import it directly.
//
// Logs go to stderr by default; the CLI writes digests to stdout and the two
// streams must never mix.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/koustreak/schemadigest/internal/errs"
)

type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	TimeFormat string // rfc3339, unix, unixms, unixmicro
	Output     io.Writer
}

// DefaultConfig logs JSON at info level to stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "json",
		TimeFormat: "rfc3339",
		Output:     os.Stderr,
	}
}

// Validate rejects unknown levels and formats. Empty fields fall back to the
// defaults and are accepted.
func (c *Config) Validate() error {
	if c.Level != "" {
		if _, ok := levels[c.Level]; !ok {
			return errs.Newf(errs.ErrKindInvalidInput, "log.level must be debug, info, warn or error, got %q", c.Level)
		}
	}
	switch c.Format {
	case "", "json", "console":
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "log.format must be json or console, got %q", c.Format)
	}
	return nil
}

// New creates a logger from cfg. A nil cfg means DefaultConfig; unknown
// levels log at info.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = timeFormat(cfg.TimeFormat)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, ok := levels[cfg.Level]
	if !ok {
		level = zerolog.InfoLevel
	}
	return &Logger{zlog: zerolog.New(out).With().Timestamp().Logger().Level(level)}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// With creates a child logger with additional fields
func (l *Logger) With() *Context {
	return &Context{ctx: l.zlog.With()}
}

// Context wraps zerolog.Context for field chaining
type Context struct {
	ctx zerolog.Context
}

func (c *Context) Str(key, val string) *Context {
	c.ctx = c.ctx.Str(key, val)
	return c
}

func (c *Context) Int(key string, val int) *Context {
	c.ctx = c.ctx.Int(key, val)
	return c
}

func (c *Context) Logger() *Logger {
	return &Logger{zlog: c.ctx.Logger()}
}

func (l *Logger) Debug(msg string) { l.zlog.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zlog.Info().Msg(msg) }

// WarnWith logs msg with err and fields attached. Used for failures the
// caller recovers from, such as a sample query that could not run.
func (l *Logger) WarnWith(msg string, err error, fields map[string]interface{}) {
	l.zlog.Warn().Err(err).Fields(fields).Msg(msg)
}

func (l *Logger) ErrorWith(msg string, err error, fields map[string]interface{}) {
	l.zlog.Error().Err(err).Fields(fields).Msg(msg)
}

var levels = map[string]zerolog.Level{
	"debug": zerolog.DebugLevel,
	"info":  zerolog.InfoLevel,
	"warn":  zerolog.WarnLevel,
	"error": zerolog.ErrorLevel,
}

func timeFormat(format string) string {
	switch format {
	case "unix":
		return zerolog.TimeFormatUnix
	case "unixms":
		return zerolog.TimeFormatUnixMs
	case "unixmicro":
		return zerolog.TimeFormatUnixMicro
	default:
		return time.RFC3339
	}
}
