// Package logging provides structured logging for the CLI host and embedded browsers.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rescale/pathbrowser/internal/events"
)

// Mode selects where records go and how they look.
type Mode string

const (
	// ModeCLI writes colored console records to stderr; stdout carries listings.
	ModeCLI Mode = "cli"
	// ModeEmbedded writes plain records and mirrors warnings onto the event bus.
	ModeEmbedded Mode = "embedded"
	ModeNop      Mode = "nop"
)

const timeFormat = "15:04:05"

// Logger wraps zerolog with mode-specific behavior.
type Logger struct {
	zlog   zerolog.Logger
	mode   Mode
	bus    *events.EventBus
	output io.Writer
}

// NewLogger creates a logger for mode writing to stderr. A non-nil bus
// receives every warning and error as an events.LogEvent.
func NewLogger(mode Mode, bus *events.EventBus) *Logger {
	l := &Logger{mode: mode, bus: bus}
	l.SetOutput(os.Stderr)
	return l
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop(), mode: ModeNop, output: io.Discard}
}

func NewDefaultCLILogger() *Logger {
	return NewLogger(ModeCLI, nil)
}

// busHook forwards warn and error records to the event bus.
type busHook struct {
	bus *events.EventBus
}

func (h busHook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	switch {
	case level == zerolog.WarnLevel:
		h.bus.PublishLog(events.WarnLevel, msg, "browser", nil)
	case level >= zerolog.ErrorLevel && level <= zerolog.PanicLevel:
		h.bus.PublishLog(events.ErrorLevel, msg, "browser", nil)
	}
}

func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zlog.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zlog.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

// Debugf logs a formatted debug message, shown only with --verbose.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zlog.Debug().Msgf(format, args...)
}

// Child returns a Logger carrying the fields added by fn. Later SetOutput
// calls on the parent do not affect it.
func (l *Logger) Child(fn func(zerolog.Context) zerolog.Context) *Logger {
	child := *l
	child.zlog = fn(l.zlog.With()).Logger()
	return &child
}

// SetOutput redirects the logger, for example above a set of progress bars.
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
	if l.mode == ModeNop {
		return
	}
	zl := zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: timeFormat,
		NoColor:    l.mode != ModeCLI,
	}).With().Timestamp().Logger()
	if l.bus != nil {
		zl = zl.Hook(busHook{bus: l.bus})
	}
	l.zlog = zl
}

// Output returns the current output writer.
func (l *Logger) Output() io.Writer {
	return l.output
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: timeFormat})
}
