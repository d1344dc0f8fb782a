package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide root logger. Components derive a child
// via WithComponent at construction and log through that; the root is
// only written to directly by cmd/ wiring code.
var Logger zerolog.Logger

// Level names a log severity threshold.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer // defaults to os.Stdout
}

// Init initializes the root logger. Call once at process start,
// before any component is constructed.
func Init(cfg Config) {
	zerolog.SetGlobalLevel(cfg.Level.zerolog())

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if !cfg.JSONOutput {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	Logger = zerolog.New(out).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with a component name
// ("scm", "ksm", "datanode-endpoint", "containerclient").
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithDatanode returns a child logger tagged with a datanode UUID.
func WithDatanode(uuid string) zerolog.Logger {
	return Logger.With().Str("datanode_id", uuid).Logger()
}

// WithContainer returns a child logger tagged with a container name.
func WithContainer(name string) zerolog.Logger {
	return Logger.With().Str("container", name).Logger()
}

// WithVolume returns a child logger tagged with a volume name.
func WithVolume(name string) zerolog.Logger {
	return Logger.With().Str("volume", name).Logger()
}

// Info logs through the root logger. Wiring code in cmd/ uses this;
// components log through their own child logger instead.
func Info(msg string) {
	Logger.Info().Msg(msg)
}
