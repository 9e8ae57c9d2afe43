// Package logx configures partnerline's structured logging on top of zerolog.
package logx

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// New builds the process logger. Console output is human readable; otherwise
// one JSON object per line goes to stdout.
func New(level string, console bool) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, console)
}

func NewWithWriter(w io.Writer, level string, console bool) zerolog.Logger {
	zerolog.ErrorFieldName = "err"
	zerolog.TimeFieldFormat = consoleTimeFormat

	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
	}
	return zerolog.New(w).Level(ParseLevel(level, zerolog.InfoLevel)).With().Timestamp().Logger()
}

// Nop returns a logger that never writes anything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// ParseLevel maps a config string onto a zerolog level, falling back to def.
func ParseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return def
	}
}

// CronLogger adapts a zerolog logger to robfig/cron's Logger interface.
type CronLogger struct {
	Log zerolog.Logger
}

func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	withPairs(c.Log.Debug(), keysAndValues).Msg(msg)
}

func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	withPairs(c.Log.Error().Err(err), keysAndValues).Msg(msg)
}

func withPairs(e *zerolog.Event, kv []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		e = e.Interface(fmt.Sprint(kv[i]), kv[i+1])
	}
	return e
}
