// Package logger provides structured, leveled, component-tagged logging used
// across the gateway. The surface (InfoC/InfoCF/ErrorCF/SetLevel) mirrors the
// call convention every other package in this tree was written against; the
// backend is zerolog.
package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Level is the minimum severity that will be emitted.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

var (
	mu  sync.Mutex
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// SetLevel sets the minimum log level for the default logger.
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	log = log.Level(level.zerolog())
}

// SetOutput redirects the default logger, e.g. to a file in tests.
func SetOutput(w zerolog.ConsoleWriter) {
	mu.Lock()
	defer mu.Unlock()
	log = log.Output(w)
}

func fields(ev *zerolog.Event, f map[string]any) *zerolog.Event {
	for k, v := range f {
		ev = ev.Interface(k, v)
	}
	return ev
}

// DebugC logs a debug message tagged with a component name.
func DebugC(component, msg string) {
	mu.Lock()
	l := log
	mu.Unlock()
	l.Debug().Str("component", component).Msg(msg)
}

// DebugCF logs a debug message tagged with a component name and fields.
func DebugCF(component, msg string, f map[string]any) {
	mu.Lock()
	l := log
	mu.Unlock()
	fields(l.Debug().Str("component", component), f).Msg(msg)
}

// InfoC logs an informational message tagged with a component name.
func InfoC(component, msg string) {
	mu.Lock()
	l := log
	mu.Unlock()
	l.Info().Str("component", component).Msg(msg)
}

// InfoCF logs an informational message tagged with a component name and fields.
func InfoCF(component, msg string, f map[string]any) {
	mu.Lock()
	l := log
	mu.Unlock()
	fields(l.Info().Str("component", component), f).Msg(msg)
}

// WarnC logs a warning message tagged with a component name.
func WarnC(component, msg string) {
	mu.Lock()
	l := log
	mu.Unlock()
	l.Warn().Str("component", component).Msg(msg)
}

// WarnCF logs a warning message tagged with a component name and fields.
func WarnCF(component, msg string, f map[string]any) {
	mu.Lock()
	l := log
	mu.Unlock()
	fields(l.Warn().Str("component", component), f).Msg(msg)
}

// ErrorC logs an error message tagged with a component name.
func ErrorC(component, msg string) {
	mu.Lock()
	l := log
	mu.Unlock()
	l.Error().Str("component", component).Msg(msg)
}

// ErrorCF logs an error message tagged with a component name and fields.
func ErrorCF(component, msg string, f map[string]any) {
	mu.Lock()
	l := log
	mu.Unlock()
	fields(l.Error().Str("component", component), f).Msg(msg)
}
