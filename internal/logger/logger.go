// Package logger provides process-wide structured logging built on zerolog.
// It mirrors the free-function style the original agent runtime used
// (logger.Info/Warn/...), but emits structured fields so authenticity-gate
// failures and cache-ledger events can be greped and correlated in
// regulated/diligence deployments.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log zerolog.Logger
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Configure redirects output and sets the minimum level. Call once at
// process startup; safe to call again in tests.
func Configure(w io.Writer, level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	log = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Fields is a shorthand for structured key/value context.
type Fields map[string]any

// With returns a child logger carrying the given fields on every entry,
// e.g. logger.With(logger.Fields{"doc_id": id, "theme": theme}).Info("scored").
func With(fields Fields) *Entry {
	ctx := current().With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Entry{l: ctx.Logger()}
}

// Entry is a logger bound to a fixed set of structured fields.
type Entry struct{ l zerolog.Logger }

func (e *Entry) Info(msg string)  { e.l.Info().Msg(msg) }
func (e *Entry) Warn(msg string)  { e.l.Warn().Msg(msg) }
func (e *Entry) Error(msg string) { e.l.Error().Msg(msg) }

func Info(msg string)  { current().Info().Msg(msg) }
func Warn(msg string)  { current().Warn().Msg(msg) }
func Error(msg string) { current().Error().Msg(msg) }

// Fatal logs at error level and terminates the process. Reserved for the
// fatal-at-gate-level error classes in the error taxonomy (determinism
// divergence, provenance breakage, rubric/index structural errors).
func Fatal(msg string) {
	current().Error().Msg(msg)
	os.Exit(1)
}
