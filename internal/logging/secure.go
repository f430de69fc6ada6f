// Package logging provides secure logging utilities with credential sanitization.
package logging

import (
	"github.com/olegiv/go-logger"
	internalerrors "github.com/olegiv/logreport-ai-go/internal/errors"
	"github.com/rs/zerolog"
)

// eventSource is the part of a logger that starts events.
// Both *logger.Logger and *zerolog.Logger satisfy it.
type eventSource interface {
	Info() *zerolog.Event
	Debug() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
}

type field struct {
	key, val string
}

// SecureLogger wraps a logger.Logger and sanitizes all string values
// to prevent accidental credential exposure in logs.
type SecureLogger struct {
	log    eventSource
	closer func() error
	fields []field
}

// NewSecure creates a new SecureLogger wrapper around the provided logger.
func NewSecure(log *logger.Logger) *SecureLogger {
	return &SecureLogger{log: log, closer: log.Close}
}

// Nop returns a SecureLogger that discards everything. Handy in tests.
func Nop() *SecureLogger {
	zl := zerolog.Nop()
	return &SecureLogger{log: &zl}
}

// SecureEvent wraps a zerolog Event to provide secure string methods.
type SecureEvent struct {
	event *zerolog.Event
}

// With returns a child logger that carries a sanitized string field on every event.
// The child shares the parent's output; only the root should be closed.
func (s *SecureLogger) With(key, val string) *SecureLogger {
	fields := make([]field, len(s.fields), len(s.fields)+1)
	copy(fields, s.fields)
	return &SecureLogger{
		log:    s.log,
		fields: append(fields, field{key: key, val: internalerrors.SanitizeString(val)}),
	}
}

func (s *SecureLogger) wrap(event *zerolog.Event) *SecureEvent {
	for _, f := range s.fields {
		event = event.Str(f.key, f.val)
	}
	return &SecureEvent{event: event}
}

// Info starts a new info-level log event with credential sanitization.
func (s *SecureLogger) Info() *SecureEvent {
	return s.wrap(s.log.Info())
}

// Debug starts a new debug-level log event with credential sanitization.
func (s *SecureLogger) Debug() *SecureEvent {
	return s.wrap(s.log.Debug())
}

// Warn starts a new warn-level log event with credential sanitization.
func (s *SecureLogger) Warn() *SecureEvent {
	return s.wrap(s.log.Warn())
}

// Error starts a new error-level log event with credential sanitization.
func (s *SecureLogger) Error() *SecureEvent {
	return s.wrap(s.log.Error())
}

// Close closes the underlying logger.
func (s *SecureLogger) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// Str adds a sanitized string field to the log event.
func (e *SecureEvent) Str(key, val string) *SecureEvent {
	e.event.Str(key, internalerrors.SanitizeString(val))
	return e
}

// Strs adds a sanitized string slice field to the log event.
func (e *SecureEvent) Strs(key string, vals []string) *SecureEvent {
	sanitized := make([]string, len(vals))
	for i, v := range vals {
		sanitized[i] = internalerrors.SanitizeString(v)
	}
	e.event.Strs(key, sanitized)
	return e
}

// Int adds an integer field to the log event.
func (e *SecureEvent) Int(key string, val int) *SecureEvent {
	e.event.Int(key, val)
	return e
}

// Int64 adds an int64 field to the log event.
func (e *SecureEvent) Int64(key string, val int64) *SecureEvent {
	e.event.Int64(key, val)
	return e
}

// Float64 adds a float64 field to the log event.
func (e *SecureEvent) Float64(key string, val float64) *SecureEvent {
	e.event.Float64(key, val)
	return e
}

// Bool adds a boolean field to the log event.
func (e *SecureEvent) Bool(key string, val bool) *SecureEvent {
	e.event.Bool(key, val)
	return e
}

// Err adds a sanitized error field to the log event.
func (e *SecureEvent) Err(err error) *SecureEvent {
	if err != nil {
		e.event.Err(internalerrors.SanitizeError(err))
	}
	return e
}

// Msg sends the log event with a sanitized message.
func (e *SecureEvent) Msg(msg string) {
	e.event.Msg(internalerrors.SanitizeString(msg))
}

// Msgf sends a formatted log event with sanitized format arguments.
// Only string and error arguments are sanitized; other types pass through unchanged.
func (e *SecureEvent) Msgf(format string, v ...interface{}) {
	sanitizedArgs := make([]interface{}, len(v))
	for i, arg := range v {
		switch a := arg.(type) {
		case string:
			sanitizedArgs[i] = internalerrors.SanitizeString(a)
		case error:
			sanitizedArgs[i] = internalerrors.SanitizeError(a)
		default:
			sanitizedArgs[i] = arg
		}
	}
	e.event.Msgf(format, sanitizedArgs...)
}
