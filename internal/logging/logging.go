// Package logging declares the structured logger interface shared by every
// core component, so that none of them import log/slog directly; only
// cmd/client wires a concrete handler.
package logging

// Logger is a standard interface for structured, leveled logging. Its
// Debug/Info/Warn/Error methods match *slog.Logger's own signatures, but
// With must return a Logger rather than *slog.Logger, so a thin adapter
// (slogLogger, in slog.go) is what actually satisfies this interface.
// cmd/client wraps its *slog.Logger with FromSlog before passing it down
// to every component.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// noop discards everything. Used where a caller doesn't wire a logger,
// e.g. in tests.
type noop struct{}

// Noop returns a Logger that discards all messages.
func Noop() Logger { return noop{} }

func (noop) Debug(string, ...any)  {}
func (noop) Info(string, ...any)   {}
func (noop) Warn(string, ...any)   {}
func (noop) Error(string, ...any)  {}
func (n noop) With(...any) Logger  { return n }
