package logging

import "log/slog"

// slogLogger adapts *slog.Logger to Logger.
type slogLogger struct{ l *slog.Logger }

// FromSlog wraps an *slog.Logger as a Logger, the adapter cmd/client
// installs at startup (slog.NewJSONHandler(os.Stdout, nil)).
func FromSlog(l *slog.Logger) Logger { return slogLogger{l} }

func (s slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }
func (s slogLogger) With(args ...any) Logger       { return slogLogger{s.l.With(args...)} }
