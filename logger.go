package micropods

// Logger defines the interface for structured logging used across the
// composition layer, the event bus, the translation engine and the shell.
//
// Arguments are key-value pairs:
//
//	logger.Info("Built descriptor", "pod", "pod_dashboard", "remotes", 2)
//
// *slog.Logger satisfies this interface, as do most structured loggers.
type Logger interface {
	// Info logs an informational message with optional key-value pairs.
	Info(msg string, args ...any)

	// Error logs an error message with optional key-value pairs.
	Error(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, args ...any)

	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, args ...any)
}

// NopLogger discards everything. It is the default wherever a Logger is optional.
type NopLogger struct{}

func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Debug(string, ...any) {}

// LoggerOrNop returns l, or a NopLogger when l is nil.
func LoggerOrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
