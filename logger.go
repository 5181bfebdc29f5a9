package clusterstore

// LogFields is a minimal structured field map for logs.
type LogFields map[string]any

// Logger is a tiny leveled logger. Provide an adapter around your logging
// stack (see the log/zap, log/slog and log/logrus subpackages).
// If Logger is nil in the options, logging is disabled.
type Logger interface {
	Debug(msg string, f LogFields)
	Info(msg string, f LogFields)
	Warn(msg string, f LogFields)
	Error(msg string, f LogFields)
}

type NopLogger struct{}

func (NopLogger) Debug(string, LogFields) {}
func (NopLogger) Info(string, LogFields)  {}
func (NopLogger) Warn(string, LogFields)  {}
func (NopLogger) Error(string, LogFields) {}
