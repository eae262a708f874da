package logging

import "sync"

// LoggerFactory hands out component-tagged loggers that all share the
// one process-wide output destination and level configured by
// SetupLogging — a stream worker's logger and the default logger write
// to the same place, just tagged differently, so a single
// FileEnabled/ConsoleEnabled choice governs everything the service logs.
type LoggerFactory struct {
	mu sync.RWMutex
}

var (
	factory     *LoggerFactory
	factoryOnce sync.Once
)

// GetLoggerFactory returns the global logger factory instance.
func GetLoggerFactory() *LoggerFactory {
	factoryOnce.Do(func() {
		factory = &LoggerFactory{}
	})
	return factory
}

// CreateLogger returns a logger for component. Its level, formatter,
// and output destination are whatever SetupLogging last configured on
// the default logger — call SetupLogging before spawning component
// loggers that need non-default behavior.
func (f *LoggerFactory) CreateLogger(component string) *Logger {
	f.mu.RLock()
	defer f.mu.RUnlock()

	base := GetDefaultLogger()
	return &Logger{
		Logger:    base.Logger,
		component: component,
	}
}

// StreamLogger returns a component logger pre-tagged with the stream it
// concerns, collapsing the GetLogger(component).WithField("stream", name)
// pattern repeated across the Stream Supervisor, Detection Manager, and
// Storage Controller into one call.
func StreamLogger(component, streamName string) *Logger {
	return GetLogger(component).WithField("stream", streamName)
}

// noOpWriter discards everything written to it, used when both console
// and file output are disabled.
type noOpWriter struct{}

func (w *noOpWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

// GetLogger is a convenience function that uses the global factory.
func GetLogger(component string) *Logger {
	return GetLoggerFactory().CreateLogger(component)
}
