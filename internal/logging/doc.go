// Package logging provides structured logging with correlation ID support
// for the recorder's services.
//
// This package implements a centralized logging system using Logrus with structured
// logging, correlation ID tracking, component identification, and configurable output
// destinations (console, file, both, or disabled).
//
// Architecture Compliance:
//   - Structured Logging: JSON and text formats with consistent field structure
//   - Correlation ID Support: Request tracing across service boundaries
//   - Component Identification: Logger instances tagged with component names
//   - Centralized Configuration: Global logging configuration with factory pattern
//   - Thread Safety: All logger operations are thread-safe
//
// Key Features:
//   - Structured logging with JSON and text formatters
//   - Correlation ID tracking for request tracing
//   - Component-based logger instances
//   - Configurable log levels (debug, info, warn, error, fatal)
//   - File rotation with configurable size limits and backup retention
//   - Console and file output with independent enable/disable
//   - Global logger factory with consistent configuration
//
// Usage Patterns:
//   - Configure once at startup: SetupLogging(config)
//   - Create component logger: GetLogger("component-name")
//   - Create stream-scoped logger: StreamLogger("component", streamName)
//   - Get global logger: GetDefaultLogger()
//   - Add correlation ID: WithCorrelationID(ctx)
//
// Logger Creation:
//   - Component loggers share the default logger's configured output and
//     level (set by SetupLogging) — GetLogger just tags a component name
//     onto the same destination, so one config choice governs the whole
//     service's log output.
//   - Global logger: GetDefaultLogger() for general use
//   - Context-aware: WithCorrelationID(ctx) for request tracing
//
// Field Conventions:
//   - "component": Component name (e.g., "storage-controller", "detector")
//   - "correlation_id": correlation ID for tracing a request/event across components
//   - "stream": stream name, for per-stream log lines
package logging
