// Package logging provides structured logging utilities for nodekit.
//
// # Overview
//
// This package wraps the standard library slog package with nodekit defaults
// so the pull and kubelet-config commands log in one consistent shape. It
// supports environment-based log level configuration, module/version context
// injection, and source location tracking for debug logs.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: Detailed diagnostic information with source location
//   - INFO: General informational messages (default)
//   - WARN/WARNING: Warning messages for potentially problematic situations
//   - ERROR: Error messages for failures requiring attention
//
// # Usage
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("nodekit", "v1.0.0")
//	    slog.Info("staging layer", "id", layerID)
//	}
//
// Setting explicit log level:
//
//	logging.SetDefaultStructuredLoggerWithLevel("nodekit", "v1.0.0", "warn")
//
// # Environment Configuration
//
// The LOG_LEVEL environment variable controls logging verbosity when no
// explicit level is passed:
//
//	LOG_LEVEL=debug nodekit pull ...
//
// # Output Format
//
// All logs are written to stderr in JSON format so stdout stays reserved for
// command output such as the rendered kubelet configuration:
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "INFO",
//	    "msg": "layer staged",
//	    "module": "nodekit",
//	    "version": "v1.0.0",
//	    "id": "5f8ad0..."
//	}
package logging
