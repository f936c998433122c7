// Package logger provides structured logging for wazuh-cli.
//
// It wraps log/slog with per-logger levels, text or JSON output and
// automatic redaction of credentials:
//
//   - logger.go: Logger interface, configuration and the default logger
//   - context.go: logger and invocation ID propagation through context
//   - redact.go: masking of passwords, bearer tokens and JWT-shaped values
//
// Services log API calls at debug level through the logger carried by
// the command context; failures travel as structured errors.
package logger
