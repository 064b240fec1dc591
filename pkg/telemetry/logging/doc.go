// Package logging configures the engine's structured logger.
//
// Logs go through log/slog with a configurable level and format.
// Forge access tokens must never reach log output: a redaction layer
// scrubs sensitive keys and token-shaped values before the handler
// sees them.
package logging
