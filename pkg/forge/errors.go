package forge

import (
	"fmt"
	"time"
)

// APIError represents a general forge API error.
// It includes the HTTP status code and the remote error message.
type APIError struct {
	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	// Message is the error message returned by the forge
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("forge API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("forge API error: %s", e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// AuthError represents an authentication failure.
// This occurs when the forge rejects the access token (HTTP 401 or 403).
type AuthError struct {
	// Message is the error message from the forge
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("forge authentication failed: %s", e.Message)
}

// RateLimitError represents a rate limit exceeded error (HTTP 429).
// It includes the retry-after duration if provided by the forge.
type RateLimitError struct {
	// RetryAfter is the duration to wait before retrying (if provided)
	RetryAfter time.Duration

	// Message is the error message from the forge
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("forge rate limit exceeded (retry after %s): %s", e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("forge rate limit exceeded: %s", e.Message)
}

// NotFoundError represents a missing resource (HTTP 404).
type NotFoundError struct {
	// Path is the API path that was not found
	Path string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("forge resource not found: %s", e.Path)
}

// UnsupportedResourceError is returned when an operation is asked to
// handle a resource or source type it does not support. This is a
// configuration error: it is fatal to the enclosing rule, not a silent
// non-match.
type UnsupportedResourceError struct {
	// ResourceType is the offending resource type
	ResourceType ResourceType

	// SourceType is the offending source type (may be empty)
	SourceType SourceType

	// Operation names the operation that rejected the combination
	Operation string
}

// Error implements the error interface.
func (e *UnsupportedResourceError) Error() string {
	if e.SourceType != "" {
		return fmt.Sprintf("%s: unsupported resource/source combination %q/%q",
			e.Operation, e.ResourceType, e.SourceType)
	}
	return fmt.Sprintf("%s: unsupported resource type %q", e.Operation, e.ResourceType)
}

// ConfigError represents invalid client configuration.
type ConfigError struct {
	// Field is the configuration field that failed validation
	Field string

	// Message describes what is wrong
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("forge client config error: %s: %s", e.Field, e.Message)
}
