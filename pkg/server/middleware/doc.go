// Package middleware provides the HTTP middleware chain for the
// webhook server: request ids, request logging, and panic recovery.
package middleware
