// Package cli provides shared helpers for the ganymede commands:
// result formatting, signal handling, and command errors.
package cli
