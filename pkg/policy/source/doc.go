// Package source loads policy documents from the filesystem or a git
// repository, with optional hot reload for file sources.
package source
