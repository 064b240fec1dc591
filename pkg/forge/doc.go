// Package forge provides the client for the remote resource-hosting
// service (the "forge") that owns the issues, merge requests, and
// branches under triage.
//
// The package defines the Resource data model shared by the triage
// engine, the API interface that the engine's components depend on, and
// an HTTP implementation of that interface with connection pooling and
// typed errors. All write operations are record-replacing where the
// remote API is record-replacing (label edits always carry the full
// desired label list, never a delta).
package forge
