// Package ledger records executed triage actions for audit.
//
// Every rule execution against a resource produces one entry, dry-run
// included, so operators can answer "what did the engine do and when"
// without trawling logs. Two implementations exist: a SQLite store for
// deployments and an in-memory store for tests and one-shot runs.
package ledger

import (
	"context"
	"time"
)

// Entry is one recorded rule execution against a resource.
type Entry struct {
	// ID is assigned by the store.
	ID int64

	// RunID groups the entries of one engine invocation.
	RunID string

	// Rule is the policy rule name.
	Rule string

	// Resource is the fully qualified resource reference.
	Resource string

	// ResourceType is the triaged resource type.
	ResourceType string

	// Actions is a comma-joined list of the executed action kinds.
	Actions string

	// DryRun records whether writes were suppressed.
	DryRun bool

	// CreatedAt is when the entry was recorded.
	CreatedAt time.Time
}

// Store persists ledger entries.
type Store interface {
	// Record appends one entry, assigning its ID and timestamp.
	Record(ctx context.Context, entry *Entry) error

	// ListRun returns the entries of one run, oldest first.
	ListRun(ctx context.Context, runID string) ([]*Entry, error)

	// Prune deletes entries recorded before the cutoff and returns the
	// number removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases the store's resources.
	Close() error
}
