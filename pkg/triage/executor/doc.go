// Package executor applies rule actions to forge resources.
//
// Actions execute in a fixed precedence regardless of their order in
// the policy file. Each action receives the resource as mutated by the
// actions before it and returns the updated copy, so chained actions
// observe consistent intermediate state. Dry-run suppresses remote
// writes only; local mutation and templating still happen, which keeps
// dry-run output identical to what a live run would do.
package executor
