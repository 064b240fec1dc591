// Ganymede is a policy-driven triage engine for forge resources.
//
// It evaluates declarative YAML policies against issues, merge
// requests, and branches, and applies the configured actions: labels,
// state changes, comments, moves, merges, and more, with full dry-run
// simulation.
//
// Usage:
//
//	# One-shot triage run against a project
//	ganymede run --source-type projects --source-id 42
//
//	# Simulate without touching the forge
//	ganymede run --source-type projects --source-id 42 --dry-run
//
//	# Webhook server with scheduled runs
//	ganymede serve
//
//	# Check a policy file
//	ganymede validate --policy triage.yml
package main

func main() {
	Execute()
}
