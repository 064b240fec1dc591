// Package ast defines the abstract syntax tree for Ganymede triage
// policies.
//
// A policy document maps resource types (issues, merge requests,
// branches) to resource policies. Each resource policy holds ordered
// rules (conditions + optional limit + actions) and summary policies
// (sub-rules whose matches are aggregated into a single summary issue).
//
// Condition configurations are kept loosely typed (kind → raw YAML
// value): the condition evaluator owns the per-kind schemas, and
// unknown kinds are routed to a caller-registered predicate registry.
// Actions, in contrast, are fully typed here because their payload
// shapes are fixed by the executor.
package ast
