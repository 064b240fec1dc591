// Package expr implements the small expression language used by the
// `expr` condition.
//
// The language is a deliberately narrow predicate subset evaluated by
// an interpreter: field accessors, comparisons, boolean combinators,
// substring/membership tests, and time/duration arithmetic. There is
// no assignment, no looping, no function definition, and no access to
// anything outside the evaluation environment, so policy authors get
// an escape hatch without arbitrary code execution.
//
// Example expressions:
//
//	state == "opened" && upvotes > 10
//	"bug" in labels || author == "release-bot"
//	now - updated_at > 30d && !draft
//	payload.object_attributes.action == "open"
//
// Expressions are compiled once and evaluated many times. Evaluation
// never panics; type mismatches surface as errors, which callers treat
// as a non-match.
package expr
