// Package conditions evaluates rule conditions against forge resources.
//
// The evaluator is stateless apart from a registry of caller-supplied
// custom predicates and a compile cache for expression conditions. All
// configured conditions on a rule must hold (logical AND); a rule with
// no conditions matches every resource.
//
// Malformed condition configuration and expression evaluation failures
// are non-matches, never errors. The one exception is author_member
// with an unsupported membership source, which is a configuration
// error fatal to the enclosing rule.
package conditions
