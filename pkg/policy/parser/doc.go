// Package parser parses YAML triage policy files into the policy AST.
//
// Parsing is a two-step process: the YAML is first decoded into
// intermediate structures that mirror the file layout (preserving
// source line numbers for diagnostics), then transformed into the AST
// and validated. Schema violations are collected and reported together
// rather than failing on the first problem.
package parser
