package parser

import (
	"fmt"
	"strings"

	"mercator-hq/ganymede/pkg/forge"
	"mercator-hq/ganymede/pkg/policy/ast"
)

// ValidationError aggregates all schema problems found in one policy
// document.
type ValidationError struct {
	// Path is the source file that failed validation.
	Path string

	// Errors lists the individual problems.
	Errors []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("policy %q failed validation: %s", e.Path, strings.Join(e.Errors, "; "))
}

// validate checks structural legality of a transformed document.
// In strict mode unknown condition kinds are rejected; otherwise they
// are left for the custom predicate registry to resolve at runtime.
func validate(doc *ast.Document, strict bool) []string {
	var errs []string

	for rt, rp := range doc.ResourceRules {
		for _, rule := range rp.Rules {
			errs = append(errs, validateRule(rt, rule, strict)...)
		}
		for _, summary := range rp.Summaries {
			if len(summary.Rules) == 0 {
				errs = append(errs, fmt.Sprintf("summary %q: at least one sub-rule is required", summary.Name))
			}
			for _, sub := range summary.Rules {
				errs = append(errs, validateConditions(sub.Name, sub.Conditions, strict)...)
			}
		}
	}

	return errs
}

// validateRule checks one rule's conditions and actions.
func validateRule(rt forge.ResourceType, rule *ast.Rule, strict bool) []string {
	var errs []string

	errs = append(errs, validateConditions(rule.Name, rule.Conditions, strict)...)

	if !rule.HasActions() {
		errs = append(errs, fmt.Sprintf("rule %q (line %d): actions are required", rule.Name, rule.Line))
		return errs
	}

	a := rule.Actions

	// Resource-type gates. The executor enforces these at runtime
	// too, but catching them at parse time gives the author a line
	// number.
	if a.Move != "" && rt != forge.ResourceTypeIssue {
		errs = append(errs, fmt.Sprintf("rule %q (line %d): move is only valid for issues", rule.Name, rule.Line))
	}
	if a.Delete && rt != forge.ResourceTypeBranch {
		errs = append(errs, fmt.Sprintf("rule %q (line %d): delete is only valid for branches", rule.Name, rule.Line))
	}
	if len(a.ReviewerIDs) > 0 && rt != forge.ResourceTypeMergeRequest {
		errs = append(errs, fmt.Sprintf("rule %q (line %d): reviewer_ids is only valid for merge requests", rule.Name, rule.Line))
	}
	if a.Merge != nil && rt != forge.ResourceTypeMergeRequest {
		errs = append(errs, fmt.Sprintf("rule %q (line %d): merge is only valid for merge requests", rule.Name, rule.Line))
	}
	if a.Status == "merge" && rt != forge.ResourceTypeMergeRequest {
		errs = append(errs, fmt.Sprintf("rule %q (line %d): status merge is only valid for merge requests", rule.Name, rule.Line))
	}

	return errs
}

// validateConditions checks condition kinds against the vocabulary.
func validateConditions(owner string, conditions map[ast.ConditionKind]interface{}, strict bool) []string {
	if !strict {
		return nil
	}
	var errs []string
	for kind := range conditions {
		if !kind.IsKnown() {
			errs = append(errs, fmt.Sprintf("rule %q: unknown condition kind %q", owner, kind))
		}
	}
	return errs
}
