package ast

import (
	"mercator-hq/ganymede/pkg/forge"
)

// Document is a parsed triage policy file.
type Document struct {
	// Name is an optional human-readable policy name.
	Name string

	// ResourceRules maps resource types to their policies.
	ResourceRules map[forge.ResourceType]*ResourcePolicy

	// HostURL optionally overrides the forge base URL for this policy.
	HostURL string

	// SourceFile is the path the document was parsed from.
	SourceFile string
}

// ResourcePolicy holds the rules and summaries for one resource type.
type ResourcePolicy struct {
	// Rules are evaluated in declaration order.
	Rules []*Rule

	// Summaries are summary policies, each executed once.
	Summaries []*SummaryPolicy
}

// RuleCount returns the total number of rules across all resource
// types, counting summary sub-rules.
func (d *Document) RuleCount() int {
	n := 0
	for _, rp := range d.ResourceRules {
		n += len(rp.Rules)
		for _, s := range rp.Summaries {
			n += len(s.Rules)
		}
	}
	return n
}

// ResourceTypes returns the resource types this document configures,
// in the fixed issues/merge_requests/branches order so that runs are
// deterministic regardless of map iteration.
func (d *Document) ResourceTypes() []forge.ResourceType {
	order := []forge.ResourceType{
		forge.ResourceTypeIssue,
		forge.ResourceTypeMergeRequest,
		forge.ResourceTypeBranch,
	}
	var out []forge.ResourceType
	for _, rt := range order {
		if _, ok := d.ResourceRules[rt]; ok {
			out = append(out, rt)
		}
	}
	return out
}
