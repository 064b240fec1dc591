package ast

import "fmt"

// ConditionKind names a condition in the triage condition vocabulary.
type ConditionKind string

const (
	ConditionDate               ConditionKind = "date"
	ConditionState              ConditionKind = "state"
	ConditionLabels             ConditionKind = "labels"
	ConditionForbiddenLabels    ConditionKind = "forbidden_labels"
	ConditionNoAdditionalLabels ConditionKind = "no_additional_labels"
	ConditionAuthorUsername     ConditionKind = "author_username"
	ConditionMilestone          ConditionKind = "milestone"
	ConditionVotes              ConditionKind = "votes"
	ConditionDiscussions        ConditionKind = "discussions"
	ConditionDraft              ConditionKind = "draft"
	ConditionSourceBranch       ConditionKind = "source_branch"
	ConditionTargetBranch       ConditionKind = "target_branch"
	ConditionWeight             ConditionKind = "weight"
	ConditionHealthStatus       ConditionKind = "health_status"
	ConditionIssueType          ConditionKind = "issue_type"
	ConditionAuthorMember       ConditionKind = "author_member"
	ConditionExpr               ConditionKind = "expr"
)

// KnownConditionKinds lists the built-in condition vocabulary.
// Kinds outside this list fall back to the custom predicate registry.
var KnownConditionKinds = []ConditionKind{
	ConditionDate, ConditionState, ConditionLabels,
	ConditionForbiddenLabels, ConditionNoAdditionalLabels,
	ConditionAuthorUsername, ConditionMilestone, ConditionVotes,
	ConditionDiscussions, ConditionDraft, ConditionSourceBranch,
	ConditionTargetBranch, ConditionWeight, ConditionHealthStatus,
	ConditionIssueType, ConditionAuthorMember, ConditionExpr,
}

// IsKnown returns true if the kind belongs to the built-in vocabulary.
func (k ConditionKind) IsKnown() bool {
	for _, known := range KnownConditionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Rule is a single triage rule: conditions (all must hold), an
// optional limit, and the actions to execute on surviving resources.
type Rule struct {
	// Name identifies the rule in logs and the action ledger.
	Name string

	// Conditions maps condition kinds to their raw configuration.
	// All configured conditions must hold (logical AND); an empty map
	// matches every resource.
	Conditions map[ConditionKind]interface{}

	// Limit truncates the filtered resource list, when present.
	Limit *Limit

	// Actions to apply, in the executor's fixed precedence.
	Actions *Actions

	// Line is the source line of the rule, for diagnostics.
	Line int
}

// HasConditions returns true if the rule has at least one condition.
func (r *Rule) HasConditions() bool {
	return len(r.Conditions) > 0
}

// HasActions returns true if the rule has actions configured.
func (r *Rule) HasActions() bool {
	return r.Actions != nil && !r.Actions.IsEmpty()
}

// Limit truncates a filtered resource list by recency. Exactly one of
// MostRecent or Oldest may be set.
type Limit struct {
	// MostRecent keeps the N most recently created resources.
	MostRecent int

	// Oldest keeps the N oldest resources.
	Oldest int
}

// Validate checks the limit invariants.
func (l *Limit) Validate() error {
	if l.MostRecent > 0 && l.Oldest > 0 {
		return fmt.Errorf("most_recent and oldest are mutually exclusive")
	}
	if l.MostRecent < 0 || l.Oldest < 0 {
		return fmt.Errorf("limit must be positive")
	}
	if l.MostRecent == 0 && l.Oldest == 0 {
		return fmt.Errorf("limit requires most_recent or oldest")
	}
	return nil
}

// Count returns the truncation count.
func (l *Limit) Count() int {
	if l.MostRecent > 0 {
		return l.MostRecent
	}
	return l.Oldest
}
