package ast

// SummaryPolicy aggregates matches of several sub-rules into a single
// new issue. It executes once per policy run, not once per resource,
// and only when at least one sub-rule produced matches.
type SummaryPolicy struct {
	// Name identifies the summary in logs.
	Name string

	// Rules are the sub-rules whose matches contribute items.
	Rules []*SummaryRule

	// Title is the title of the summary issue.
	Title string

	// Template is the body template. {{items}} expands to the
	// newline-joined item fragments; {{type}} to the resource type.
	Template string

	// Destination is the project path the summary issue is filed in.
	// When empty, the first contributing resource's project is used.
	Destination string

	// Line is the source line of the summary, for diagnostics.
	Line int
}

// SummaryRule is one sub-rule of a summary policy. Matching resources
// each render the Item template into one summary fragment.
type SummaryRule struct {
	// Name identifies the sub-rule in logs.
	Name string

	// Conditions use the same vocabulary and AND semantics as Rule.
	Conditions map[ConditionKind]interface{}

	// Limit truncates this sub-rule's matches, when present.
	Limit *Limit

	// Item is the per-resource fragment template. It supports the
	// same placeholders as the comment action.
	Item string
}
