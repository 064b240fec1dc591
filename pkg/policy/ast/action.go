package ast

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Actions is the typed action map of a rule. Field order here does not
// drive execution: the executor applies actions in its own fixed
// precedence regardless of declaration order in the policy file.
type Actions struct {
	// Labels are added to the resource's label set.
	Labels []string `yaml:"labels"`

	// RemoveLabels are subtracted from the resource's label set.
	RemoveLabels []string `yaml:"remove_labels"`

	// Status is a state transition token ("close", "reopen"), or
	// "merge" for merge requests, which routes through the merge
	// action instead of a plain state edit.
	Status string `yaml:"status"`

	// Mention posts a note mentioning the listed usernames.
	Mention []string `yaml:"mention"`

	// Move relocates an issue to the target project path.
	// Issues only.
	Move string `yaml:"move"`

	// Comment posts a templated note. See the executor's placeholder
	// documentation for the supported {{key}} substitutions.
	Comment string `yaml:"comment"`

	// CommentType is the note type discriminator; only honored for
	// issues.
	CommentType string `yaml:"comment_type"`

	// CommentInternal marks the note as members-only.
	CommentInternal bool `yaml:"comment_internal"`

	// Delete deletes the resource. Branches only; irreversible.
	Delete bool `yaml:"delete"`

	// AssigneeID overwrites the single assignee.
	AssigneeID *int64 `yaml:"assignee_id"`

	// ReviewerIDs sets the reviewer list. Accepts a scalar or a list
	// in the policy file. Merge requests only.
	ReviewerIDs IDList `yaml:"reviewer_ids"`

	// Merge merges the merge request, or cancels a pending
	// merge-when-pipeline-succeeds when Cancel is set.
	Merge *MergeAction `yaml:"merge"`

	// Extension dispatches to a registered extension by name. A
	// matched extension short-circuits all remaining actions for the
	// resource.
	Extension string `yaml:"extension"`
}

// IsEmpty returns true when no action is configured.
func (a *Actions) IsEmpty() bool {
	return a == nil ||
		len(a.Labels) == 0 &&
			len(a.RemoveLabels) == 0 &&
			a.Status == "" &&
			len(a.Mention) == 0 &&
			a.Move == "" &&
			a.Comment == "" &&
			!a.Delete &&
			a.AssigneeID == nil &&
			len(a.ReviewerIDs) == 0 &&
			a.Merge == nil &&
			a.Extension == ""
}

// Kinds lists the configured action kinds in execution precedence,
// for logging and the action ledger.
func (a *Actions) Kinds() []string {
	if a == nil {
		return nil
	}
	var kinds []string
	if len(a.Labels) > 0 {
		kinds = append(kinds, "labels")
	}
	if len(a.RemoveLabels) > 0 {
		kinds = append(kinds, "remove_labels")
	}
	if a.Status != "" {
		kinds = append(kinds, "status")
	}
	if len(a.Mention) > 0 {
		kinds = append(kinds, "mention")
	}
	if a.Move != "" {
		kinds = append(kinds, "move")
	}
	if a.Comment != "" {
		kinds = append(kinds, "comment")
	}
	if a.Delete {
		kinds = append(kinds, "delete")
	}
	if a.AssigneeID != nil {
		kinds = append(kinds, "assignee")
	}
	if len(a.ReviewerIDs) > 0 {
		kinds = append(kinds, "reviewer")
	}
	if a.Merge != nil {
		kinds = append(kinds, "merge")
	}
	if a.Extension != "" {
		kinds = append(kinds, "extension")
	}
	return kinds
}

// MergeAction configures the merge action for merge requests.
type MergeAction struct {
	// Cancel cancels a pending merge-when-pipeline-succeeds instead
	// of merging.
	Cancel bool `yaml:"cancel"`

	// WhenPipelineSucceeds defers the merge until the head pipeline
	// passes.
	WhenPipelineSucceeds bool `yaml:"when_pipeline_succeeds"`

	// RemoveSourceBranch deletes the source branch after merging.
	RemoveSourceBranch bool `yaml:"remove_source_branch"`

	// Squash squashes the commits on merge.
	Squash bool `yaml:"squash"`
}

// IDList is a list of numeric identifiers that accepts either a YAML
// scalar or a YAML sequence, so policies can write `reviewer_ids: 42`
// or `reviewer_ids: [42, 43]`.
type IDList []int64

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *IDList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var id int64
		if err := node.Decode(&id); err != nil {
			return fmt.Errorf("line %d: invalid id: %w", node.Line, err)
		}
		*l = IDList{id}
		return nil
	case yaml.SequenceNode:
		var ids []int64
		if err := node.Decode(&ids); err != nil {
			return fmt.Errorf("line %d: invalid id list: %w", node.Line, err)
		}
		*l = IDList(ids)
		return nil
	default:
		return fmt.Errorf("line %d: expected id or id list", node.Line)
	}
}
