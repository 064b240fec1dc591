package forge

import (
	"fmt"
	"time"
)

// ResourceType identifies the kind of resource under triage.
type ResourceType string

const (
	// ResourceTypeIssue is a ticket-like resource.
	ResourceTypeIssue ResourceType = "issues"
	// ResourceTypeMergeRequest is a change-request-like resource.
	ResourceTypeMergeRequest ResourceType = "merge_requests"
	// ResourceTypeBranch is a repository branch.
	ResourceTypeBranch ResourceType = "branches"
)

// Valid returns true if the resource type is one of the supported kinds.
func (rt ResourceType) Valid() bool {
	switch rt {
	case ResourceTypeIssue, ResourceTypeMergeRequest, ResourceTypeBranch:
		return true
	}
	return false
}

// SourceType identifies the scope resources are loaded from.
type SourceType string

const (
	// SourceTypeProject loads resources from a single project.
	SourceTypeProject SourceType = "projects"
	// SourceTypeGroup loads resources from every project in a group.
	SourceTypeGroup SourceType = "groups"
)

// Valid returns true if the source type is supported.
func (st SourceType) Valid() bool {
	return st == SourceTypeProject || st == SourceTypeGroup
}

// State values for resources.
const (
	StateOpened = "opened"
	StateClosed = "closed"
	StateMerged = "merged"
	StateLocked = "locked"
)

// User is a forge account referenced by a resource.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Milestone is a milestone a resource may be assigned to.
type Milestone struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Resource is one issue, merge request, or branch under triage.
//
// Resources are owned by the loader for the duration of one run. The
// action executor mutates its own working copy to keep chained actions
// consistent; authoritative state always lives on the forge.
type Resource struct {
	// ID is the globally unique resource identifier.
	ID int64 `json:"id"`

	// IID is the per-project sequence number used in API paths.
	IID int `json:"iid"`

	// ProjectID identifies the owning project.
	ProjectID int64 `json:"project_id"`

	// ProjectPath is the full namespace path of the owning project
	// (e.g. "group/project").
	ProjectPath string `json:"project_path"`

	// Type discriminates issues, merge requests, and branches.
	Type ResourceType `json:"-"`

	Title string `json:"title"`

	// Name is the branch name; only set for branch resources.
	Name string `json:"name,omitempty"`

	// State is the lifecycle state (opened/closed/merged/locked).
	State string `json:"state"`

	// Labels is the ordered label set. Names are unique.
	Labels []string `json:"labels"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	MergedAt  *time.Time `json:"merged_at,omitempty"`

	Author    User   `json:"author"`
	Assignees []User `json:"assignees,omitempty"`
	Reviewers []User `json:"reviewers,omitempty"`
	ClosedBy  *User  `json:"closed_by,omitempty"`
	MergedBy  *User  `json:"merged_by,omitempty"`

	Milestone *Milestone `json:"milestone,omitempty"`

	Upvotes        int `json:"upvotes"`
	Downvotes      int `json:"downvotes"`
	UserNotesCount int `json:"user_notes_count"`

	// Issue-specific fields.
	Weight       *int   `json:"weight,omitempty"`
	HealthStatus string `json:"health_status,omitempty"`
	IssueType    string `json:"issue_type,omitempty"`

	// Merge-request-specific fields.
	Draft              bool   `json:"draft"`
	SourceBranch       string `json:"source_branch,omitempty"`
	TargetBranch       string `json:"target_branch,omitempty"`
	MergeStatus        string `json:"merge_status,omitempty"`
	HeadPipelineStatus string `json:"head_pipeline_status,omitempty"`

	WebURL string `json:"web_url"`
}

// Reference returns the fully-qualified textual reference for the
// resource, e.g. "group/project#42" for an issue or
// "group/project!42" for a merge request.
func (r *Resource) Reference() string {
	switch r.Type {
	case ResourceTypeMergeRequest:
		return fmt.Sprintf("%s!%d", r.ProjectPath, r.IID)
	case ResourceTypeBranch:
		return fmt.Sprintf("%s:%s", r.ProjectPath, r.Name)
	default:
		return fmt.Sprintf("%s#%d", r.ProjectPath, r.IID)
	}
}

// TimestampAttr returns the named timestamp attribute.
// The second return is false when the resource lacks the attribute.
func (r *Resource) TimestampAttr(name string) (time.Time, bool) {
	switch name {
	case "created_at":
		return r.CreatedAt, !r.CreatedAt.IsZero()
	case "updated_at":
		return r.UpdatedAt, !r.UpdatedAt.IsZero()
	case "closed_at":
		if r.ClosedAt == nil {
			return time.Time{}, false
		}
		return *r.ClosedAt, true
	case "merged_at":
		if r.MergedAt == nil {
			return time.Time{}, false
		}
		return *r.MergedAt, true
	}
	return time.Time{}, false
}

// CounterAttr returns the named numeric counter. Missing attributes
// default to zero, matching the remote API's sparse payloads.
func (r *Resource) CounterAttr(name string) int {
	switch name {
	case "upvotes":
		return r.Upvotes
	case "downvotes":
		return r.Downvotes
	case "user_notes_count", "discussions":
		return r.UserNotesCount
	}
	return 0
}

// HasLabel reports whether the resource carries the given label.
func (r *Resource) HasLabel(label string) bool {
	for _, l := range r.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the resource. The action executor works
// on clones so that chained actions observe consistent intermediate
// state without aliasing the loader's records.
func (r *Resource) Clone() *Resource {
	c := *r
	c.Labels = append([]string(nil), r.Labels...)
	c.Assignees = append([]User(nil), r.Assignees...)
	c.Reviewers = append([]User(nil), r.Reviewers...)
	if r.ClosedAt != nil {
		t := *r.ClosedAt
		c.ClosedAt = &t
	}
	if r.MergedAt != nil {
		t := *r.MergedAt
		c.MergedAt = &t
	}
	if r.ClosedBy != nil {
		u := *r.ClosedBy
		c.ClosedBy = &u
	}
	if r.MergedBy != nil {
		u := *r.MergedBy
		c.MergedBy = &u
	}
	if r.Milestone != nil {
		m := *r.Milestone
		c.Milestone = &m
	}
	if r.Weight != nil {
		w := *r.Weight
		c.Weight = &w
	}
	return &c
}

// EditRequest carries a record-replacing edit for a resource.
// Nil fields are left untouched by the forge.
type EditRequest struct {
	// Labels is the full desired label list. The remote API replaces
	// the label set with exactly this list, so a pointer to an empty
	// list clears all labels while nil leaves them untouched.
	Labels *[]string `json:"labels,omitempty"`

	// StateEvent is a state transition token ("close", "reopen").
	StateEvent string `json:"state_event,omitempty"`

	// AssigneeID overwrites the single assignee.
	AssigneeID *int64 `json:"assignee_id,omitempty"`

	// ReviewerIDs overwrites the reviewer list (merge requests only).
	ReviewerIDs []int64 `json:"reviewer_ids,omitempty"`
}

// NoteRequest creates a new note (comment) on a resource.
type NoteRequest struct {
	Body string `json:"body"`

	// Internal marks the note as visible to project members only.
	Internal bool `json:"internal,omitempty"`

	// Type is the note type discriminator; only honored for issues.
	Type string `json:"type,omitempty"`
}

// IssueRequest creates a new issue (used by summary policies).
type IssueRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Labels      []string `json:"labels,omitempty"`
}

// MergeOptions controls a merge-request merge.
type MergeOptions struct {
	// WhenPipelineSucceeds defers the merge until the head pipeline
	// passes.
	WhenPipelineSucceeds bool `json:"merge_when_pipeline_succeeds,omitempty"`

	// RemoveSourceBranch deletes the source branch after merging.
	RemoveSourceBranch bool `json:"should_remove_source_branch,omitempty"`

	// Squash squashes the commits on merge.
	Squash bool `json:"squash,omitempty"`
}
