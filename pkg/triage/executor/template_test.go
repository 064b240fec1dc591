package executor

import (
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/forge"
)

func TestRenderTemplate(t *testing.T) {
	closedAt := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	res := &forge.Resource{
		IID:         12,
		ProjectPath: "team/app",
		Type:        forge.ResourceTypeMergeRequest,
		State:       forge.StateOpened,
		Title:       "Add retry logic",
		Labels:      []string{"bug", "backend"},
		Author:      forge.User{Username: "alice"},
		Assignees:   []forge.User{{Username: "bob"}, {Username: "carol"}},
		Reviewers:   []forge.User{{Username: "dave"}},
		ClosedBy:    &forge.User{Username: "erin"},
		Milestone:   &forge.Milestone{Title: "v1.2"},
		Upvotes:     7,
		Downvotes:   1,
		ClosedAt:    &closedAt,
		WebURL:      "https://forge.example.com/team/app/-/merge_requests/12",

		SourceBranch:       "fix/retries",
		TargetBranch:       "main",
		MergeStatus:        "can_be_merged",
		HeadPipelineStatus: "success",
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{name: "author mention", template: "{{author}} please review", want: "@alice please review"},
		{name: "unknown key is empty", template: "x{{nonexistent}}y", want: "xy"},
		{name: "first assignee", template: "{{assignee}}", want: "@bob"},
		{name: "all assignees", template: "{{assignees}}", want: "@bob @carol"},
		{name: "reviewers", template: "{{reviewers}}", want: "@dave"},
		{name: "closed by", template: "{{closed_by}}", want: "@erin"},
		{name: "null user is empty", template: "{{merged_by}}", want: ""},
		{name: "milestone", template: "{{milestone}}", want: "v1.2"},
		{name: "labels re-marked", template: "{{labels}}", want: "~bug, ~backend"},
		{name: "counters", template: "{{upvotes}}/{{downvotes}}", want: "7/1"},
		{name: "title and reference", template: "{{title}} ({{reference}})", want: "Add retry logic (team/app!12)"},
		{name: "type", template: "{{type}}", want: "merge_requests"},
		{name: "url", template: "{{url}}", want: "https://forge.example.com/team/app/-/merge_requests/12"},
		{name: "branches", template: "{{source_branch}} -> {{target_branch}}", want: "fix/retries -> main"},
		{name: "merge and pipeline status", template: "{{merge_status}} {{pipeline_status}}", want: "can_be_merged success"},
		{name: "closed timestamp", template: "{{closed_at}}", want: "2025-06-02T09:30:00Z"},
		{name: "null timestamp is empty", template: "{{merged_at}}", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderTemplate(tt.template, res); got != tt.want {
				t.Errorf("RenderTemplate(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestRenderTemplateNotRecursive(t *testing.T) {
	res := &forge.Resource{Title: "uses {{author}} placeholder", Author: forge.User{Username: "alice"}}
	got := RenderTemplate("{{title}}", res)
	if got != "uses {{author}} placeholder" {
		t.Errorf("substitution recursed: %q", got)
	}
}

func TestRenderTemplateEmptyValues(t *testing.T) {
	res := &forge.Resource{Type: forge.ResourceTypeIssue}
	if got := RenderTemplate("{{labels}}|{{milestone}}|{{assignee}}", res); got != "||" {
		t.Errorf("empty fields = %q, want ||", got)
	}
}
