package executor

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"mercator-hq/ganymede/pkg/forge"
)

// placeholderPattern matches {{key}} placeholders in comment and
// summary templates.
var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// RenderTemplate substitutes {{key}} placeholders with resource
// fields. Unknown or null-valued keys render as an empty string.
// Substitution runs in a single pass; the result is not re-scanned, so
// placeholder-shaped text in field values stays as-is.
func RenderTemplate(template string, res *forge.Resource) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		return placeholderValue(key, res)
	})
}

// placeholderValue resolves one placeholder key.
func placeholderValue(key string, res *forge.Resource) string {
	switch key {
	case "author":
		return handle(&res.Author)
	case "assignee":
		if len(res.Assignees) == 0 {
			return ""
		}
		return handle(&res.Assignees[0])
	case "assignees":
		return handles(res.Assignees)
	case "reviewers":
		return handles(res.Reviewers)
	case "closed_by":
		return handle(res.ClosedBy)
	case "merged_by":
		return handle(res.MergedBy)
	case "milestone":
		if res.Milestone == nil {
			return ""
		}
		return res.Milestone.Title
	case "labels":
		if len(res.Labels) == 0 {
			return ""
		}
		marked := make([]string, 0, len(res.Labels))
		for _, label := range res.Labels {
			marked = append(marked, "~"+label)
		}
		return strings.Join(marked, ", ")
	case "upvotes":
		return strconv.Itoa(res.Upvotes)
	case "downvotes":
		return strconv.Itoa(res.Downvotes)
	case "discussions":
		return strconv.Itoa(res.UserNotesCount)
	case "title":
		return res.Title
	case "name":
		return res.Name
	case "state":
		return res.State
	case "url":
		return res.WebURL
	case "reference":
		return res.Reference()
	case "type":
		return string(res.Type)
	case "created_at":
		return timestamp(res.CreatedAt)
	case "updated_at":
		return timestamp(res.UpdatedAt)
	case "closed_at":
		if res.ClosedAt == nil {
			return ""
		}
		return timestamp(*res.ClosedAt)
	case "merged_at":
		if res.MergedAt == nil {
			return ""
		}
		return timestamp(*res.MergedAt)
	case "source_branch":
		return res.SourceBranch
	case "target_branch":
		return res.TargetBranch
	case "merge_status":
		return res.MergeStatus
	case "pipeline_status":
		return res.HeadPipelineStatus
	}
	return ""
}

// handle renders a user as an @mention.
func handle(u *forge.User) string {
	if u == nil || u.Username == "" {
		return ""
	}
	return "@" + u.Username
}

// handles space-joins @mentions for a user list.
func handles(users []forge.User) string {
	out := make([]string, 0, len(users))
	for i := range users {
		if h := handle(&users[i]); h != "" {
			out = append(out, h)
		}
	}
	return strings.Join(out, " ")
}

// timestamp renders a time in the forge's own format.
func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
