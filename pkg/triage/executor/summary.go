package executor

import (
	"context"
	"fmt"
	"strings"

	"mercator-hq/ganymede/pkg/forge"
	"mercator-hq/ganymede/pkg/policy/ast"
)

// SummaryItem is one rendered fragment contributed by a matching
// resource of a summary sub-rule.
type SummaryItem struct {
	// Fragment is the rendered item template.
	Fragment string

	// Resource is the contributing resource, used for the destination
	// fallback.
	Resource *forge.Resource
}

// RenderItem renders a sub-rule's item template for one resource.
func RenderItem(rule *ast.SummaryRule, res *forge.Resource) SummaryItem {
	return SummaryItem{Fragment: RenderTemplate(rule.Item, res), Resource: res}
}

// Summarize files one summary issue aggregating the collected items.
// It runs once per summary policy, never per resource, and only the
// caller's gate of at least one item reaches here. When the policy
// has no destination the issue is filed in the first contributing
// resource's project.
func (x *Executor) Summarize(ctx context.Context, policy *ast.SummaryPolicy, rt forge.ResourceType, items []SummaryItem, dryRun bool) error {
	if len(items) == 0 {
		return fmt.Errorf("summary %q has no items", policy.Name)
	}

	fragments := make([]string, 0, len(items))
	for _, item := range items {
		fragments = append(fragments, item.Fragment)
	}
	joined := strings.Join(fragments, "\n")

	replacer := strings.NewReplacer(
		"{{items}}", joined,
		"{{type}}", string(rt),
	)
	body := replacer.Replace(policy.Template)
	title := replacer.Replace(policy.Title)

	destination := policy.Destination
	if destination == "" {
		destination = items[0].Resource.ProjectPath
	}

	x.logger.Info("filing summary issue",
		"summary", policy.Name,
		"destination", destination,
		"items", len(items),
		"dry_run", dryRun,
	)
	x.record("summarize", rt, dryRun)
	if dryRun {
		return nil
	}

	_, err := x.api.CreateIssue(ctx, destination, &forge.IssueRequest{
		Title:       title,
		Description: body,
	})
	return err
}
