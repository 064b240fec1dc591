package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mercator-hq/ganymede/pkg/forge"
	"mercator-hq/ganymede/pkg/policy/ast"
)

// MetricsRecorder observes executed actions. A nil recorder disables
// instrumentation.
type MetricsRecorder interface {
	ActionExecuted(action string, rt forge.ResourceType, dryRun bool)
}

// Executor applies rule actions through the forge API.
type Executor struct {
	api        forge.API
	logger     *slog.Logger
	extensions *Registry
	metrics    MetricsRecorder
}

// New creates an executor. The registry may be nil when no extensions
// are used; metrics may be nil.
func New(api forge.API, logger *slog.Logger, extensions *Registry, metrics MetricsRecorder) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if extensions == nil {
		extensions = NewRegistry()
	}
	return &Executor{api: api, logger: logger, extensions: extensions, metrics: metrics}
}

// API exposes the forge client so extensions can issue their own
// calls.
func (x *Executor) API() forge.API {
	return x.api
}

// Apply executes the configured actions against one resource in fixed
// precedence: labels, remove_labels, status, mention, move, comment,
// delete, assignee, reviewer, merge, extension. The returned resource
// is a copy carrying the accumulated local mutations; the input is
// never modified. Under dry-run every local mutation still happens but
// no forge write is issued.
func (x *Executor) Apply(ctx context.Context, actions *ast.Actions, res *forge.Resource, rt forge.ResourceType, dryRun bool) (*forge.Resource, error) {
	acc := res.Clone()
	if actions.IsEmpty() {
		return acc, nil
	}

	var err error
	statusMerges := actions.Status == "merge" && rt == forge.ResourceTypeMergeRequest

	if len(actions.Labels) > 0 {
		if acc, err = x.addLabels(ctx, acc, rt, actions.Labels, dryRun); err != nil {
			return acc, err
		}
	}
	if len(actions.RemoveLabels) > 0 {
		if acc, err = x.removeLabels(ctx, acc, rt, actions.RemoveLabels, dryRun); err != nil {
			return acc, err
		}
	}
	if actions.Status != "" {
		if statusMerges {
			// "status: merge" on a merge request routes through the
			// merge action instead of a plain state edit.
			if acc, err = x.merge(ctx, acc, actions.Merge, dryRun); err != nil {
				return acc, err
			}
		} else {
			if acc, err = x.changeStatus(ctx, acc, rt, actions.Status, dryRun); err != nil {
				return acc, err
			}
		}
	}
	if len(actions.Mention) > 0 {
		if err = x.mention(ctx, acc, rt, actions.Mention, dryRun); err != nil {
			return acc, err
		}
	}
	if actions.Move != "" {
		if acc, err = x.move(ctx, acc, rt, actions.Move, dryRun); err != nil {
			return acc, err
		}
	}
	if actions.Comment != "" {
		if err = x.comment(ctx, acc, rt, actions, dryRun); err != nil {
			return acc, err
		}
	}
	if actions.Delete {
		if err = x.deleteBranch(ctx, acc, rt, dryRun); err != nil {
			return acc, err
		}
	}
	if actions.AssigneeID != nil {
		if acc, err = x.assign(ctx, acc, rt, *actions.AssigneeID, dryRun); err != nil {
			return acc, err
		}
	}
	if len(actions.ReviewerIDs) > 0 {
		if acc, err = x.setReviewers(ctx, acc, rt, actions.ReviewerIDs, dryRun); err != nil {
			return acc, err
		}
	}
	if actions.Merge != nil && !statusMerges {
		if rt != forge.ResourceTypeMergeRequest {
			return acc, &forge.UnsupportedResourceError{ResourceType: rt, Operation: "merge"}
		}
		if acc, err = x.merge(ctx, acc, actions.Merge, dryRun); err != nil {
			return acc, err
		}
	}
	if actions.Extension != "" {
		// A dispatched extension ends the per-resource action pass.
		return acc, x.runExtension(ctx, acc, rt, actions.Extension, dryRun)
	}

	return acc, nil
}

func (x *Executor) record(action string, rt forge.ResourceType, dryRun bool) {
	if x.metrics != nil {
		x.metrics.ActionExecuted(action, rt, dryRun)
	}
}

// addLabels unions the labels into the accumulator and, when live,
// sends the full resulting list. The remote label API is
// record-replacing, so a delta would drop labels added by earlier
// actions.
func (x *Executor) addLabels(ctx context.Context, acc *forge.Resource, rt forge.ResourceType, labels []string, dryRun bool) (*forge.Resource, error) {
	for _, label := range labels {
		if !acc.HasLabel(label) {
			acc.Labels = append(acc.Labels, label)
		}
	}
	x.logger.Info("adding labels",
		"resource", acc.Reference(),
		"labels", labels,
		"dry_run", dryRun,
	)
	x.record("labels", rt, dryRun)
	if dryRun {
		return acc, nil
	}
	full := append([]string(nil), acc.Labels...)
	return acc, x.api.EditResource(ctx, rt, acc.ProjectID, acc.IID, &forge.EditRequest{Labels: &full})
}

// removeLabels subtracts labels and sends the full remaining list.
func (x *Executor) removeLabels(ctx context.Context, acc *forge.Resource, rt forge.ResourceType, labels []string, dryRun bool) (*forge.Resource, error) {
	drop := make(map[string]bool, len(labels))
	for _, label := range labels {
		drop[label] = true
	}
	kept := make([]string, 0, len(acc.Labels))
	for _, label := range acc.Labels {
		if !drop[label] {
			kept = append(kept, label)
		}
	}
	acc.Labels = kept

	x.logger.Info("removing labels",
		"resource", acc.Reference(),
		"labels", labels,
		"dry_run", dryRun,
	)
	x.record("remove_labels", rt, dryRun)
	if dryRun {
		return acc, nil
	}
	full := append([]string(nil), acc.Labels...)
	return acc, x.api.EditResource(ctx, rt, acc.ProjectID, acc.IID, &forge.EditRequest{Labels: &full})
}

// changeStatus sends a state transition token and mirrors the
// resulting state locally.
func (x *Executor) changeStatus(ctx context.Context, acc *forge.Resource, rt forge.ResourceType, status string, dryRun bool) (*forge.Resource, error) {
	switch status {
	case "close":
		acc.State = forge.StateClosed
	case "reopen":
		acc.State = forge.StateOpened
	default:
		return acc, fmt.Errorf("unsupported status token %q", status)
	}

	x.logger.Info("changing status",
		"resource", acc.Reference(),
		"status", status,
		"dry_run", dryRun,
	)
	x.record("status", rt, dryRun)
	if dryRun {
		return acc, nil
	}
	return acc, x.api.EditResource(ctx, rt, acc.ProjectID, acc.IID, &forge.EditRequest{StateEvent: status})
}

// mention posts a note of space-joined @handles. Always a new note.
func (x *Executor) mention(ctx context.Context, acc *forge.Resource, rt forge.ResourceType, usernames []string, dryRun bool) error {
	handles := make([]string, 0, len(usernames))
	for _, u := range usernames {
		handles = append(handles, "@"+strings.TrimPrefix(u, "@"))
	}
	body := strings.Join(handles, " ")

	x.logger.Info("mentioning users",
		"resource", acc.Reference(),
		"body", body,
		"dry_run", dryRun,
	)
	x.record("mention", rt, dryRun)
	if dryRun {
		return nil
	}
	return x.api.CreateNote(ctx, rt, acc.ProjectID, acc.IID, &forge.NoteRequest{Body: body})
}

// move relocates an issue to a target project path.
func (x *Executor) move(ctx context.Context, acc *forge.Resource, rt forge.ResourceType, target string, dryRun bool) (*forge.Resource, error) {
	if rt != forge.ResourceTypeIssue {
		return acc, &forge.UnsupportedResourceError{ResourceType: rt, Operation: "move"}
	}

	x.logger.Info("moving issue",
		"resource", acc.Reference(),
		"target", target,
		"dry_run", dryRun,
	)
	x.record("move", rt, dryRun)
	if dryRun {
		return acc, nil
	}
	return acc, x.api.MoveIssue(ctx, acc.ProjectID, acc.IID, target)
}

// comment renders the template against the accumulated resource state
// and posts it as a note. The note type discriminator is only honored
// for issues.
func (x *Executor) comment(ctx context.Context, acc *forge.Resource, rt forge.ResourceType, actions *ast.Actions, dryRun bool) error {
	body := RenderTemplate(actions.Comment, acc)

	note := &forge.NoteRequest{Body: body, Internal: actions.CommentInternal}
	if rt == forge.ResourceTypeIssue {
		note.Type = actions.CommentType
	}

	x.logger.Info("posting comment",
		"resource", acc.Reference(),
		"body", body,
		"internal", note.Internal,
		"dry_run", dryRun,
	)
	x.record("comment", rt, dryRun)
	if dryRun {
		return nil
	}
	return x.api.CreateNote(ctx, rt, acc.ProjectID, acc.IID, note)
}

// deleteBranch irreversibly deletes a branch.
func (x *Executor) deleteBranch(ctx context.Context, acc *forge.Resource, rt forge.ResourceType, dryRun bool) error {
	if rt != forge.ResourceTypeBranch {
		return &forge.UnsupportedResourceError{ResourceType: rt, Operation: "delete"}
	}

	x.logger.Info("deleting branch",
		"resource", acc.Reference(),
		"dry_run", dryRun,
	)
	x.record("delete", rt, dryRun)
	if dryRun {
		return nil
	}
	return x.api.DeleteBranch(ctx, acc.ProjectID, acc.Name)
}

// assign overwrites the single assignee.
func (x *Executor) assign(ctx context.Context, acc *forge.Resource, rt forge.ResourceType, assigneeID int64, dryRun bool) (*forge.Resource, error) {
	acc.Assignees = []forge.User{{ID: assigneeID}}

	x.logger.Info("assigning",
		"resource", acc.Reference(),
		"assignee_id", assigneeID,
		"dry_run", dryRun,
	)
	x.record("assignee", rt, dryRun)
	if dryRun {
		return acc, nil
	}
	return acc, x.api.EditResource(ctx, rt, acc.ProjectID, acc.IID, &forge.EditRequest{AssigneeID: &assigneeID})
}

// setReviewers overwrites the reviewer list on a merge request.
func (x *Executor) setReviewers(ctx context.Context, acc *forge.Resource, rt forge.ResourceType, ids []int64, dryRun bool) (*forge.Resource, error) {
	if rt != forge.ResourceTypeMergeRequest {
		return acc, &forge.UnsupportedResourceError{ResourceType: rt, Operation: "reviewer_ids"}
	}

	acc.Reviewers = make([]forge.User, 0, len(ids))
	for _, id := range ids {
		acc.Reviewers = append(acc.Reviewers, forge.User{ID: id})
	}

	x.logger.Info("setting reviewers",
		"resource", acc.Reference(),
		"reviewer_ids", ids,
		"dry_run", dryRun,
	)
	x.record("reviewer", rt, dryRun)
	if dryRun {
		return acc, nil
	}
	return acc, x.api.EditResource(ctx, rt, acc.ProjectID, acc.IID, &forge.EditRequest{ReviewerIDs: ids})
}

// merge merges the merge request, or cancels a pending
// merge-when-pipeline-succeeds when Cancel is set. A nil config merges
// with default options.
func (x *Executor) merge(ctx context.Context, acc *forge.Resource, cfg *ast.MergeAction, dryRun bool) (*forge.Resource, error) {
	if cfg != nil && cfg.Cancel {
		x.logger.Info("canceling pending merge",
			"resource", acc.Reference(),
			"dry_run", dryRun,
		)
		x.record("merge", forge.ResourceTypeMergeRequest, dryRun)
		if dryRun {
			return acc, nil
		}
		return acc, x.api.CancelMerge(ctx, acc.ProjectID, acc.IID)
	}

	opts := &forge.MergeOptions{}
	if cfg != nil {
		opts.WhenPipelineSucceeds = cfg.WhenPipelineSucceeds
		opts.RemoveSourceBranch = cfg.RemoveSourceBranch
		opts.Squash = cfg.Squash
	}
	acc.State = forge.StateMerged

	x.logger.Info("merging",
		"resource", acc.Reference(),
		"when_pipeline_succeeds", opts.WhenPipelineSucceeds,
		"dry_run", dryRun,
	)
	x.record("merge", forge.ResourceTypeMergeRequest, dryRun)
	if dryRun {
		return acc, nil
	}
	return acc, x.api.MergeMergeRequest(ctx, acc.ProjectID, acc.IID, opts)
}

// runExtension dispatches to a registered extension. An unregistered
// name is a configuration error.
func (x *Executor) runExtension(ctx context.Context, acc *forge.Resource, rt forge.ResourceType, name string, dryRun bool) error {
	ext, ok := x.extensions.Lookup(name)
	if !ok {
		return fmt.Errorf("extension %q is not registered", name)
	}

	x.logger.Info("dispatching extension",
		"resource", acc.Reference(),
		"extension", name,
		"dry_run", dryRun,
	)
	x.record("extension", rt, dryRun)
	return ext.Run(ctx, x, acc, rt, dryRun)
}
