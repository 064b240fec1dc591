package conditions

import (
	"mercator-hq/ganymede/pkg/forge"
	"mercator-hq/ganymede/pkg/policy/expr"
)

// evalExpr evaluates an expression condition. Expressions are compiled
// once per source string and cached; any compile or evaluation failure
// is logged and treated as a non-match.
func (e *Evaluator) evalExpr(res *forge.Resource, config interface{}, payload map[string]interface{}) bool {
	src, ok := asString(config)
	if !ok || src == "" {
		return false
	}

	compiled, err := e.compile(src)
	if err != nil {
		e.logger.Warn("expression condition failed to compile",
			"expr", src,
			"error", err,
		)
		return false
	}

	matched, err := compiled.Eval(e.exprEnv(res, payload))
	if err != nil {
		e.logger.Debug("expression condition did not evaluate cleanly",
			"expr", src,
			"resource", res.Reference(),
			"error", err,
		)
		return false
	}
	return matched
}

func (e *Evaluator) compile(src string) (*expr.Expr, error) {
	e.mu.RLock()
	compiled, ok := e.exprCache[src]
	e.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	compiled, err := expr.Compile(src)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.exprCache[src] = compiled
	e.mu.Unlock()
	return compiled, nil
}

// exprEnv builds the evaluation environment exposed to expression
// conditions. Nothing outside this map is reachable.
func (e *Evaluator) exprEnv(res *forge.Resource, payload map[string]interface{}) expr.Env {
	env := expr.Env{
		"state":       res.State,
		"title":       res.Title,
		"labels":      append([]string(nil), res.Labels...),
		"author":      res.Author.Username,
		"reference":   res.Reference(),
		"type":        string(res.Type),
		"draft":       res.Draft,
		"upvotes":     res.Upvotes,
		"downvotes":   res.Downvotes,
		"discussions": res.UserNotesCount,
		"created_at":  res.CreatedAt,
		"updated_at":  res.UpdatedAt,
		"now":         e.now(),
	}

	if res.Milestone != nil {
		env["milestone"] = res.Milestone.Title
	}
	if res.ClosedAt != nil {
		env["closed_at"] = *res.ClosedAt
	}
	if res.MergedAt != nil {
		env["merged_at"] = *res.MergedAt
	}
	if res.Weight != nil {
		env["weight"] = *res.Weight
	}
	if res.HealthStatus != "" {
		env["health_status"] = res.HealthStatus
	}
	if res.IssueType != "" {
		env["issue_type"] = res.IssueType
	}
	if res.SourceBranch != "" {
		env["source_branch"] = res.SourceBranch
		env["target_branch"] = res.TargetBranch
	}
	if payload != nil {
		env["payload"] = payload
	}
	return env
}
