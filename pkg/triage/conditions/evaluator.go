package conditions

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/forge"
	"mercator-hq/ganymede/pkg/policy/ast"
	"mercator-hq/ganymede/pkg/policy/expr"
)

// Predicate is a caller-registered custom condition. It receives the
// resource and the raw condition configuration and reports a match.
type Predicate func(res *forge.Resource, config interface{}) bool

// Evaluator evaluates rule conditions against resources.
type Evaluator struct {
	api    forge.API
	logger *slog.Logger

	// now is swappable for tests of time-window conditions.
	now func() time.Time

	mu         sync.RWMutex
	predicates map[ast.ConditionKind]Predicate
	exprCache  map[string]*expr.Expr
}

// NewEvaluator creates a condition evaluator. The forge API is only
// used by conditions that need remote lookups (author_member).
func NewEvaluator(api forge.API, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		api:        api,
		logger:     logger,
		now:        time.Now,
		predicates: make(map[ast.ConditionKind]Predicate),
		exprCache:  make(map[string]*expr.Expr),
	}
}

// Register installs a custom predicate for a condition kind. Unknown
// kinds with no registered predicate evaluate false.
func (e *Evaluator) Register(kind ast.ConditionKind, p Predicate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.predicates[kind] = p
}

// EvaluateAll reports whether every configured condition holds. An
// empty condition map matches everything. The payload, when non-nil,
// is the originating webhook body exposed to expression conditions.
func (e *Evaluator) EvaluateAll(ctx context.Context, res *forge.Resource, conditions map[ast.ConditionKind]interface{}, payload map[string]interface{}) (bool, error) {
	for kind, config := range conditions {
		ok, err := e.Evaluate(ctx, res, kind, config, payload)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Evaluate evaluates a single condition. The returned error is
// reserved for fatal configuration problems; ordinary non-matches and
// malformed configs return (false, nil).
func (e *Evaluator) Evaluate(ctx context.Context, res *forge.Resource, kind ast.ConditionKind, config interface{}, payload map[string]interface{}) (bool, error) {
	switch kind {
	case ast.ConditionDate:
		return e.evalDate(res, config), nil
	case ast.ConditionState:
		return e.evalState(res, config), nil
	case ast.ConditionLabels:
		return e.evalLabels(res, config), nil
	case ast.ConditionForbiddenLabels:
		return e.evalForbiddenLabels(res, config), nil
	case ast.ConditionNoAdditionalLabels:
		// Accepted for compatibility but never constrains anything.
		// Combine with a labels condition to express intent.
		return true, nil
	case ast.ConditionAuthorUsername:
		return e.evalAuthorUsername(res, config), nil
	case ast.ConditionMilestone:
		return e.evalMilestone(res, config), nil
	case ast.ConditionVotes, ast.ConditionDiscussions:
		return e.evalCounter(res, config), nil
	case ast.ConditionDraft:
		return e.evalDraft(res, config), nil
	case ast.ConditionSourceBranch:
		return e.evalStringField(res.SourceBranch, config), nil
	case ast.ConditionTargetBranch:
		return e.evalStringField(res.TargetBranch, config), nil
	case ast.ConditionWeight:
		return e.evalWeight(res, config), nil
	case ast.ConditionHealthStatus:
		return e.evalHealthStatus(res, config), nil
	case ast.ConditionIssueType:
		return e.evalStringField(res.IssueType, config), nil
	case ast.ConditionAuthorMember:
		return e.evalAuthorMember(ctx, res, config)
	case ast.ConditionExpr:
		return e.evalExpr(res, config, payload), nil
	}

	e.mu.RLock()
	p, ok := e.predicates[kind]
	e.mu.RUnlock()
	if !ok {
		e.logger.Warn("unknown condition kind, treating as non-match",
			"kind", string(kind),
			"resource", res.Reference(),
		)
		return false, nil
	}
	return p(res, config), nil
}
