// Package processor orchestrates rule evaluation over resource
// collections: filter through the condition evaluator, truncate by the
// rule's limit, then hand the survivors to the action executor.
//
// Failures are contained: a failing rule or resource is logged and
// skipped, the run continues. Nothing is retried.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"

	"mercator-hq/ganymede/pkg/forge"
	"mercator-hq/ganymede/pkg/ledger"
	"mercator-hq/ganymede/pkg/policy/ast"
	"mercator-hq/ganymede/pkg/triage/conditions"
	"mercator-hq/ganymede/pkg/triage/executor"
)

// MetricsRecorder observes rule processing. Nil disables
// instrumentation.
type MetricsRecorder interface {
	RuleEvaluated()
	ResourceMatched(resourceType string)
}

// Config assembles a Processor's collaborators.
type Config struct {
	// API loads resources. Mutations go through the Executor.
	API forge.API

	// Evaluator filters resources by rule conditions.
	Evaluator *conditions.Evaluator

	// Executor applies rule actions.
	Executor *executor.Executor

	// Ledger records executed rules. Optional.
	Ledger ledger.Store

	// Metrics observes rule processing. Optional.
	Metrics MetricsRecorder

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Debug includes stack traces in failure logs.
	Debug bool
}

// Processor runs policy documents against a resource source.
type Processor struct {
	api       forge.API
	evaluator *conditions.Evaluator
	executor  *executor.Executor
	store     ledger.Store
	metrics   MetricsRecorder
	logger    *slog.Logger
	debug     bool
}

// Result summarizes one processing run.
type Result struct {
	// RunID groups this run's ledger entries.
	RunID string `json:"run_id"`

	// RulesRun counts the rules that were evaluated.
	RulesRun int `json:"rules_run"`

	// ResourcesMatched counts resources that had actions applied.
	ResourcesMatched int `json:"resources_matched"`

	// SummariesFiled counts executed summary policies.
	SummariesFiled int `json:"summaries_filed"`

	// Errors counts contained per-rule and per-resource failures.
	Errors int `json:"errors"`
}

// New creates a Processor.
func New(cfg Config) *Processor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		api:       cfg.API,
		evaluator: cfg.Evaluator,
		executor:  cfg.Executor,
		store:     cfg.Ledger,
		metrics:   cfg.Metrics,
		logger:    logger,
		debug:     cfg.Debug,
	}
}

// ProcessDocument runs every rule and summary policy of a document
// against the resources loaded from one source. Rules run in
// declaration order; resources within a rule keep their input order.
func (p *Processor) ProcessDocument(ctx context.Context, doc *ast.Document, st forge.SourceType, sourceID int64, dryRun bool) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}

	p.logger.Info("starting triage run",
		"run_id", result.RunID,
		"policy", doc.Name,
		"source_type", string(st),
		"source_id", sourceID,
		"dry_run", dryRun,
	)

	for _, rt := range doc.ResourceTypes() {
		rp := doc.ResourceRules[rt]

		resources, err := p.api.ListResources(ctx, rt, st, sourceID)
		if err != nil {
			// A load failure skips this resource type, not the run.
			p.fail(result, err, "loading resources failed",
				"run_id", result.RunID,
				"resource_type", string(rt),
			)
			continue
		}

		for _, rule := range rp.Rules {
			result.RulesRun++
			if p.metrics != nil {
				p.metrics.RuleEvaluated()
			}
			p.processRule(ctx, result, rt, rule, resources, nil, dryRun)
		}
		for _, summary := range rp.Summaries {
			p.processSummary(ctx, result, rt, summary, resources, dryRun)
		}
	}

	p.logger.Info("triage run finished",
		"run_id", result.RunID,
		"rules", result.RulesRun,
		"matched", result.ResourcesMatched,
		"summaries", result.SummariesFiled,
		"errors", result.Errors,
	)
	return result, nil
}

// ProcessRule runs a single rule against an already-loaded resource
// collection. The webhook path uses this directly for the one resource
// named by an event.
func (p *Processor) ProcessRule(ctx context.Context, rt forge.ResourceType, rule *ast.Rule, resources []*forge.Resource, payload map[string]interface{}, dryRun bool) *Result {
	result := &Result{RunID: uuid.NewString(), RulesRun: 1}
	p.processRule(ctx, result, rt, rule, resources, payload, dryRun)
	return result
}

func (p *Processor) processRule(ctx context.Context, result *Result, rt forge.ResourceType, rule *ast.Rule, resources []*forge.Resource, payload map[string]interface{}, dryRun bool) {
	if len(resources) == 0 {
		p.logger.Info("skipping rule, no resources",
			"rule", rule.Name,
			"resource_type", string(rt),
		)
		return
	}

	matched := p.filter(ctx, result, rule.Name, rule.Conditions, resources, payload)
	matched = ApplyLimit(matched, rule.Limit)
	if len(matched) == 0 {
		p.logger.Debug("rule matched nothing",
			"rule", rule.Name,
			"resource_type", string(rt),
		)
		return
	}

	p.logger.Info("executing rule",
		"rule", rule.Name,
		"resource_type", string(rt),
		"matched", len(matched),
		"dry_run", dryRun,
	)

	for _, res := range matched {
		if err := p.executeOne(ctx, rule, res, rt, dryRun); err != nil {
			p.fail(result, err, "rule execution failed",
				"rule", rule.Name,
				"resource", res.Reference(),
			)
			continue
		}
		result.ResourcesMatched++
		if p.metrics != nil {
			p.metrics.ResourceMatched(string(rt))
		}
		p.record(ctx, result.RunID, rule.Name, res, rt, rule.Actions, dryRun)
	}
}

// executeOne applies a rule's actions to one resource, converting a
// panic into a contained error.
func (p *Processor) executeOne(ctx context.Context, rule *ast.Rule, res *forge.Resource, rt forge.ResourceType, dryRun bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while executing rule %q on %s: %v", rule.Name, res.Reference(), r)
			if p.debug {
				p.logger.Error("panic stack", "stack", string(debug.Stack()))
			}
		}
	}()
	_, err = p.executor.Apply(ctx, rule.Actions, res, rt, dryRun)
	return err
}

// filter returns the resources every condition of a rule holds for.
// An evaluation error (unsupported author_member source) is contained
// to the failing resource.
func (p *Processor) filter(ctx context.Context, result *Result, ruleName string, conds map[ast.ConditionKind]interface{}, resources []*forge.Resource, payload map[string]interface{}) []*forge.Resource {
	var matched []*forge.Resource
	for _, res := range resources {
		ok, err := p.evaluator.EvaluateAll(ctx, res, conds, payload)
		if err != nil {
			p.fail(result, err, "condition evaluation failed",
				"rule", ruleName,
				"resource", res.Reference(),
			)
			continue
		}
		if ok {
			matched = append(matched, res)
		}
	}
	return matched
}

// processSummary filters each sub-rule, collects rendered items, and
// files one summary issue when anything matched.
func (p *Processor) processSummary(ctx context.Context, result *Result, rt forge.ResourceType, summary *ast.SummaryPolicy, resources []*forge.Resource, dryRun bool) {
	if len(resources) == 0 {
		p.logger.Info("skipping summary, no resources",
			"summary", summary.Name,
			"resource_type", string(rt),
		)
		return
	}

	var items []executor.SummaryItem
	for _, sub := range summary.Rules {
		matched := p.filter(ctx, result, summary.Name+"/"+sub.Name, sub.Conditions, resources, nil)
		matched = ApplyLimit(matched, sub.Limit)
		for _, res := range matched {
			items = append(items, executor.RenderItem(sub, res))
		}
	}
	if len(items) == 0 {
		p.logger.Debug("summary matched nothing", "summary", summary.Name)
		return
	}

	if err := p.executor.Summarize(ctx, summary, rt, items, dryRun); err != nil {
		p.fail(result, err, "summary execution failed", "summary", summary.Name)
		return
	}
	result.SummariesFiled++
}

// record writes a ledger entry; ledger failures are logged, never
// fatal.
func (p *Processor) record(ctx context.Context, runID, rule string, res *forge.Resource, rt forge.ResourceType, actions *ast.Actions, dryRun bool) {
	if p.store == nil {
		return
	}
	entry := &ledger.Entry{
		RunID:        runID,
		Rule:         rule,
		Resource:     res.Reference(),
		ResourceType: string(rt),
		Actions:      strings.Join(actions.Kinds(), ","),
		DryRun:       dryRun,
	}
	if err := p.store.Record(ctx, entry); err != nil {
		p.logger.Error("recording ledger entry failed",
			"rule", rule,
			"resource", res.Reference(),
			"error", err,
		)
	}
}

// fail logs a contained failure and counts it.
func (p *Processor) fail(result *Result, err error, msg string, args ...any) {
	result.Errors++
	args = append(args, "error", err)
	if p.debug {
		args = append(args, "detail", fmt.Sprintf("%+v", err))
	}
	p.logger.Error(msg, args...)
}
