package parser

import (
	"fmt"
	"os"

	"mercator-hq/ganymede/pkg/forge"
	"mercator-hq/ganymede/pkg/policy/ast"
)

// Parser parses triage policy files.
type Parser struct {
	// Strict rejects unknown condition kinds instead of letting them
	// fall through to the custom predicate registry at runtime.
	Strict bool
}

// NewParser creates a parser with default settings.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile reads and parses a policy file.
func (p *Parser) ParseFile(path string) (*ast.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %q: %w", path, err)
	}
	doc, err := p.ParseBytes(data, path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseBytes parses policy bytes. The sourcePath is recorded on the
// document and used in diagnostics.
func (p *Parser) ParseBytes(data []byte, sourcePath string) (*ast.Document, error) {
	raw, err := parseYAMLBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy %q: %w", sourcePath, err)
	}

	doc, errs := p.transform(raw)
	doc.SourceFile = sourcePath

	errs = append(errs, validate(doc, p.Strict)...)
	if len(errs) > 0 {
		return nil, &ValidationError{Path: sourcePath, Errors: errs}
	}

	return doc, nil
}

// transform converts the intermediate YAML structure into the AST.
func (p *Parser) transform(raw *yamlDocument) (*ast.Document, []string) {
	doc := &ast.Document{
		Name:          raw.Name,
		HostURL:       raw.HostURL,
		ResourceRules: make(map[forge.ResourceType]*ast.ResourcePolicy, len(raw.ResourceRules)),
	}

	var errs []string

	for key, rp := range raw.ResourceRules {
		rt := forge.ResourceType(key)
		if !rt.Valid() {
			errs = append(errs, fmt.Sprintf("unknown resource type %q", key))
			continue
		}

		policy := &ast.ResourcePolicy{}

		for i, r := range rp.Rules {
			rule, ruleErrs := transformRule(rt, i, r)
			errs = append(errs, ruleErrs...)
			policy.Rules = append(policy.Rules, rule)
		}

		for i, s := range rp.Summaries {
			summary, sumErrs := transformSummary(rt, i, s)
			errs = append(errs, sumErrs...)
			policy.Summaries = append(policy.Summaries, summary)
		}

		doc.ResourceRules[rt] = policy
	}

	return doc, errs
}

// transformRule converts one intermediate rule.
func transformRule(rt forge.ResourceType, index int, r yamlRule) (*ast.Rule, []string) {
	var errs []string

	name := r.Name
	if name == "" {
		name = fmt.Sprintf("%s rule #%d", rt, index+1)
	}

	rule := &ast.Rule{
		Name:       name,
		Conditions: toConditionMap(r.Conditions),
		Actions:    r.Actions,
		Line:       r.line,
	}

	if r.Limits != nil {
		rule.Limit = &ast.Limit{
			MostRecent: r.Limits.MostRecent,
			Oldest:     r.Limits.Oldest,
		}
		if err := rule.Limit.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("rule %q (line %d): %v", name, r.line, err))
		}
	}

	return rule, errs
}

// transformSummary converts one intermediate summary policy.
func transformSummary(rt forge.ResourceType, index int, s yamlSummary) (*ast.SummaryPolicy, []string) {
	var errs []string

	name := s.Name
	if name == "" {
		name = fmt.Sprintf("%s summary #%d", rt, index+1)
	}

	summary := &ast.SummaryPolicy{
		Name:        name,
		Title:       s.Summarize.Title,
		Template:    s.Summarize.Summary,
		Destination: s.Summarize.Destination,
		Line:        s.line,
	}

	if summary.Title == "" {
		errs = append(errs, fmt.Sprintf("summary %q (line %d): summarize.title is required", name, s.line))
	}
	if summary.Template == "" {
		errs = append(errs, fmt.Sprintf("summary %q (line %d): summarize.summary is required", name, s.line))
	}

	for i, r := range s.Rules {
		subName := r.Name
		if subName == "" {
			subName = fmt.Sprintf("%s sub-rule #%d", name, i+1)
		}
		sub := &ast.SummaryRule{
			Name:       subName,
			Conditions: toConditionMap(r.Conditions),
			Item:       r.Summarize.Item,
		}
		if r.Limits != nil {
			sub.Limit = &ast.Limit{
				MostRecent: r.Limits.MostRecent,
				Oldest:     r.Limits.Oldest,
			}
			if err := sub.Limit.Validate(); err != nil {
				errs = append(errs, fmt.Sprintf("summary %q sub-rule %q: %v", name, subName, err))
			}
		}
		if sub.Item == "" {
			errs = append(errs, fmt.Sprintf("summary %q sub-rule %q: summarize.item is required", name, subName))
		}
		summary.Rules = append(summary.Rules, sub)
	}

	return summary, errs
}

// toConditionMap converts raw YAML condition keys to condition kinds.
func toConditionMap(raw map[string]interface{}) map[ast.ConditionKind]interface{} {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[ast.ConditionKind]interface{}, len(raw))
	for k, v := range raw {
		out[ast.ConditionKind(k)] = v
	}
	return out
}
