package processor

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/forge"
	"mercator-hq/ganymede/pkg/forge/forgetest"
	"mercator-hq/ganymede/pkg/ledger"
	"mercator-hq/ganymede/pkg/policy/ast"
	"mercator-hq/ganymede/pkg/triage/conditions"
	"mercator-hq/ganymede/pkg/triage/executor"
)

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

var testLogger = slog.New(slog.NewTextHandler(nopWriter{}, nil))

func newTestProcessor(api forge.API, store ledger.Store) *Processor {
	return New(Config{
		API:       api,
		Evaluator: conditions.NewEvaluator(api, testLogger),
		Executor:  executor.New(api, testLogger, nil, nil),
		Ledger:    store,
		Logger:    testLogger,
	})
}

func issueAt(iid int, created time.Time, labels ...string) *forge.Resource {
	return &forge.Resource{
		ID:          int64(iid),
		IID:         iid,
		ProjectID:   1,
		ProjectPath: "team/app",
		Type:        forge.ResourceTypeIssue,
		State:       forge.StateOpened,
		Labels:      labels,
		CreatedAt:   created,
		Author:      forge.User{Username: "alice"},
	}
}

func singleRuleDocument(rule *ast.Rule) *ast.Document {
	return &ast.Document{
		Name: "test policy",
		ResourceRules: map[forge.ResourceType]*ast.ResourcePolicy{
			forge.ResourceTypeIssue: {Rules: []*ast.Rule{rule}},
		},
	}
}

func TestProcessDocument(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	api := forgetest.New()
	api.Resources = []*forge.Resource{
		issueAt(1, base, "bug"),
		issueAt(2, base.Add(time.Hour)),
		issueAt(3, base.Add(2*time.Hour), "bug"),
	}
	store := ledger.NewMemoryStore()
	p := newTestProcessor(api, store)

	rule := &ast.Rule{
		Name:       "label triage",
		Conditions: map[ast.ConditionKind]interface{}{ast.ConditionLabels: []interface{}{"bug"}},
		Actions:    &ast.Actions{Labels: []string{"triage::needed"}},
	}

	result, err := p.ProcessDocument(context.Background(), singleRuleDocument(rule), forge.SourceTypeProject, 1, false)
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if result.RulesRun != 1 || result.ResourcesMatched != 2 || result.Errors != 0 {
		t.Errorf("result = %+v, want 1 rule, 2 matched, 0 errors", result)
	}

	edits := api.CallsTo("EditResource")
	if len(edits) != 2 {
		t.Fatalf("edit calls = %d, want 2", len(edits))
	}
	// Input order is preserved.
	if edits[0].IID != 1 || edits[1].IID != 3 {
		t.Errorf("edit order = %d, %d, want 1, 3", edits[0].IID, edits[1].IID)
	}

	entries, err := store.ListRun(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("ListRun failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ledger entries = %d, want 2", len(entries))
	}
	if entries[0].Rule != "label triage" || entries[0].Actions != "labels" {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestEmptyCollectionSkipsRule(t *testing.T) {
	api := forgetest.New()
	p := newTestProcessor(api, nil)

	rule := &ast.Rule{Name: "noop", Actions: &ast.Actions{Status: "close"}}
	result, err := p.ProcessDocument(context.Background(), singleRuleDocument(rule), forge.SourceTypeProject, 1, false)
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if result.ResourcesMatched != 0 || len(api.Calls()) != 0 {
		t.Errorf("empty collection produced work: %+v, calls %v", result, api.Calls())
	}
}

func TestLimitMostRecent(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	resources := []*forge.Resource{
		issueAt(1, base.Add(1*time.Hour)),
		issueAt(2, base.Add(4*time.Hour)),
		issueAt(3, base.Add(2*time.Hour)),
		issueAt(4, base.Add(3*time.Hour)),
	}

	got := ApplyLimit(resources, &ast.Limit{MostRecent: 2})
	if len(got) != 2 {
		t.Fatalf("limit result = %d, want 2", len(got))
	}
	// Descending creation time, and every kept resource is newer than
	// every excluded one.
	if got[0].IID != 2 || got[1].IID != 4 {
		t.Errorf("most_recent order = %d, %d, want 2, 4", got[0].IID, got[1].IID)
	}
	for _, kept := range got {
		for _, r := range resources {
			if r.IID == 1 || r.IID == 3 {
				if kept.CreatedAt.Before(r.CreatedAt) {
					t.Errorf("kept %d is older than excluded %d", kept.IID, r.IID)
				}
			}
		}
	}

	// The input slice keeps its order.
	if resources[0].IID != 1 || resources[3].IID != 4 {
		t.Error("ApplyLimit reordered its input")
	}
}

func TestLimitOldest(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	resources := []*forge.Resource{
		issueAt(1, base.Add(3*time.Hour)),
		issueAt(2, base),
		issueAt(3, base.Add(time.Hour)),
	}

	got := ApplyLimit(resources, &ast.Limit{Oldest: 2})
	if len(got) != 2 || got[0].IID != 2 || got[1].IID != 3 {
		t.Errorf("oldest = %v, want issues 2 then 3", got)
	}
}

func TestLimitShorterThanCount(t *testing.T) {
	resources := []*forge.Resource{issueAt(1, time.Now())}
	if got := ApplyLimit(resources, &ast.Limit{MostRecent: 5}); len(got) != 1 {
		t.Errorf("limit beyond length = %d resources, want 1", len(got))
	}
	if got := ApplyLimit(nil, &ast.Limit{Oldest: 3}); len(got) != 0 {
		t.Errorf("limit on empty = %d resources, want 0", len(got))
	}
}

func TestRuleErrorContainment(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	api := forgetest.New()
	api.Resources = []*forge.Resource{issueAt(1, base), issueAt(2, base)}
	p := newTestProcessor(api, nil)

	// author_member with an unsupported source fails per resource but
	// the second rule still runs.
	doc := &ast.Document{
		Name: "containment",
		ResourceRules: map[forge.ResourceType]*ast.ResourcePolicy{
			forge.ResourceTypeIssue: {Rules: []*ast.Rule{
				{
					Name: "broken",
					Conditions: map[ast.ConditionKind]interface{}{
						ast.ConditionAuthorMember: map[string]interface{}{
							"source": "org", "source_id": 1, "condition": "member_of",
						},
					},
					Actions: &ast.Actions{Status: "close"},
				},
				{
					Name:    "working",
					Actions: &ast.Actions{Labels: []string{"seen"}},
				},
			}},
		},
	}

	result, err := p.ProcessDocument(context.Background(), doc, forge.SourceTypeProject, 1, false)
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if result.Errors != 2 {
		t.Errorf("errors = %d, want 2 (one per resource of the broken rule)", result.Errors)
	}
	// The working rule still labeled both resources.
	if edits := api.CallsTo("EditResource"); len(edits) != 2 {
		t.Errorf("edit calls = %d, want 2 from the working rule", len(edits))
	}
}

func TestSummaryProcessing(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	api := forgetest.New()
	api.Resources = []*forge.Resource{
		issueAt(1, base, "bug"),
		issueAt(2, base.Add(time.Hour), "feature"),
		issueAt(3, base.Add(2*time.Hour)),
	}
	p := newTestProcessor(api, nil)

	doc := &ast.Document{
		Name: "summaries",
		ResourceRules: map[forge.ResourceType]*ast.ResourcePolicy{
			forge.ResourceTypeIssue: {Summaries: []*ast.SummaryPolicy{{
				Name:     "weekly",
				Title:    "Weekly {{type}}",
				Template: "{{items}}",
				Rules: []*ast.SummaryRule{
					{
						Name:       "bugs",
						Conditions: map[ast.ConditionKind]interface{}{ast.ConditionLabels: []interface{}{"bug"}},
						Item:       "- bug {{reference}}",
					},
					{
						Name:       "features",
						Conditions: map[ast.ConditionKind]interface{}{ast.ConditionLabels: []interface{}{"feature"}},
						Item:       "- feature {{reference}}",
					},
				},
			}}},
		},
	}

	result, err := p.ProcessDocument(context.Background(), doc, forge.SourceTypeProject, 1, false)
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if result.SummariesFiled != 1 {
		t.Errorf("summaries filed = %d, want 1", result.SummariesFiled)
	}

	created := api.CallsTo("CreateIssue")
	if len(created) != 1 {
		t.Fatalf("create calls = %d, want exactly one combined summary", len(created))
	}
	want := "- bug team/app#1\n- feature team/app#2"
	if created[0].Issue.Description != want {
		t.Errorf("summary body = %q, want %q", created[0].Issue.Description, want)
	}
	if created[0].Issue.Title != "Weekly issues" {
		t.Errorf("summary title = %q", created[0].Issue.Title)
	}
}

func TestSummaryGatedOnMatches(t *testing.T) {
	api := forgetest.New()
	api.Resources = []*forge.Resource{issueAt(1, time.Now())}
	p := newTestProcessor(api, nil)

	doc := &ast.Document{
		Name: "gated",
		ResourceRules: map[forge.ResourceType]*ast.ResourcePolicy{
			forge.ResourceTypeIssue: {Summaries: []*ast.SummaryPolicy{{
				Name:     "never",
				Template: "{{items}}",
				Rules: []*ast.SummaryRule{{
					Name:       "closed only",
					Conditions: map[ast.ConditionKind]interface{}{ast.ConditionState: "closed"},
					Item:       "- {{reference}}",
				}},
			}}},
		},
	}

	result, err := p.ProcessDocument(context.Background(), doc, forge.SourceTypeProject, 1, false)
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if result.SummariesFiled != 0 || len(api.CallsTo("CreateIssue")) != 0 {
		t.Error("summary with no matches must not file an issue")
	}
}

func TestDryRunDocument(t *testing.T) {
	api := forgetest.New()
	api.Resources = []*forge.Resource{issueAt(1, time.Now(), "bug")}
	store := ledger.NewMemoryStore()
	p := newTestProcessor(api, store)

	rule := &ast.Rule{
		Name:       "dry",
		Conditions: map[ast.ConditionKind]interface{}{ast.ConditionLabels: []interface{}{"bug"}},
		Actions:    &ast.Actions{Status: "close"},
	}
	result, err := p.ProcessDocument(context.Background(), singleRuleDocument(rule), forge.SourceTypeProject, 1, true)
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if len(api.Calls()) != 0 {
		t.Fatalf("dry-run issued writes: %v", api.Calls())
	}
	// Dry-run still matches and records to the ledger.
	if result.ResourcesMatched != 1 {
		t.Errorf("matched = %d, want 1", result.ResourcesMatched)
	}
	entries, _ := store.ListRun(context.Background(), result.RunID)
	if len(entries) != 1 || !entries[0].DryRun {
		t.Errorf("ledger entries = %+v, want one dry-run entry", entries)
	}
}
