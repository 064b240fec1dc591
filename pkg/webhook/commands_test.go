package webhook

import (
	"fmt"
	"testing"

	"mercator-hq/ganymede/pkg/policy/ast"
)

func TestNewCommand(t *testing.T) {
	bind := func(vars map[string][]string) (*ast.Actions, error) {
		return &ast.Actions{Labels: vars["labels"]}, nil
	}

	cmd, err := NewCommand("label", "label {{...labels}}", bind)
	if err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}

	actions, matched, err := cmd.match("label ~bug ~urgent")
	if err != nil || !matched {
		t.Fatalf("match = (%v, %v)", matched, err)
	}
	if len(actions.Labels) != 2 || actions.Labels[0] != "bug" || actions.Labels[1] != "urgent" {
		t.Errorf("labels = %v, want [bug urgent]", actions.Labels)
	}

	if _, matched, _ := cmd.match("unlabel bug"); matched {
		t.Error("literal mismatch should not match")
	}

	if _, err := NewCommand("", "close", bind); err == nil {
		t.Error("empty name should fail")
	}
	if _, err := NewCommand("close", "close", nil); err == nil {
		t.Error("nil bind should fail")
	}
}

func TestCommandBindErrorSurfaces(t *testing.T) {
	cmd, err := NewCommand("label", "label {{...labels}}", func(vars map[string][]string) (*ast.Actions, error) {
		return nil, fmt.Errorf("no labels given")
	})
	if err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}

	_, matched, err := cmd.match("label ~x")
	if !matched {
		t.Error("pattern should match before bind runs")
	}
	if err == nil {
		t.Error("bind error should surface")
	}
}

func TestDefaultCommandsFirstMatchWins(t *testing.T) {
	commands := DefaultCommands()

	var matchedName string
	for _, cmd := range commands {
		if _, ok, _ := cmd.match("merge"); ok {
			matchedName = cmd.Name
			break
		}
	}
	if matchedName != "merge" {
		t.Errorf("matched command = %q, want merge", matchedName)
	}
}
