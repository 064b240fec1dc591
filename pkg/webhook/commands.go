package webhook

import (
	"fmt"

	"mercator-hq/ganymede/pkg/policy/ast"
	"mercator-hq/ganymede/pkg/triage/command"
)

// Command binds a chat pattern to the actions it triggers. Captured
// variables from the pattern are handed to the bind function, which
// builds the action set for the addressed resource.
type Command struct {
	// Name identifies the command in logs.
	Name string

	matcher *command.Matcher
	bind    func(vars map[string][]string) (*ast.Actions, error)
}

// NewCommand compiles a chat command from a pattern string.
func NewCommand(name, pattern string, bind func(vars map[string][]string) (*ast.Actions, error)) (*Command, error) {
	if name == "" {
		return nil, fmt.Errorf("command name is required")
	}
	if bind == nil {
		return nil, fmt.Errorf("command %q has no bind function", name)
	}
	return &Command{Name: name, matcher: command.NewMatcher(pattern), bind: bind}, nil
}

// match returns the bound actions when the input matches the pattern.
func (c *Command) match(input string) (*ast.Actions, bool, error) {
	result := c.matcher.Match(input)
	if !result.Matched {
		return nil, false, nil
	}
	actions, err := c.bind(result.Variables)
	if err != nil {
		return nil, true, fmt.Errorf("command %q: %w", c.Name, err)
	}
	return actions, true, nil
}

// DefaultCommands returns the built-in chat command set: label,
// unlabel, close, reopen, merge, and ping.
func DefaultCommands() []*Command {
	mustCommand := func(name, pattern string, bind func(vars map[string][]string) (*ast.Actions, error)) *Command {
		cmd, err := NewCommand(name, pattern, bind)
		if err != nil {
			panic(err)
		}
		return cmd
	}

	return []*Command{
		mustCommand("label", "label {{...labels}}", func(vars map[string][]string) (*ast.Actions, error) {
			if len(vars["labels"]) == 0 {
				return nil, fmt.Errorf("no labels given")
			}
			return &ast.Actions{Labels: vars["labels"]}, nil
		}),
		mustCommand("unlabel", "unlabel {{...labels}}", func(vars map[string][]string) (*ast.Actions, error) {
			if len(vars["labels"]) == 0 {
				return nil, fmt.Errorf("no labels given")
			}
			return &ast.Actions{RemoveLabels: vars["labels"]}, nil
		}),
		mustCommand("close", "close", func(map[string][]string) (*ast.Actions, error) {
			return &ast.Actions{Status: "close"}, nil
		}),
		mustCommand("reopen", "reopen", func(map[string][]string) (*ast.Actions, error) {
			return &ast.Actions{Status: "reopen"}, nil
		}),
		mustCommand("merge", "merge", func(map[string][]string) (*ast.Actions, error) {
			return &ast.Actions{Merge: &ast.MergeAction{}}, nil
		}),
		mustCommand("ping", "ping {{...users}}", func(vars map[string][]string) (*ast.Actions, error) {
			if len(vars["users"]) == 0 {
				return nil, fmt.Errorf("no users given")
			}
			return &ast.Actions{Mention: vars["users"]}, nil
		}),
	}
}
