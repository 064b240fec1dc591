package expr

import (
	"testing"
	"time"
)

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "empty", src: ""},
		{name: "unterminated string", src: `state == "opened`},
		{name: "trailing operator", src: "upvotes >"},
		{name: "unbalanced paren", src: "(upvotes > 2"},
		{name: "unexpected character", src: "state @ 3"},
		{name: "trailing garbage", src: "draft true"},
		{name: "bad list", src: `state in ["a" "b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compile(tt.src); err == nil {
				t.Fatalf("Compile(%q) succeeded, want error", tt.src)
			}
		})
	}
}

func TestEval(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env := Env{
		"state":      "opened",
		"title":      "Crash on startup",
		"author":     "alice",
		"labels":     []string{"bug", "backend"},
		"upvotes":    12,
		"downvotes":  0,
		"draft":      false,
		"weight":     3.0,
		"now":        now,
		"created_at": now.Add(-40 * 24 * time.Hour),
		"updated_at": now.Add(-31 * 24 * time.Hour),
		"payload": map[string]interface{}{
			"object_attributes": map[string]interface{}{
				"action": "open",
			},
		},
	}

	tests := []struct {
		name string
		src  string
		want bool
	}{
		{name: "string equality", src: `state == "opened"`, want: true},
		{name: "string inequality", src: `state != "closed"`, want: true},
		{name: "numeric comparison", src: "upvotes > 10", want: true},
		{name: "numeric comparison false", src: "downvotes >= 1", want: false},
		{name: "int vs float coercion", src: "weight == 3", want: true},
		{name: "and", src: `state == "opened" && upvotes > 10`, want: true},
		{name: "and short circuit", src: `state == "closed" && upvotes > 10`, want: false},
		{name: "or", src: `state == "closed" || upvotes > 10`, want: true},
		{name: "not", src: "!draft", want: true},
		{name: "label membership", src: `"bug" in labels`, want: true},
		{name: "label membership miss", src: `"frontend" in labels`, want: false},
		{name: "labels contains", src: `labels contains "backend"`, want: true},
		{name: "substring", src: `title contains "Crash"`, want: true},
		{name: "list literal membership", src: `state in ["opened", "locked"]`, want: true},
		{name: "staleness", src: "now - updated_at > 30d", want: true},
		{name: "staleness false", src: "now - updated_at > 2mo", want: false},
		{name: "age in weeks", src: "now - created_at >= 5w", want: true},
		{name: "time comparison", src: "created_at < updated_at", want: true},
		{name: "time plus duration", src: "created_at + 1y > now", want: true},
		{name: "nested payload access", src: `payload.object_attributes.action == "open"`, want: true},
		{name: "missing path is nil", src: "payload.object_attributes.missing == nil", want: true},
		{name: "missing top level is nil", src: "assignee == nil", want: true},
		{name: "parentheses", src: `(state == "closed" || upvotes > 10) && !draft`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Compile(tt.src)
			if err != nil {
				t.Fatalf("Compile(%q) failed: %v", tt.src, err)
			}
			got, err := e.Eval(env)
			if err != nil {
				t.Fatalf("Eval(%q) failed: %v", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	env := Env{
		"state":   "opened",
		"upvotes": 3,
		"labels":  []string{"bug"},
	}

	tests := []struct {
		name string
		src  string
	}{
		{name: "non boolean result", src: "upvotes + 1"},
		{name: "ordering type mismatch", src: `state > 3`},
		{name: "and on non boolean", src: `state && true`},
		{name: "not on non boolean", src: "!upvotes"},
		{name: "contains on number", src: `upvotes contains "3"`},
		{name: "arithmetic type mismatch", src: `state + 1 == "opened1"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Compile(tt.src)
			if err != nil {
				t.Fatalf("Compile(%q) failed: %v", tt.src, err)
			}
			if _, err := e.Eval(env); err == nil {
				t.Fatalf("Eval(%q) succeeded, want error", tt.src)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		lit  string
		want time.Duration
	}{
		{lit: "30m", want: 30 * time.Minute},
		{lit: "12h", want: 12 * time.Hour},
		{lit: "30d", want: 30 * 24 * time.Hour},
		{lit: "2w", want: 14 * 24 * time.Hour},
		{lit: "6mo", want: 180 * 24 * time.Hour},
		{lit: "1y", want: 365 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.lit, func(t *testing.T) {
			got, err := parseDuration(tt.lit)
			if err != nil {
				t.Fatalf("parseDuration(%q) failed: %v", tt.lit, err)
			}
			if got != tt.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tt.lit, got, tt.want)
			}
		})
	}
}

func TestCompileReuse(t *testing.T) {
	e, err := Compile("upvotes > 5")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	got, err := e.Eval(Env{"upvotes": 10})
	if err != nil || !got {
		t.Fatalf("first Eval = (%v, %v), want (true, nil)", got, err)
	}
	got, err = e.Eval(Env{"upvotes": 1})
	if err != nil || got {
		t.Fatalf("second Eval = (%v, %v), want (false, nil)", got, err)
	}
}
