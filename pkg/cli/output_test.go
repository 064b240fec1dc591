package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"mercator-hq/ganymede/pkg/triage/processor"
)

func TestParseFormat(t *testing.T) {
	if _, err := ParseFormat("text"); err != nil {
		t.Errorf("text rejected: %v", err)
	}
	if _, err := ParseFormat("json"); err != nil {
		t.Errorf("json rejected: %v", err)
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestWriteResultText(t *testing.T) {
	var buf bytes.Buffer
	result := &processor.Result{RunID: "run-1", RulesRun: 3, ResourcesMatched: 2}

	if err := WriteResult(&buf, FormatText, result, true); err != nil {
		t.Fatalf("WriteResult failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"run-1", "dry run", "rules evaluated:    3", "resources matched:  2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteResultJSON(t *testing.T) {
	var buf bytes.Buffer
	result := &processor.Result{RunID: "run-2", RulesRun: 1, Errors: 1}

	if err := WriteResult(&buf, FormatJSON, result, false); err != nil {
		t.Fatalf("WriteResult failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["run_id"] != "run-2" {
		t.Errorf("run_id = %v", decoded["run_id"])
	}
	if decoded["dry_run"] != false {
		t.Errorf("dry_run = %v", decoded["dry_run"])
	}
	if decoded["errors"] != float64(1) {
		t.Errorf("errors = %v", decoded["errors"])
	}
}

func TestCommandError(t *testing.T) {
	inner := &CommandError{Command: "run", Err: bytes.ErrTooLarge}
	if !strings.Contains(inner.Error(), "run") {
		t.Errorf("Error() = %q", inner.Error())
	}
	if inner.Unwrap() != bytes.ErrTooLarge {
		t.Error("Unwrap lost the inner error")
	}
}
