package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"mercator-hq/ganymede/pkg/triage/processor"
)

// OutputFormat selects how command results are printed.
type OutputFormat string

const (
	// FormatText is human-readable output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is machine-readable output.
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates an output format flag.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatText, FormatJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// WriteResult prints a triage run result in the given format.
func WriteResult(w io.Writer, format OutputFormat, result *processor.Result, dryRun bool) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(struct {
			*processor.Result
			DryRun bool `json:"dry_run"`
		}{result, dryRun})
	default:
		mode := ""
		if dryRun {
			mode = " (dry run)"
		}
		_, err := fmt.Fprintf(w,
			"run %s%s\n  rules evaluated:    %d\n  resources matched:  %d\n  summaries filed:    %d\n  contained errors:   %d\n",
			result.RunID, mode,
			result.RulesRun,
			result.ResourcesMatched,
			result.SummariesFiled,
			result.Errors,
		)
		return err
	}
}
