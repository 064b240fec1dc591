package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// redactedValue replaces sensitive attribute values.
const redactedValue = "[REDACTED]"

// sensitiveKeys are attribute names whose values are always scrubbed.
var sensitiveKeys = map[string]bool{
	"token":         true,
	"private_token": true,
	"access_token":  true,
	"secret":        true,
	"secret_token":  true,
	"authorization": true,
	"password":      true,
}

// tokenPattern matches forge access token shapes wherever they appear
// in attribute values (personal, group, and OAuth token prefixes).
var tokenPattern = regexp.MustCompile(`\b(?:glpat|glrt|gloas)-[A-Za-z0-9_\-]{16,}\b`)

// redactAttr is a slog ReplaceAttr hook scrubbing tokens from log
// output.
func redactAttr(groups []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		a.Value = slog.StringValue(redactedValue)
		return a
	}
	if a.Value.Kind() == slog.KindString {
		if s := a.Value.String(); tokenPattern.MatchString(s) {
			a.Value = slog.StringValue(tokenPattern.ReplaceAllString(s, redactedValue))
		}
	}
	return a
}
