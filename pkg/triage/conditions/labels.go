package conditions

import (
	"strings"

	"mercator-hq/ganymede/pkg/forge"
)

// Label list sentinels.
const (
	labelNone = "None"
	labelAny  = "Any"
)

// evalLabels evaluates the labels condition. The configured list may
// contain the None/Any sentinels, brace OR-groups, and plain labels.
// OR-groups and plain labels are two independent checks: every group
// must have at least one expansion present, and every plain label must
// be present.
func (e *Evaluator) evalLabels(res *forge.Resource, config interface{}) bool {
	required, ok := asStringList(config)
	if !ok {
		return false
	}

	var plain []string
	var groups [][]string

	for _, entry := range required {
		switch entry {
		case labelNone:
			if len(res.Labels) != 0 {
				return false
			}
		case labelAny:
			if len(res.Labels) == 0 {
				return false
			}
		default:
			if alts, ok := expandGroup(entry); ok {
				groups = append(groups, alts)
			} else {
				plain = append(plain, entry)
			}
		}
	}

	for _, alts := range groups {
		matched := false
		for _, alt := range alts {
			if res.HasLabel(alt) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, label := range plain {
		if !res.HasLabel(label) {
			return false
		}
	}

	return true
}

// evalForbiddenLabels holds when none of the listed labels are present.
func (e *Evaluator) evalForbiddenLabels(res *forge.Resource, config interface{}) bool {
	forbidden, ok := asStringList(config)
	if !ok {
		return false
	}
	for _, label := range forbidden {
		if res.HasLabel(label) {
			return false
		}
	}
	return true
}

// expandGroup expands a `prefix{a,b,c}suffix` entry into its
// alternatives, trimming whitespace around each. Entries without a
// brace group return false.
func expandGroup(entry string) ([]string, bool) {
	open := strings.Index(entry, "{")
	if open < 0 {
		return nil, false
	}
	end := strings.Index(entry[open:], "}")
	if end < 0 {
		return nil, false
	}
	end += open

	prefix := entry[:open]
	suffix := entry[end+1:]
	alts := strings.Split(entry[open+1:end], ",")

	out := make([]string, 0, len(alts))
	for _, alt := range alts {
		out = append(out, prefix+strings.TrimSpace(alt)+suffix)
	}
	return out, true
}
