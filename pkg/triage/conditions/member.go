package conditions

import (
	"context"

	"mercator-hq/ganymede/pkg/forge"
)

// evalAuthorMember checks the resource author against a group
// membership list fetched from the forge. A config missing source,
// source_id, or condition is a non-match; an unsupported source is a
// configuration error and aborts the enclosing rule for this resource.
func (e *Evaluator) evalAuthorMember(ctx context.Context, res *forge.Resource, config interface{}) (bool, error) {
	m, ok := asMap(config)
	if !ok {
		return false, nil
	}

	source, _ := asString(m["source"])
	cond, _ := asString(m["condition"])
	sourceID, hasID := asInt(m["source_id"])
	if source == "" || cond == "" || !hasID {
		return false, nil
	}

	if source != "group" && source != string(forge.SourceTypeGroup) {
		return false, &forge.ConfigError{
			Field:   "author_member.source",
			Message: "membership lookups are only supported for groups, got " + source,
		}
	}

	members, err := e.api.GroupMembers(ctx, int64(sourceID))
	if err != nil {
		e.logger.Error("group membership lookup failed",
			"group_id", sourceID,
			"resource", res.Reference(),
			"error", err,
		)
		return false, nil
	}

	isMember := false
	for _, u := range members {
		if u.Username == res.Author.Username {
			isMember = true
			break
		}
	}

	switch cond {
	case "member_of":
		return isMember, nil
	case "not_member_of":
		return !isMember, nil
	}
	return false, nil
}
