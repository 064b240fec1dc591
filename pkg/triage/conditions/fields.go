package conditions

import (
	"mercator-hq/ganymede/pkg/forge"
)

// Milestone, weight, and health_status accept the lowercase sentinels
// too, since policy authors write them both ways.

func (e *Evaluator) evalState(res *forge.Resource, config interface{}) bool {
	want, ok := asString(config)
	return ok && res.State == want
}

func (e *Evaluator) evalAuthorUsername(res *forge.Resource, config interface{}) bool {
	want, ok := asString(config)
	return ok && res.Author.Username == want
}

func (e *Evaluator) evalMilestone(res *forge.Resource, config interface{}) bool {
	want, ok := asString(config)
	if !ok {
		return false
	}
	switch want {
	case "none", labelNone:
		return res.Milestone == nil
	case "any", labelAny:
		return res.Milestone != nil
	}
	return res.Milestone != nil && res.Milestone.Title == want
}

// evalCounter evaluates votes and discussions conditions. A missing
// counter attribute reads as 0. Both directions are strict.
func (e *Evaluator) evalCounter(res *forge.Resource, config interface{}) bool {
	m, ok := asMap(config)
	if !ok {
		return false
	}

	attr, _ := asString(m["attribute"])
	cond, _ := asString(m["condition"])
	threshold, ok := asInt(m["threshold"])
	if !ok {
		return false
	}

	value := res.CounterAttr(attr)
	switch cond {
	case "less_than":
		return value < threshold
	case "greater_than":
		return value > threshold
	}
	return false
}

func (e *Evaluator) evalDraft(res *forge.Resource, config interface{}) bool {
	want, ok := asBool(config)
	return ok && res.Draft == want
}

func (e *Evaluator) evalStringField(value string, config interface{}) bool {
	want, ok := asString(config)
	return ok && value != "" && value == want
}

func (e *Evaluator) evalWeight(res *forge.Resource, config interface{}) bool {
	if s, ok := config.(string); ok {
		switch s {
		case labelNone, "none":
			return res.Weight == nil
		case labelAny, "any":
			return res.Weight != nil
		}
	}
	want, ok := asFloat(config)
	if !ok {
		return false
	}
	return res.Weight != nil && float64(*res.Weight) == want
}

func (e *Evaluator) evalHealthStatus(res *forge.Resource, config interface{}) bool {
	want, ok := asString(config)
	if !ok {
		return false
	}
	switch want {
	case labelNone, "none":
		return res.HealthStatus == ""
	case labelAny, "any":
		return res.HealthStatus != ""
	}
	return res.HealthStatus == want
}
