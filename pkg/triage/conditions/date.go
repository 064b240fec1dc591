package conditions

import (
	"time"

	"mercator-hq/ganymede/pkg/forge"
)

// evalDate evaluates a time-window condition against one of the
// resource's timestamp attributes. The elapsed interval is computed in
// the configured unit with truncating division, so a resource updated
// 6 days and 23 hours ago is 6 days old, not 7.
func (e *Evaluator) evalDate(res *forge.Resource, config interface{}) bool {
	m, ok := asMap(config)
	if !ok {
		return false
	}

	attr, _ := asString(m["attribute"])
	cond, _ := asString(m["condition"])
	intervalType, _ := asString(m["interval_type"])
	interval, ok := asInt(m["interval"])
	if !ok || interval <= 0 {
		return false
	}

	ts, ok := res.TimestampAttr(attr)
	if !ok {
		return false
	}

	elapsed := e.now().Sub(ts)
	diff, ok := intervalUnits(elapsed, intervalType)
	if !ok {
		return false
	}

	switch cond {
	case "older_than":
		return diff >= int64(interval)
	case "newer_than":
		return diff <= int64(interval)
	}
	return false
}

// intervalUnits converts an elapsed duration into whole units. Months
// and years use fixed 30 and 365 day lengths.
func intervalUnits(elapsed time.Duration, unit string) (int64, bool) {
	switch unit {
	case "minutes":
		return int64(elapsed / time.Minute), true
	case "hours":
		return int64(elapsed / time.Hour), true
	case "days":
		return int64(elapsed / (24 * time.Hour)), true
	case "weeks":
		return int64(elapsed / (7 * 24 * time.Hour)), true
	case "months":
		return int64(elapsed / (30 * 24 * time.Hour)), true
	case "years":
		return int64(elapsed / (365 * 24 * time.Hour)), true
	}
	return 0, false
}
