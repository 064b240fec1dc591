// Package webhook dispatches forge webhook events. Note events are
// matched against chat commands and drive the action executor on the
// addressed resource; issue and merge request events can optionally be
// run through the policy rules with the event payload exposed to expr
// conditions.
package webhook
