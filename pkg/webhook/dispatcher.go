package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/ganymede/pkg/forge"
	"mercator-hq/ganymede/pkg/policy/ast"
	"mercator-hq/ganymede/pkg/telemetry/logging"
	"mercator-hq/ganymede/pkg/triage/executor"
	"mercator-hq/ganymede/pkg/triage/processor"
)

// SecretHeader is the header the forge sends the webhook secret in.
const SecretHeader = "X-Gitlab-Token"

// maxBodySize bounds webhook payloads. Forge payloads are small; a
// megabyte leaves plenty of headroom.
const maxBodySize = 1 << 20

// MetricsRecorder counts webhook events by outcome. Nil disables
// instrumentation.
type MetricsRecorder interface {
	WebhookEvent(event, outcome string)
}

// Config assembles a Dispatcher.
type Config struct {
	// Secret is compared against the X-Gitlab-Token header. Empty
	// accepts unauthenticated events.
	Secret string

	// BotName is the account chat commands address. A note must start
	// with "@<BotName>" to be treated as a command; empty matches
	// every note against the command set.
	BotName string

	// API loads the resource a note event addresses.
	API forge.API

	// Executor applies command actions.
	Executor *executor.Executor

	// Commands is the chat command set, tried in order. First match
	// wins.
	Commands []*Command

	// Document supplies the current policy document for resource
	// events. Called per event so a reloading source is picked up.
	Document func() *ast.Document

	// Processor runs policy rules for resource events. Resource
	// events are ignored when nil.
	Processor *processor.Processor

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Metrics counts events by outcome. Optional.
	Metrics MetricsRecorder
}

// Dispatcher routes webhook events: note events through the chat
// command set, issue and merge request events through the policy
// rules.
type Dispatcher struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{cfg: cfg, logger: logger}
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if d.cfg.Secret != "" {
		token := r.Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(token), []byte(d.cfg.Secret)) != 1 {
			d.count("unknown", "unauthorized")
			http.Error(w, "invalid webhook token", http.StatusUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}

	var ev event
	if err := json.Unmarshal(body, &ev); err != nil {
		d.count("unknown", "malformed")
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	logger := logging.FromContext(r.Context(), d.logger)

	var outcome string
	switch ev.ObjectKind {
	case "note":
		outcome = d.handleNote(r, logger, &ev)
	case "issue":
		outcome = d.handleResource(r, logger, forge.ResourceTypeIssue, &ev, body)
	case "merge_request":
		outcome = d.handleResource(r, logger, forge.ResourceTypeMergeRequest, &ev, body)
	default:
		logger.Debug("ignoring webhook event", "object_kind", ev.ObjectKind)
		outcome = "ignored"
	}
	d.count(ev.ObjectKind, outcome)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": outcome})
}

// handleNote runs a note body through the chat command set and applies
// the first matching command to the addressed resource.
func (d *Dispatcher) handleNote(r *http.Request, logger *slog.Logger, ev *event) string {
	var attrs noteAttributes
	if err := json.Unmarshal(ev.ObjectAttributes, &attrs); err != nil {
		logger.Warn("malformed note attributes", "error", err)
		return "malformed"
	}

	input, addressed := d.stripMention(attrs.Note)
	if !addressed {
		return "ignored"
	}

	rt, iid, err := noteTarget(ev, &attrs)
	if err != nil {
		logger.Debug("note has no actionable target", "error", err)
		return "ignored"
	}

	for _, cmd := range d.cfg.Commands {
		actions, matched, err := cmd.match(input)
		if !matched {
			continue
		}
		if err != nil {
			logger.Warn("command rejected input", "command", cmd.Name, "error", err)
			return "error"
		}

		res, err := d.cfg.API.GetResource(r.Context(), rt, forge.SourceTypeProject, ev.Project.ID, iid)
		if err != nil {
			logger.Error("loading command target failed",
				"command", cmd.Name,
				"project_id", ev.Project.ID,
				"iid", iid,
				"error", err,
			)
			return "error"
		}

		logger.Info("executing chat command",
			"command", cmd.Name,
			"resource", res.Reference(),
			"actions", strings.Join(actions.Kinds(), ","),
		)
		if _, err := d.cfg.Executor.Apply(r.Context(), actions, res, rt, false); err != nil {
			logger.Error("chat command failed", "command", cmd.Name, "error", err)
			return "error"
		}
		return "matched"
	}

	return "no_match"
}

// handleResource runs the policy rules for the event's resource type
// against the single resource the event names, exposing the raw
// payload to expr conditions.
func (d *Dispatcher) handleResource(r *http.Request, logger *slog.Logger, rt forge.ResourceType, ev *event, body []byte) string {
	if d.cfg.Processor == nil || d.cfg.Document == nil {
		return "ignored"
	}
	doc := d.cfg.Document()
	if doc == nil {
		return "ignored"
	}
	rp := doc.ResourceRules[rt]
	if rp == nil || len(rp.Rules) == 0 {
		return "ignored"
	}

	var attrs resourceAttributes
	if err := json.Unmarshal(ev.ObjectAttributes, &attrs); err != nil || attrs.IID == 0 {
		logger.Warn("malformed resource attributes", "error", err)
		return "malformed"
	}

	res, err := d.cfg.API.GetResource(r.Context(), rt, forge.SourceTypeProject, ev.Project.ID, attrs.IID)
	if err != nil {
		logger.Error("loading event resource failed",
			"resource_type", rt,
			"project_id", ev.Project.ID,
			"iid", attrs.IID,
			"error", err,
		)
		return "error"
	}

	var payload map[string]interface{}
	_ = json.Unmarshal(body, &payload)

	errs := 0
	for _, rule := range rp.Rules {
		result := d.cfg.Processor.ProcessRule(r.Context(), rt, rule, []*forge.Resource{res}, payload, false)
		errs += result.Errors
	}
	if errs > 0 {
		return "error"
	}
	return "processed"
}

// stripMention removes the leading bot mention from a note. The second
// return is false when the note does not address the bot.
func (d *Dispatcher) stripMention(note string) (string, bool) {
	note = strings.TrimSpace(note)
	if d.cfg.BotName == "" {
		return note, note != ""
	}

	mention := "@" + d.cfg.BotName
	if note == mention {
		return "", false
	}
	if !strings.HasPrefix(note, mention+" ") {
		return "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(note, mention))
	return rest, rest != ""
}

// noteTarget resolves the resource a note is attached to.
func noteTarget(ev *event, attrs *noteAttributes) (forge.ResourceType, int, error) {
	switch attrs.NoteableType {
	case "Issue":
		if ev.Issue == nil {
			return "", 0, fmt.Errorf("note event missing issue block")
		}
		return forge.ResourceTypeIssue, ev.Issue.IID, nil
	case "MergeRequest":
		if ev.MergeRequest == nil {
			return "", 0, fmt.Errorf("note event missing merge_request block")
		}
		return forge.ResourceTypeMergeRequest, ev.MergeRequest.IID, nil
	default:
		return "", 0, fmt.Errorf("unsupported noteable type %q", attrs.NoteableType)
	}
}

func (d *Dispatcher) count(event, outcome string) {
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.WebhookEvent(event, outcome)
	}
}
