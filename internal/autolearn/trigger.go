package autolearn

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/events"
	"github.com/hugo-lorenzo-mato/compound/internal/logging"
	"github.com/hugo-lorenzo-mato/compound/internal/scrub"
)

// State is the terminal state of one OnIdle call.
type State string

const (
	StateSkipped State = "skipped"
	StateSuccess State = "success"
	StateFailure State = "failure"
)

// Outcome reasons.
const (
	ReasonDisabled      = "disabled"
	ReasonInFlight      = "in_flight"
	ReasonNoSession     = "no_session"
	ReasonCooldown      = "cooldown"
	ReasonBelowMinimum  = "below_minimum"
	ReasonNoChanges     = "no_changes"
	ReasonNoPrompt      = "no_prompt"
	ReasonNoContext     = "no_ephemeral_session"
	ReasonPromptFailed  = "prompt_failed"
	ReasonInvalidJSON   = ErrorInvalidJSON
	ReasonApplied       = "applied"
	ReasonApplyFailed   = "apply_failed"
	ReasonInternalFault = "panic"
)

// Outcome describes what an OnIdle call did.
type Outcome struct {
	State  State
	Reason string

	// ExitCode is set when the apply tool ran.
	ExitCode *int
}

func skipped(reason string) Outcome { return Outcome{State: StateSkipped, Reason: reason} }

// ObservationSource reads the most recent observations, oldest first.
type ObservationSource interface {
	Tail(maxLines int) []core.Observation
}

// Applier hands serialized proposals to the apply tool.
type Applier interface {
	Apply(ctx context.Context, proposals json.RawMessage) core.ProcessResult
}

// Deps are the collaborators of a Trigger. Notifier, Events, Scrubber,
// Logger and OnAttemptStarted are optional.
type Deps struct {
	Observations ObservationSource
	Changes      core.ChangeSource
	Sessions     core.SessionClient
	Applier      Applier
	Notifier     core.Notifier
	Events       events.Publisher
	Scrubber     *scrub.Scrubber
	Logger       *logging.Logger

	// OnAttemptStarted receives the reset counters once every gate has
	// passed, before the prompt is built. Processes that share state through
	// a checkpoint file persist it here.
	OnAttemptStarted func(Checkpoint)
}

// Trigger owns the autolearn gating state. It is safe for concurrent use;
// at most one attempt runs at a time.
type Trigger struct {
	cfg  Config
	deps Deps
	now  func() time.Time

	inFlight     atomic.Bool
	lastAttempt  atomic.Int64 // unix nanos, 0 = never
	observations atomic.Int64
}

// New creates a trigger.
func New(cfg Config, deps Deps) *Trigger {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Scrubber == nil {
		deps.Scrubber = scrub.Default()
	}
	if deps.Notifier == nil {
		deps.Notifier = core.NotifierFunc(func(context.Context, string, core.Variant) {})
	}
	deps.Logger = deps.Logger.WithComponent("autolearn")
	return &Trigger{cfg: cfg.withDefaults(), deps: deps, now: time.Now}
}

// Config returns the effective configuration.
func (t *Trigger) Config() Config {
	return t.cfg
}

// RecordObservation counts one appended observation toward the minimum.
func (t *Trigger) RecordObservation() {
	t.observations.Add(1)
}

// Pending returns the observations counted since the last attempt.
func (t *Trigger) Pending() int64 {
	return t.observations.Load()
}

// InFlight reports whether an attempt is running.
func (t *Trigger) InFlight() bool {
	return t.inFlight.Load()
}

// Checkpoint captures the counters for persistence.
func (t *Trigger) Checkpoint() Checkpoint {
	c := Checkpoint{Observations: t.observations.Load()}
	if ns := t.lastAttempt.Load(); ns != 0 {
		c.LastAttempt = time.Unix(0, ns).UTC()
	}
	return c
}

// Restore loads counters saved by Checkpoint.
func (t *Trigger) Restore(c Checkpoint) {
	t.observations.Store(c.Observations)
	if c.LastAttempt.IsZero() {
		t.lastAttempt.Store(0)
		return
	}
	t.lastAttempt.Store(c.LastAttempt.UnixNano())
}

// OnIdle runs one autolearn attempt if every gate passes. It never panics
// and never returns an error; the outcome is informational.
func (t *Trigger) OnIdle(ctx context.Context, sessionID string) (out Outcome) {
	log := t.deps.Logger.WithSession(sessionID)

	if !t.cfg.Enabled {
		return skipped(ReasonDisabled)
	}
	if t.inFlight.Load() {
		return skipped(ReasonInFlight)
	}
	if sessionID == "" {
		return skipped(ReasonNoSession)
	}
	now := t.now()
	if last := t.lastAttempt.Load(); last != 0 && now.Sub(time.Unix(0, last)) < t.cfg.Cooldown {
		return skipped(ReasonCooldown)
	}
	if t.observations.Load() < int64(t.cfg.MinNewObservations) {
		return skipped(ReasonBelowMinimum)
	}
	if !t.inFlight.CompareAndSwap(false, true) {
		return skipped(ReasonInFlight)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("autolearn panicked", "panic", fmt.Sprint(r))
			out = Outcome{State: StateFailure, Reason: ReasonInternalFault}
		}
		t.inFlight.Store(false)
		if out.State != StateSkipped {
			t.publish(sessionID, out)
		}
		log.Debug("autolearn finished", "state", out.State, "reason", out.Reason)
	}()

	changes := t.deps.Changes.ChangeSummary(ctx)
	if !changes.IsOK() {
		log.Debug("change summary unavailable", "reason", changes.Reason, "error", changes.Err)
		return skipped(ReasonNoChanges)
	}
	if changes.Value.Empty() {
		return skipped(ReasonNoChanges)
	}

	t.lastAttempt.Store(now.UnixNano())
	t.observations.Store(0)
	if t.deps.OnAttemptStarted != nil {
		t.deps.OnAttemptStarted(t.Checkpoint())
	}

	return t.run(ctx, sessionID, changes.Value)
}

func (t *Trigger) run(ctx context.Context, sessionID string, changes core.ChangeSummary) Outcome {
	log := t.deps.Logger.WithSession(sessionID)

	template := LoadTemplate(t.cfg.PromptPath)
	if template == "" {
		log.Debug("prompt template missing", "path", t.cfg.PromptPath)
		return skipped(ReasonNoPrompt)
	}

	var recent []core.Observation
	if t.deps.Observations != nil {
		recent = t.deps.Observations.Tail(t.cfg.MaxObservationsInPrompt)
	}
	prompt := ComposePrompt(template, RenderContext(sessionID, changes, recent), t.cfg.PromptMaxChars)

	ephemeral := t.createEphemeral(ctx, sessionID)
	if ephemeral == "" {
		return skipped(ReasonNoContext)
	}

	resp, err := t.prompt(ctx, ephemeral, prompt)
	if err != nil {
		log.Warn("autolearn prompt failed", "error", err)
		t.deps.Notifier.Notify(ctx, "Compound autolearn failed", core.VariantError)
		return Outcome{State: StateFailure, Reason: ReasonPromptFailed}
	}

	text := ResponseText(resp)
	proposals, err := ParseProposals(text)
	if err != nil {
		rawLen := len([]rune(text))
		t.writeStatus(Status{OK: false, Error: ErrorInvalidJSON, RawLen: &rawLen})
		return Outcome{State: StateFailure, Reason: ReasonInvalidJSON}
	}
	if len(proposals) == 0 {
		t.writeStatus(Status{OK: true, Applied: core.BoolPtr(false), Reason: ReasonNoop})
		return Outcome{State: StateSuccess, Reason: ReasonNoop}
	}

	payload, err := encodeProposals(proposals)
	if err != nil {
		log.Warn("encoding proposals failed", "error", err)
		return Outcome{State: StateFailure, Reason: ReasonInvalidJSON}
	}

	res := t.deps.Applier.Apply(ctx, payload)
	stdout := t.snippet(res.Stdout)
	stderr := t.snippet(res.Stderr)
	code := res.ExitCode
	if res.Succeeded() {
		t.deps.Notifier.Notify(ctx, "Compound autolearn applied", core.VariantSuccess)
		t.writeStatus(Status{OK: true, Applied: core.BoolPtr(true), ExitCode: &code, Stdout: &stdout, Stderr: &stderr})
		log.Info("autolearn applied", "exit_code", code)
		return Outcome{State: StateSuccess, Reason: ReasonApplied, ExitCode: &code}
	}

	t.deps.Notifier.Notify(ctx, "Compound autolearn failed", core.VariantError)
	t.writeStatus(Status{OK: false, Applied: core.BoolPtr(false), ExitCode: &code, Stdout: &stdout, Stderr: &stderr})
	log.Warn("autolearn apply failed", "exit_code", code, "timed_out", res.TimedOut)
	return Outcome{State: StateFailure, Reason: ReasonApplyFailed}
}

// createEphemeral prefers a standalone session and falls back to a child of
// the triggering session when the host insists on a parent.
func (t *Trigger) createEphemeral(ctx context.Context, parentID string) string {
	log := t.deps.Logger.WithSession(parentID)

	id, err := t.deps.Sessions.Create(ctx, core.CreateSessionRequest{Title: SessionTitle})
	if err == nil && id != "" {
		return id
	}
	log.Debug("standalone session refused, retrying with parent", "error", err)

	id, err = t.deps.Sessions.Create(ctx, core.CreateSessionRequest{Title: SessionTitle, ParentID: parentID})
	if err != nil || id == "" {
		log.Warn("no ephemeral session", "error", err)
		return ""
	}
	return id
}

func (t *Trigger) prompt(ctx context.Context, id, text string) (*core.PromptResponse, error) {
	defer func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
		defer cancel()
		if err := t.deps.Sessions.Delete(dctx, id); err != nil {
			t.deps.Logger.Debug("ephemeral session teardown failed", "session", id, "error", err)
		}
	}()
	return t.deps.Sessions.Prompt(ctx, id, core.PromptRequest{Agent: AgentRole, Text: text})
}

func (t *Trigger) snippet(s string) string {
	return truncateBudget(t.deps.Scrubber.Redact(s), snippetMaxChars)
}

func (t *Trigger) writeStatus(st Status) {
	st.TS = t.now().UTC()
	if err := WriteStatus(t.cfg.StatusPath, st); err != nil {
		t.deps.Logger.Warn("autolearn status not written", "path", t.cfg.StatusPath, "error", err)
	}
}

func (t *Trigger) publish(sessionID string, out Outcome) {
	if t.deps.Events == nil {
		return
	}
	t.deps.Events.Publish(events.NewAutolearnFinishedEvent(
		sessionID, string(out.State), out.Reason, out.Reason == ReasonApplied, out.ExitCode))
}
