// Package nudge appends short reminders to shell tool output and to the
// user's turn so the agent keeps its ticket and memory notes current.
package nudge

import (
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/events"
	"github.com/hugo-lorenzo-mato/compound/internal/logging"
	"github.com/hugo-lorenzo-mato/compound/internal/scrub"
)

const (
	// MinCooldown is the shortest accepted nudge cooldown.
	MinCooldown = time.Second
	// MaxPatterns caps the interest pattern list.
	MaxPatterns = 20

	nudgeBase    = "\n\n---\nLoom: if this matters, update your ticket and capture a scoped memory."
	nudgeFailTip = "\nTip: include the failure symptom + the fix."
)

// Config holds the nudge settings.
type Config struct {
	// Inject enables the turn reminder.
	Inject bool
	// Tool enables tool-output nudges.
	Tool     bool
	Cooldown time.Duration
	// CommandPatterns are interest regular expressions matched against the
	// command signature.
	CommandPatterns []string
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{Inject: true, Tool: true, Cooldown: 45 * time.Second}
}

// ParsePatterns splits a ';'-separated pattern list.
func ParsePatterns(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ";") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CompilePatterns compiles up to MaxPatterns case-insensitive expressions.
// Invalid expressions are dropped.
func CompilePatterns(patterns []string) []*regexp.Regexp {
	if len(patterns) > MaxPatterns {
		patterns = patterns[:MaxPatterns]
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			continue
		}
		out = append(out, re)
	}
	return out
}

// Decision is the nudge verdict for one tool call.
type Decision struct {
	Eligible  bool
	Failed    bool
	Signature string
	// Fired is set when the reminder was appended.
	Fired bool
}

// Engine decides and applies tool nudges. It is safe for concurrent use.
type Engine struct {
	cfg      Config
	patterns []*regexp.Regexp
	scrubber *scrub.Scrubber
	children *core.ChildSessions
	events   events.Publisher
	logger   *logging.Logger
	now      func() time.Time

	global    atomic.Int64
	bySession sync.Map // session id -> *atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithScrubber sets the scrubber used for command signatures.
func WithScrubber(s *scrub.Scrubber) Option {
	return func(e *Engine) { e.scrubber = s }
}

// WithChildSessions shares the set of child sessions, which are never nudged.
func WithChildSessions(c *core.ChildSessions) Option {
	return func(e *Engine) { e.children = c }
}

// WithEvents publishes nudge.fired events.
func WithEvents(p events.Publisher) Option {
	return func(e *Engine) { e.events = p }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine.
func New(cfg Config, opts ...Option) *Engine {
	if cfg.Cooldown < MinCooldown {
		cfg.Cooldown = MinCooldown
	}
	e := &Engine{
		cfg:      cfg,
		patterns: CompilePatterns(cfg.CommandPatterns),
		scrubber: scrub.Default(),
		children: &core.ChildSessions{},
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("nudge")
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Decide computes the verdict for a completed call without touching the
// cooldown or the output.
func (e *Engine) Decide(call core.ToolCall) Decision {
	if !scrub.IsShellTool(call.Tool) || call.Result == nil {
		return Decision{}
	}
	sig := e.scrubber.Signature(call.Command())
	failed := LooksFailed(call.Result)
	return Decision{
		Eligible:  failed || e.interesting(sig),
		Failed:    failed,
		Signature: sig,
	}
}

func (e *Engine) interesting(sig string) bool {
	if strings.TrimSpace(sig) == "" {
		return false
	}
	for _, re := range e.patterns {
		if re.MatchString(sig) {
			return true
		}
	}
	return false
}

// AfterTool appends the reminder to call.Result.Output when the call is
// eligible and the session's cooldown has elapsed.
func (e *Engine) AfterTool(call *core.ToolCall) Decision {
	if !e.cfg.Tool || call == nil || call.Result == nil || !call.Result.HasOutput {
		return Decision{}
	}
	if e.children.Contains(call.SessionID) {
		return Decision{}
	}
	d := e.Decide(*call)
	if !d.Eligible || !e.allow(call.SessionID) {
		return d
	}

	call.Result.Output += Text(d.Signature, d.Failed)
	d.Fired = true

	e.logger.WithSession(call.SessionID).Debug("nudge fired", "tool", call.Tool, "failed", d.Failed)
	if e.events != nil {
		e.events.Publish(events.NewNudgeFiredEvent(call.SessionID, call.Tool, d.Signature, d.Failed))
	}
	return d
}

// allow is a non-blocking check-and-set of the last-fired timestamp.
// Losing a race skips the nudge.
func (e *Engine) allow(sessionID string) bool {
	slot := &e.global
	if key := strings.TrimSpace(sessionID); key != "" {
		v, _ := e.bySession.LoadOrStore(key, new(atomic.Int64))
		slot = v.(*atomic.Int64)
	}
	now := e.now().UnixNano()
	last := slot.Load()
	if last != 0 && now-last < int64(e.cfg.Cooldown) {
		return false
	}
	return slot.CompareAndSwap(last, now)
}

// Text renders the appended reminder.
func Text(signature string, failed bool) string {
	var b strings.Builder
	b.WriteString(nudgeBase)
	if signature != "" {
		b.WriteString("\nExample: loom memory add --title \"...\" --command \"" + signature + "\" --body \"...\"")
	} else {
		b.WriteString("\nExample: loom memory add --title \"...\" --scope command:<signature> --body \"...\"")
	}
	if failed {
		b.WriteString(nudgeFailTip)
	}
	return b.String()
}
