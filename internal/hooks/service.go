// Package hooks is the host boundary: it adapts host callbacks into the core
// event variants and routes them through the observation store, the
// autolearn trigger and the nudge engine. No entry point returns an error or
// lets a panic reach the host.
package hooks

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hugo-lorenzo-mato/compound/internal/autolearn"
	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/events"
	"github.com/hugo-lorenzo-mato/compound/internal/logging"
	"github.com/hugo-lorenzo-mato/compound/internal/nudge"
	"github.com/hugo-lorenzo-mato/compound/internal/observe"
	"github.com/hugo-lorenzo-mato/compound/internal/scrub"
)

// compactionLines are injected into the host's compaction summary.
var compactionLines = []string{
	"## Persistent repo context (compound-engineering)",
	"- Read AGENTS.md (stable human-owned overview).",
	"- Read LOOM.md (derived always-on context + instincts summary).",
	"- Read .loom/compound/ROADMAP.md (direction + backlog + changelog).",
	"- Skills live under .opencode/skills/<name>/SKILL.md (mirrored to .claude/skills/ when enabled).",
	"- This plugin logs observations and may trigger a background autolearn on session idle.",
}

// Updater refreshes derived repository docs.
type Updater interface {
	Update(ctx context.Context) core.ProcessResult
}

// Config controls the service.
type Config struct {
	Root            string
	LogObservations bool
	Prime           bool
	Refresh         bool
	// Background runs autolearn on its own goroutine; Wait joins it.
	Background bool
}

// Deps are the collaborators of a Service. Only Store is required.
type Deps struct {
	Store    *observe.Store
	Scrubber *scrub.Scrubber
	Trigger  *autolearn.Trigger
	Nudger   *nudge.Engine
	Updater  Updater
	Notifier core.Notifier
	Events   events.Publisher
	Children *core.ChildSessions
	Logger   *logging.Logger
}

// Service handles host callbacks for one repository.
type Service struct {
	cfg       Config
	deps      Deps
	logger    *logging.Logger
	installed atomic.Bool
	wg        sync.WaitGroup
}

// NewService wires the store's append hook to the trigger counter and the
// event bus.
func NewService(cfg Config, deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Scrubber == nil {
		deps.Scrubber = scrub.Default()
	}
	if deps.Children == nil {
		deps.Children = &core.ChildSessions{}
	}
	if deps.Notifier == nil {
		deps.Notifier = core.NotifierFunc(func(context.Context, string, core.Variant) {})
	}
	s := &Service{cfg: cfg, deps: deps, logger: deps.Logger.WithComponent("hooks")}

	deps.Store.OnAppend(func(obs core.Observation) {
		if deps.Trigger != nil {
			deps.Trigger.RecordObservation()
		}
		if deps.Events != nil {
			deps.Events.Publish(events.NewObservationRecordedEvent(obs.Session(), obs.ID, obs.Type, obs.Tool, obs.Summary))
		}
	})
	return s
}

// Installed reports the result of the last install check.
func (s *Service) Installed() bool {
	return s.installed.Load()
}

// CheckInstall re-reads the scaffold without side effects and returns the
// missing files.
func (s *Service) CheckInstall() []string {
	missing := CheckInstalled(s.cfg.Root)
	s.installed.Store(len(missing) == 0)
	return missing
}

// Start runs the session-start sequence: the install check, then either
// the install hint or the optional docs refresh.
func (s *Service) Start(ctx context.Context) {
	defer s.guard("start")

	missing := s.CheckInstall()
	if len(missing) > 0 {
		s.logger.Info("scaffolding missing", "missing", strings.Join(missing, ","))
		s.deps.Notifier.Notify(ctx, InstallHint, core.VariantInfo)
		return
	}
	if (s.cfg.Prime || s.cfg.Refresh) && s.deps.Updater != nil {
		res := s.deps.Updater.Update(ctx)
		if !res.Succeeded() {
			s.logger.Warn("start refresh failed", "exit_code", res.ExitCode, "timed_out", res.TimedOut)
		}
	}
}

// HandleEvent processes one lifecycle event.
func (s *Service) HandleEvent(ctx context.Context, ev core.HostEvent) {
	defer s.guard("event")
	if ev == nil || !s.installed.Load() {
		return
	}

	if created, ok := ev.(core.SessionCreated); ok && created.ParentID != "" {
		s.deps.Children.Add(created.SessionID)
	}

	if s.cfg.LogObservations {
		if obs, ok := EventObservation(ev, s.deps.Scrubber); ok {
			s.append(obs)
		}
	}

	if idle, ok := ev.(core.SessionIdle); ok {
		s.autolearn(ctx, idle.SessionID)
	}
}

func (s *Service) autolearn(ctx context.Context, sessionID string) {
	if s.deps.Trigger == nil {
		return
	}
	if !s.cfg.Background {
		s.deps.Trigger.OnIdle(ctx, sessionID)
		return
	}
	// The host request that delivered the event may finish long before the
	// attempt does.
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.guard("autolearn")
		s.deps.Trigger.OnIdle(bg, sessionID)
	}()
}

// ToolBefore logs the start of a tool call.
func (s *Service) ToolBefore(_ context.Context, call core.ToolCall) {
	defer s.guard("tool.before")
	if !s.installed.Load() || !s.cfg.LogObservations {
		return
	}
	s.append(ToolObservation(core.EventToolBefore, call, s.deps.Scrubber))
}

// ToolAfter logs a completed tool call and may append a nudge to its output.
func (s *Service) ToolAfter(_ context.Context, call *core.ToolCall) (d nudge.Decision) {
	defer s.guard("tool.after")
	if call == nil || !s.installed.Load() {
		return nudge.Decision{}
	}
	if s.cfg.LogObservations {
		s.append(ToolObservation(core.EventToolAfter, *call, s.deps.Scrubber))
	}
	if s.deps.Nudger != nil {
		d = s.deps.Nudger.AfterTool(call)
	}
	return d
}

// TransformMessages injects the turn reminder into the outgoing transcript.
func (s *Service) TransformMessages(_ context.Context, messages []core.ChatMessage) (changed bool) {
	defer s.guard("messages.transform")
	if !s.installed.Load() || s.deps.Nudger == nil {
		return false
	}
	return s.deps.Nudger.InjectReminder(messages)
}

// CompactionContext returns the block added to compaction summaries.
func (s *Service) CompactionContext() string {
	return strings.Join(compactionLines, "\n")
}

// Wait blocks until background autolearn attempts finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) append(obs core.Observation) {
	if err := s.deps.Store.Append(obs); err != nil {
		s.logger.WithSession(obs.Session()).Warn("observation append failed", "type", obs.Type, "error", err)
	}
}

func (s *Service) guard(hook string) {
	if r := recover(); r != nil {
		s.logger.Error("hook panicked", "hook", hook, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
	}
}
