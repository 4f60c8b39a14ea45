package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hugo-lorenzo-mato/compound/internal/adapters/cli"
	"github.com/hugo-lorenzo-mato/compound/internal/adapters/git"
	"github.com/hugo-lorenzo-mato/compound/internal/adapters/opencode"
	"github.com/hugo-lorenzo-mato/compound/internal/autolearn"
	"github.com/hugo-lorenzo-mato/compound/internal/config"
	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/events"
	"github.com/hugo-lorenzo-mato/compound/internal/hooks"
	"github.com/hugo-lorenzo-mato/compound/internal/logging"
	"github.com/hugo-lorenzo-mato/compound/internal/nudge"
	"github.com/hugo-lorenzo-mato/compound/internal/observe"
	"github.com/hugo-lorenzo-mato/compound/internal/scrub"
)

const eventBufferSize = 100

// app holds the wired pipeline for one repository.
type app struct {
	root   string
	cfg    *config.Config
	logger *logging.Logger

	scrubber *scrub.Scrubber
	store    *observe.Store
	trigger  *autolearn.Trigger
	nudger   *nudge.Engine
	host     *opencode.Client
	bus      *events.EventBus
	service  *hooks.Service

	checkpointPath string
	logFile        *os.File
}

// inRoot resolves a configured path against the repository root.
func inRoot(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, filepath.FromSlash(path))
}

// newLogger builds the diagnostic logger. Records never go to stdout, which
// carries the one-shot hook protocol.
func newLogger(root string, cfg config.LogConfig) (*logging.Logger, *os.File, error) {
	var out io.Writer = os.Stderr
	var file *os.File
	if cfg.File != "" {
		f, err := logging.OpenFile(inRoot(root, cfg.File))
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out, file = f, f
	}
	return logging.New(logging.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: out,
	}), file, nil
}

func newScrubber(cfg config.ObservationsConfig) (*scrub.Scrubber, error) {
	opts := scrub.DefaultOptions()
	opts.MaxStringChars = cfg.MaxStringChars
	opts.MaxObjectKeys = cfg.MaxObjectKeys
	s, err := scrub.New(opts)
	if err != nil {
		return nil, fmt.Errorf("building scrubber: %w", err)
	}
	return s, nil
}

func newStore(root string, cfg config.ObservationsConfig, logger *logging.Logger) *observe.Store {
	return observe.NewStore(observe.Options{
		Path:         inRoot(root, cfg.Path),
		MaxBytes:     cfg.MaxBytes,
		MaxBackups:   cfg.MaxBackups,
		TailMaxBytes: cfg.TailMaxBytes,
	}, logger)
}

func autolearnConfig(root string, cfg config.AutoConfig) autolearn.Config {
	return autolearn.Config{
		Enabled:                 cfg.Enabled,
		Cooldown:                time.Duration(cfg.CooldownSeconds) * time.Second,
		MinNewObservations:      cfg.MinNewObservations,
		MaxObservationsInPrompt: cfg.MaxObservationsInPrompt,
		PromptMaxChars:          cfg.PromptMaxChars,
		PromptPath:              inRoot(root, cfg.PromptPath),
		StatusPath:              inRoot(root, cfg.StatusPath),
	}
}

func nudgeConfig(cfg config.NudgeConfig) nudge.Config {
	return nudge.Config{
		Inject:          cfg.Inject,
		Tool:            cfg.Tool,
		Cooldown:        time.Duration(cfg.ToolCooldownSeconds) * time.Second,
		CommandPatterns: nudge.ParsePatterns(cfg.CommandRegex),
	}
}

// newApp loads the configuration for the current root and wires every
// pipeline component. background selects goroutine-based autolearn.
func newApp(ctx context.Context, background bool) (*app, error) {
	root, err := resolveRoot(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	logger, logFile, err := newLogger(root, cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{
		root:           root,
		cfg:            cfg,
		logger:         logger,
		logFile:        logFile,
		bus:            events.New(eventBufferSize),
		checkpointPath: filepath.Join(root, filepath.FromSlash(autolearn.CheckpointRelPath)),
	}
	if a.scrubber, err = newScrubber(cfg.Observations); err != nil {
		a.Close()
		return nil, err
	}
	a.store = newStore(root, cfg.Observations, logger)

	hostTimeout, _ := time.ParseDuration(cfg.Host.Timeout)
	a.host = opencode.NewClient(opencode.Config{
		BaseURL:   cfg.Host.URL,
		Timeout:   hostTimeout,
		Directory: root,
	}, logger.WithComponent("host"))

	gitClient, err := git.NewClient(root)
	if err != nil {
		a.Close()
		return nil, err
	}
	runner := cli.NewRunner(root, logger)
	resolver := cli.NewResolver(runner, cfg.Loom.Bin, logger)
	applier := cli.NewApplier(runner, resolver)

	a.trigger = autolearn.New(autolearnConfig(root, cfg.Auto), autolearn.Deps{
		Observations: a.store,
		Changes:      gitClient,
		Sessions:     a.host,
		Applier:      applier,
		Notifier:     a.host,
		Events:       a.bus,
		Scrubber:     a.scrubber,
		Logger:       logger,

		OnAttemptStarted: a.persistCheckpoint,
	})

	children := &core.ChildSessions{}
	a.nudger = nudge.New(nudgeConfig(cfg.Nudge),
		nudge.WithScrubber(a.scrubber),
		nudge.WithChildSessions(children),
		nudge.WithEvents(a.bus),
		nudge.WithLogger(logger),
	)

	a.service = hooks.NewService(hooks.Config{
		Root:            root,
		LogObservations: cfg.Observations.Enabled,
		Prime:           cfg.Start.Prime,
		Refresh:         cfg.Start.Refresh,
		Background:      background,
	}, hooks.Deps{
		Store:    a.store,
		Scrubber: a.scrubber,
		Trigger:  a.trigger,
		Nudger:   a.nudger,
		Updater:  applier,
		Notifier: a.host,
		Events:   a.bus,
		Children: children,
		Logger:   logger,
	})
	return a, nil
}

// restoreCheckpoint carries the trigger counters over from the previous
// one-shot run.
func (a *app) restoreCheckpoint() {
	c, err := autolearn.LoadCheckpoint(a.checkpointPath)
	if err != nil {
		a.logger.Warn("ignoring unreadable checkpoint", "error", err)
		return
	}
	a.trigger.Restore(c)
}

func (a *app) saveCheckpoint() {
	a.persistCheckpoint(a.trigger.Checkpoint())
}

// persistCheckpoint writes c as soon as an autolearn attempt starts, so a
// concurrent hook process restoring it sees the reset counters.
func (a *app) persistCheckpoint(c autolearn.Checkpoint) {
	if err := autolearn.SaveCheckpoint(a.checkpointPath, c); err != nil {
		a.logger.Warn("saving checkpoint failed", "error", err)
	}
}

// Close releases the event bus and the log file.
func (a *app) Close() {
	if a.bus != nil {
		a.bus.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
