// Package autolearn turns a finished coding session into learning proposals.
// On session idle it gates on cooldown, activity and a non-empty working
// tree diff, asks an ephemeral host session for proposals and hands them to
// the apply tool.
package autolearn

import (
	"path/filepath"
	"time"
)

const (
	// PromptRelPath is the prompt template location under the repo root.
	PromptRelPath = ".opencode/compound/prompts/autolearn.md"
	// StatusRelPath is the status document location under the repo root.
	StatusRelPath = ".opencode/compound/autolearn_status.json"
	// CheckpointRelPath persists trigger counters between one-shot hook runs.
	CheckpointRelPath = ".opencode/compound/autolearn_state.json"

	// SessionTitle names every ephemeral session.
	SessionTitle = "compound-autolearn"
	// AgentRole is the non-interactive role the prompt runs under.
	AgentRole = "plan"

	// ReasonSessionIdle is the trigger reason rendered into the prompt.
	ReasonSessionIdle = "session.idle"

	snippetMaxChars = 4000
	teardownTimeout = 10 * time.Second
)

// Config holds the trigger settings.
type Config struct {
	Enabled                 bool
	Cooldown                time.Duration
	MinNewObservations      int
	MaxObservationsInPrompt int
	PromptMaxChars          int
	PromptPath              string
	StatusPath              string
}

// DefaultConfig returns the defaults for a repository rooted at root.
func DefaultConfig(root string) Config {
	return Config{
		Enabled:                 true,
		Cooldown:                120 * time.Second,
		MinNewObservations:      12,
		MaxObservationsInPrompt: 80,
		PromptMaxChars:          18000,
		PromptPath:              filepath.Join(root, filepath.FromSlash(PromptRelPath)),
		StatusPath:              filepath.Join(root, filepath.FromSlash(StatusRelPath)),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig("")
	if c.Cooldown < 0 {
		c.Cooldown = 0
	}
	if c.MinNewObservations < 0 {
		c.MinNewObservations = 0
	}
	if c.MaxObservationsInPrompt <= 0 {
		c.MaxObservationsInPrompt = def.MaxObservationsInPrompt
	}
	if c.PromptMaxChars <= 0 {
		c.PromptMaxChars = def.PromptMaxChars
	}
	return c
}
