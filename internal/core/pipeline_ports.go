package core

import (
	"context"
	"sync"
	"time"
)

// CreateSessionRequest asks the host for a new session. ParentID is empty
// for a standalone session.
type CreateSessionRequest struct {
	Title    string
	ParentID string
}

// PromptRequest submits text to a session under a named agent role.
type PromptRequest struct {
	Agent string
	Text  string
}

// PromptResponse is the structured reply of the host. Parts is nil when the
// host answered with a flat Content string.
type PromptResponse struct {
	Parts   []MessagePart
	Content string
}

// SessionClient is the host's session lifecycle API.
type SessionClient interface {
	Create(ctx context.Context, req CreateSessionRequest) (string, error)
	Prompt(ctx context.Context, sessionID string, req PromptRequest) (*PromptResponse, error)
	Delete(ctx context.Context, sessionID string) error
}

// Variant is the visual style of a transient notification.
type Variant string

const (
	VariantInfo    Variant = "info"
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
)

// Notifier surfaces a transient message to the user. Implementations must
// swallow their own failures.
type Notifier interface {
	Notify(ctx context.Context, message string, variant Variant)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, message string, variant Variant)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, message string, variant Variant) {
	f(ctx, message, variant)
}

// ChangeSource summarizes uncommitted work in the repository.
type ChangeSource interface {
	ChangeSummary(ctx context.Context) Result[ChangeSummary]
}

// CommandSpec names an executable and its leading arguments.
type CommandSpec struct {
	Cmd  string
	Args []string
}

// CommandRunner runs a subprocess with a hard timeout. It never returns an
// error: spawn failures and timeouts are reported as non-zero exit codes.
type CommandRunner interface {
	Run(ctx context.Context, spec CommandSpec, timeout time.Duration) ProcessResult
}

// ChildSessions tracks sessions that were created with a parent. Nudges and
// reminders are never applied to them.
type ChildSessions struct {
	ids sync.Map
}

// Add marks id as a child session.
func (c *ChildSessions) Add(id string) {
	if id == "" {
		return
	}
	c.ids.Store(id, struct{}{})
}

// Contains reports whether id is a known child session.
func (c *ChildSessions) Contains(id string) bool {
	if c == nil || id == "" {
		return false
	}
	_, ok := c.ids.Load(id)
	return ok
}
