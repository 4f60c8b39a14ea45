// Package core holds the domain types shared by the observation pipeline:
// host events, observations, the ports to the host and external tools, and
// the domain error model.
package core

// Host event wire types.
const (
	EventSessionCreated     = "session.created"
	EventSessionUpdated     = "session.updated"
	EventSessionIdle        = "session.idle"
	EventCommandExecuted    = "command.executed"
	EventMessagePartUpdated = "message.part.updated"

	EventToolBefore = "tool.execute.before"
	EventToolAfter  = "tool.execute.after"
)

// HostEvent is the closed set of lifecycle events delivered by the host.
// Only types in this package implement it.
type HostEvent interface {
	// Type returns the wire type string.
	Type() string
	// Session returns the session identifier carried by the event, if any.
	Session() string

	hostEvent()
}

// SessionCreated reports a new host session. ParentID is set for child
// sessions (including the ephemeral autolearn sessions this system creates).
// Keys holds the top-level property names, which is all that gets logged.
type SessionCreated struct {
	SessionID string
	ParentID  string
	Keys      []string
}

// SessionUpdated reports a title or metadata change.
type SessionUpdated struct {
	SessionID string
	Title     string
}

// SessionIdle reports that a session finished its turn.
type SessionIdle struct {
	SessionID string
}

// CommandExecuted reports a host slash-command invocation.
type CommandExecuted struct {
	SessionID string
	Name      string
	ArgvCount *int
}

// MessagePartUpdated is a streaming delta. It is never logged.
type MessagePartUpdated struct {
	SessionID string
	PartType  string
}

// OtherEvent carries any event type this system does not model. Only the
// property key names are retained.
type OtherEvent struct {
	EventType string
	SessionID string
	Keys      []string
}

func (e SessionCreated) Type() string     { return EventSessionCreated }
func (e SessionUpdated) Type() string     { return EventSessionUpdated }
func (e SessionIdle) Type() string        { return EventSessionIdle }
func (e CommandExecuted) Type() string    { return EventCommandExecuted }
func (e MessagePartUpdated) Type() string { return EventMessagePartUpdated }
func (e OtherEvent) Type() string {
	if e.EventType == "" {
		return "unknown"
	}
	return e.EventType
}

func (e SessionCreated) Session() string     { return e.SessionID }
func (e SessionUpdated) Session() string     { return e.SessionID }
func (e SessionIdle) Session() string        { return e.SessionID }
func (e CommandExecuted) Session() string    { return e.SessionID }
func (e MessagePartUpdated) Session() string { return e.SessionID }
func (e OtherEvent) Session() string         { return e.SessionID }

func (SessionCreated) hostEvent()     {}
func (SessionUpdated) hostEvent()     {}
func (SessionIdle) hostEvent()        {}
func (CommandExecuted) hostEvent()    {}
func (MessagePartUpdated) hostEvent() {}
func (OtherEvent) hostEvent()         {}

// ToolCall is one tool invocation seen through the before/after callbacks.
// Result is nil for the before callback.
type ToolCall struct {
	SessionID string
	Tool      string
	Args      map[string]any
	Result    *ToolResult
}

// ToolResult is the host-visible outcome of a completed tool call. Output is
// the text shown to the model; HasOutput is false when the host sent a
// non-string output, in which case it must not be rewritten.
type ToolResult struct {
	OK        *bool
	ExitCode  *int
	Title     string
	Output    string
	HasOutput bool
}

// Command returns the raw "command" argument for shell-like tools.
func (c ToolCall) Command() string {
	if c.Args == nil {
		return ""
	}
	if s, ok := c.Args["command"].(string); ok {
		return s
	}
	return ""
}

// ChatMessage is one message of the outgoing chat transcript.
type ChatMessage struct {
	Role      string
	SessionID string
	Parts     []MessagePart
}

// MessagePart is one part of a chat message. Only text parts are rewritten.
type MessagePart struct {
	Type string
	Text string
}
