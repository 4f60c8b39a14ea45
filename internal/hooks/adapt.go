package hooks

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
)

// maxEventKeys caps the property key names kept for unmodelled events.
const maxEventKeys = 40

// AdaptEvent turns a host event payload, either {type, properties} or
// {event: {type, properties}}, into one of the core event variants.
func AdaptEvent(raw []byte) (core.HostEvent, error) {
	var env map[string]any
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, core.ErrValidation(core.CodeInvalidJSON, "event is not a JSON object").WithCause(err)
	}
	if inner, ok := env["event"].(map[string]any); ok && env["type"] == nil {
		env = inner
	}
	typ, _ := env["type"].(string)
	if typ == "" {
		return nil, core.ErrValidation(core.CodeInvalidEvent, "event has no type")
	}
	props, _ := env["properties"].(map[string]any)
	return eventFromProperties(typ, props), nil
}

func eventFromProperties(typ string, props map[string]any) core.HostEvent {
	session := firstString(props, "sessionID", "sessionId", "id")
	info, _ := props["info"].(map[string]any)

	switch typ {
	case core.EventSessionCreated:
		id := firstString(info, "id")
		if id == "" {
			id = session
		}
		return core.SessionCreated{SessionID: id, ParentID: firstString(info, "parentID"), Keys: propertyKeys(props)}
	case core.EventSessionUpdated:
		if session == "" {
			session = firstString(info, "id")
		}
		title := firstString(props, "title")
		if title == "" {
			title = firstString(info, "title")
		}
		return core.SessionUpdated{SessionID: session, Title: title}
	case core.EventSessionIdle:
		return core.SessionIdle{SessionID: session}
	case core.EventCommandExecuted:
		ev := core.CommandExecuted{SessionID: session, Name: firstString(props, "name", "command")}
		if argv, ok := props["argv"].([]any); ok {
			ev.ArgvCount = core.IntPtr(len(argv))
		}
		return ev
	case core.EventMessagePartUpdated:
		part, _ := props["part"].(map[string]any)
		if session == "" {
			session = firstString(part, "sessionID")
		}
		return core.MessagePartUpdated{SessionID: session, PartType: firstString(part, "type")}
	default:
		return core.OtherEvent{EventType: typ, SessionID: session, Keys: propertyKeys(props)}
	}
}

// propertyKeys returns up to maxEventKeys sorted key names, or nil when the
// event carried no property object.
func propertyKeys(props map[string]any) []string {
	if props == nil {
		return nil
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > maxEventKeys {
		keys = keys[:maxEventKeys]
	}
	return keys
}

// ToolPayload is an adapted tool callback. The output object is kept so the
// reply round-trips every field the host sent.
type ToolPayload struct {
	Call   core.ToolCall
	output map[string]any
}

// AdaptTool parses a {input, output} tool callback payload. When after is
// set the result fields are read from output.
func AdaptTool(raw []byte, after bool) (*ToolPayload, error) {
	var env struct {
		Input  map[string]any `json:"input"`
		Output map[string]any `json:"output"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, core.ErrValidation(core.CodeInvalidJSON, "tool payload is not a JSON object").WithCause(err)
	}
	if env.Output == nil {
		env.Output = map[string]any{}
	}

	tool := firstString(env.Input, "tool", "name")
	if tool == "" {
		tool = firstString(env.Output, "tool")
	}
	if tool == "" {
		tool = "unknown"
	}

	args, ok := env.Output["args"].(map[string]any)
	if !ok {
		args, _ = env.Input["args"].(map[string]any)
	}

	p := &ToolPayload{
		Call: core.ToolCall{
			SessionID: firstString(env.Input, "sessionID", "sessionId"),
			Tool:      tool,
			Args:      args,
		},
		output: env.Output,
	}
	if after {
		p.Call.Result = toolResult(env.Output)
	}
	return p, nil
}

func toolResult(out map[string]any) *core.ToolResult {
	res := &core.ToolResult{Title: firstString(out, "title")}
	if ok, isBool := firstPresent(out, "ok", "success").(bool); isBool {
		res.OK = core.BoolPtr(ok)
	}
	md, _ := out["metadata"].(map[string]any)
	if code, isNum := firstPresent(md, "exitCode", "exit_code", "code").(float64); isNum {
		res.ExitCode = core.IntPtr(int(code))
	}
	if text, isString := out["output"].(string); isString {
		res.Output = text
		res.HasOutput = true
	}
	return res
}

// Reply returns the output object to send back to the host, carrying any
// rewritten output text.
func (p *ToolPayload) Reply() map[string]any {
	if p.Call.Result != nil && p.Call.Result.HasOutput {
		p.output["output"] = p.Call.Result.Output
	}
	return map[string]any{"output": p.output}
}

// Transcript is an adapted chat transcript. Raw messages are kept so the
// reply preserves fields this system does not model.
type Transcript struct {
	Messages []core.ChatMessage
	raw      []map[string]any
}

// AdaptMessages parses a {messages: [{info: {role, sessionID}, parts}]}
// payload.
func AdaptMessages(raw []byte) (*Transcript, error) {
	var env struct {
		Messages []map[string]any `json:"messages"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, core.ErrValidation(core.CodeInvalidJSON, "messages payload is not a JSON object").WithCause(err)
	}

	t := &Transcript{raw: env.Messages, Messages: make([]core.ChatMessage, len(env.Messages))}
	for i, m := range env.Messages {
		info, _ := m["info"].(map[string]any)
		msg := core.ChatMessage{
			Role:      firstString(info, "role"),
			SessionID: firstString(info, "sessionID", "sessionId"),
		}
		parts, _ := m["parts"].([]any)
		for _, item := range parts {
			part, _ := item.(map[string]any)
			typ, _ := part["type"].(string)
			text, isString := part["text"].(string)
			if typ == "text" && !isString {
				// Only string text can be rewritten.
				typ = ""
			}
			msg.Parts = append(msg.Parts, core.MessagePart{Type: typ, Text: text})
		}
		t.Messages[i] = msg
	}
	return t, nil
}

// Reply writes rewritten text parts back into the raw transcript.
func (t *Transcript) Reply() map[string]any {
	for i, msg := range t.Messages {
		parts, _ := t.raw[i]["parts"].([]any)
		for j, part := range msg.Parts {
			if part.Type != "text" || j >= len(parts) {
				continue
			}
			if rawPart, ok := parts[j].(map[string]any); ok {
				rawPart["text"] = part.Text
			}
		}
	}
	msgs := t.raw
	if msgs == nil {
		msgs = []map[string]any{}
	}
	return map[string]any{"messages": msgs}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// firstPresent mirrors a ?? chain: the first key whose value is not null.
func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
