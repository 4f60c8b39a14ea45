package hooks

import (
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/observe"
	"github.com/hugo-lorenzo-mato/compound/internal/scrub"
)

// Loggable reports whether events of this type are written to the log.
// Streaming message deltas are too noisy to keep.
func Loggable(eventType string) bool {
	return eventType != "" && !strings.HasPrefix(eventType, "message.part.")
}

// EventObservation builds the log record for a host event. Only whitelisted
// properties are kept. ok is false for event types that are never logged.
func EventObservation(ev core.HostEvent, s *scrub.Scrubber) (core.Observation, bool) {
	if ev == nil || !Loggable(ev.Type()) {
		return core.Observation{}, false
	}
	obs := observe.NewObservation(ev.Type(), ev.Session())

	switch e := ev.(type) {
	case core.SessionCreated:
		obs.Properties = keysProperty(e.Keys)
	case core.SessionUpdated:
		obs.Properties = presentStrings("title", e.Title, "sessionID", e.SessionID)
		obs.Summary = "title=" + e.Title
	case core.SessionIdle:
		obs.Properties = presentStrings("sessionID", e.SessionID)
	case core.CommandExecuted:
		props := map[string]any{"name": e.Name}
		if e.ArgvCount != nil {
			props["argv_count"] = *e.ArgvCount
		}
		obs.Properties = props
		obs.Command = e.Name
		obs.Summary = "name=" + e.Name
	case core.MessagePartUpdated:
		return core.Observation{}, false
	case core.OtherEvent:
		obs.Properties = keysProperty(e.Keys)
	}

	scrubProperties(obs.Properties, s)
	obs.Summary = s.String(obs.Summary)
	obs.Command = s.String(obs.Command)
	return obs, true
}

// ToolObservation builds the log record for a tool callback. The arguments
// are redacted before anything is derived from them.
func ToolObservation(typ string, call core.ToolCall, s *scrub.Scrubber) core.Observation {
	obs := observe.NewObservation(typ, call.SessionID)
	obs.Tool = call.Tool
	redacted := s.Args(call.Tool, call.Args)
	if redacted != nil {
		obs.Args = redacted
	}
	if typ == core.EventToolAfter && call.Result != nil {
		obs.OK = call.Result.OK
	}
	obs.Summary = ToolSummary(call.Tool, redacted)
	return obs
}

var summaryFields = []struct {
	key string
	max int
}{
	{"filePath", 240},
	{"pattern", 240},
	{"include", 120},
	{"url", 240},
}

// ToolSummary renders a one-line description from already redacted args.
func ToolSummary(tool string, redacted any) string {
	m, ok := redacted.(map[string]any)
	if !ok {
		return ""
	}
	if scrub.IsShellTool(tool) {
		sum, _ := m["command_sha256"].(string)
		if sum == "" {
			return ""
		}
		return fmt.Sprintf("command_sha256=%s command_len=%v", sum, m["command_len"])
	}

	var bits []string
	for _, f := range summaryFields {
		if v, ok := m[f.key].(string); ok && v != "" {
			bits = append(bits, f.key+"="+scrub.Truncate(v, f.max))
		}
	}
	return strings.Join(bits, " ")
}

// scrubProperties redacts the whitelisted values in place. Key-based
// redaction is skipped because the whitelist already names every key.
func scrubProperties(props map[string]any, s *scrub.Scrubber) {
	for k, v := range props {
		switch t := v.(type) {
		case string:
			props[k] = s.String(t)
		case []string:
			out := make([]string, len(t))
			for i, item := range t {
				out[i] = s.String(item)
			}
			props[k] = out
		}
	}
}

func keysProperty(keys []string) map[string]any {
	if keys == nil {
		return nil
	}
	return map[string]any{"keys": keys}
}

func presentStrings(kv ...string) map[string]any {
	out := map[string]any{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			out[kv[i]] = kv[i+1]
		}
	}
	return out
}
