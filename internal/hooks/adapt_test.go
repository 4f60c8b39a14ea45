package hooks

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
)

func TestAdaptEvent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want core.HostEvent
	}{
		{
			name: "child session created",
			raw:  `{"type":"session.created","properties":{"info":{"id":"ses_child","parentID":"ses_root"}}}`,
			want: core.SessionCreated{SessionID: "ses_child", ParentID: "ses_root", Keys: []string{"info"}},
		},
		{
			name: "wrapped event",
			raw:  `{"event":{"type":"session.idle","properties":{"sessionID":"ses_1"}}}`,
			want: core.SessionIdle{SessionID: "ses_1"},
		},
		{
			name: "idle with legacy id key",
			raw:  `{"type":"session.idle","properties":{"sessionId":"ses_2"}}`,
			want: core.SessionIdle{SessionID: "ses_2"},
		},
		{
			name: "title from info",
			raw:  `{"type":"session.updated","properties":{"info":{"id":"ses_3","title":"Fix login"}}}`,
			want: core.SessionUpdated{SessionID: "ses_3", Title: "Fix login"},
		},
		{
			name: "command with argv",
			raw:  `{"type":"command.executed","properties":{"sessionID":"ses_4","command":"loom-plan","argv":["a","b"]}}`,
			want: core.CommandExecuted{SessionID: "ses_4", Name: "loom-plan", ArgvCount: core.IntPtr(2)},
		},
		{
			name: "message delta",
			raw:  `{"type":"message.part.updated","properties":{"part":{"sessionID":"ses_5","type":"text"}}}`,
			want: core.MessagePartUpdated{SessionID: "ses_5", PartType: "text"},
		},
		{
			name: "unknown type keeps key names only",
			raw:  `{"type":"file.edited","properties":{"file":"/secret/path","sessionID":"ses_6"}}`,
			want: core.OtherEvent{EventType: "file.edited", SessionID: "ses_6", Keys: []string{"file", "sessionID"}},
		},
		{
			name: "unknown type without properties",
			raw:  `{"type":"server.connected"}`,
			want: core.OtherEvent{EventType: "server.connected"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AdaptEvent([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdaptEvent_Errors(t *testing.T) {
	_, err := AdaptEvent([]byte(`not json`))
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))

	_, err = AdaptEvent([]byte(`{"properties":{}}`))
	var domErr *core.DomainError
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, core.CodeInvalidEvent, domErr.Code)
}

func TestAdaptEvent_CapsKeyNames(t *testing.T) {
	props := map[string]any{}
	for i := 0; i < 50; i++ {
		props[fmt.Sprintf("k%02d", i)] = i
	}
	raw, err := json.Marshal(map[string]any{"type": "custom", "properties": props})
	require.NoError(t, err)

	ev, err := AdaptEvent(raw)
	require.NoError(t, err)
	other := ev.(core.OtherEvent)
	require.Len(t, other.Keys, maxEventKeys)
	assert.Equal(t, "k00", other.Keys[0])
	assert.Equal(t, "k39", other.Keys[39])
}

func TestAdaptTool(t *testing.T) {
	raw := `{
		"input": {"name": "bash", "sessionId": "ses_1", "args": {"command": "ignored"}},
		"output": {
			"args": {"command": "npm test"},
			"success": false,
			"title": "npm test",
			"output": "1 failing",
			"metadata": {"exit_code": 1},
			"extra": {"kept": true}
		}
	}`
	p, err := AdaptTool([]byte(raw), true)
	require.NoError(t, err)

	assert.Equal(t, "bash", p.Call.Tool)
	assert.Equal(t, "ses_1", p.Call.SessionID)
	assert.Equal(t, "npm test", p.Call.Command())
	require.NotNil(t, p.Call.Result)
	require.NotNil(t, p.Call.Result.OK)
	assert.False(t, *p.Call.Result.OK)
	require.NotNil(t, p.Call.Result.ExitCode)
	assert.Equal(t, 1, *p.Call.Result.ExitCode)
	assert.True(t, p.Call.Result.HasOutput)

	p.Call.Result.Output += " (nudged)"
	reply := p.Reply()["output"].(map[string]any)
	assert.Equal(t, "1 failing (nudged)", reply["output"])
	assert.Equal(t, map[string]any{"kept": true}, reply["extra"])
}

func TestAdaptTool_Fallbacks(t *testing.T) {
	p, err := AdaptTool([]byte(`{"input":{},"output":{"tool":"read","ok":true,"output":{"blob":1}}}`), true)
	require.NoError(t, err)
	assert.Equal(t, "read", p.Call.Tool)
	assert.True(t, *p.Call.Result.OK)
	assert.False(t, p.Call.Result.HasOutput)
	assert.Nil(t, p.Call.Result.ExitCode)

	// Non-string output is returned untouched.
	reply := p.Reply()["output"].(map[string]any)
	assert.Equal(t, map[string]any{"blob": float64(1)}, reply["output"])

	p, err = AdaptTool([]byte(`{}`), false)
	require.NoError(t, err)
	assert.Equal(t, "unknown", p.Call.Tool)
	assert.Nil(t, p.Call.Result)
	assert.Equal(t, map[string]any{"output": map[string]any{}}, p.Reply())
}

func TestAdaptMessages_RoundTrip(t *testing.T) {
	raw := `{"messages":[
		{"info":{"role":"user","sessionID":"ses_1","id":"msg_1"},"parts":[{"type":"file","url":"x"},{"type":"text","text":"hello","synthetic":false}]},
		{"info":{"role":"assistant","sessionID":"ses_1"},"parts":[{"type":"text","text":"hi"}]}
	]}`
	tr, err := AdaptMessages([]byte(raw))
	require.NoError(t, err)
	require.Len(t, tr.Messages, 2)
	assert.Equal(t, "user", tr.Messages[0].Role)
	assert.Equal(t, "ses_1", tr.Messages[0].SessionID)
	assert.Equal(t, "hello", tr.Messages[0].Parts[1].Text)

	tr.Messages[0].Parts[1].Text = "prefix\n\nhello"
	data, err := json.Marshal(tr.Reply())
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"text":"prefix\n\nhello"`)
	assert.Contains(t, out, `"synthetic":false`)
	assert.Contains(t, out, `"id":"msg_1"`)
	assert.Equal(t, 1, strings.Count(out, `"url":"x"`))
}

func TestAdaptMessages_Empty(t *testing.T) {
	tr, err := AdaptMessages([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, tr.Messages)
	assert.Equal(t, map[string]any{"messages": []map[string]any{}}, tr.Reply())
}
